package services

import (
	"context"
	"fmt"

	"finledger/internal/amqp"
	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// TransactionService handles transaction CRUD. Every successful mutation
// invalidates the owner's analytics cache entry and, when a broker is
// configured, publishes an event to the write stream.
type TransactionService struct {
	storage *storage.SQLiteRepository
	cache   cache.Store
	events  *amqp.Client
	logger  *log.Logger
}

// NewTransactionService creates the service. events may be nil; the event
// stream is then skipped entirely.
func NewTransactionService(storage *storage.SQLiteRepository, cacheStore cache.Store, events *amqp.Client, logger *log.Logger) *TransactionService {
	return &TransactionService{
		storage: storage,
		cache:   cacheStore,
		events:  events,
		logger:  logger.WithComponent(log.ComponentTransaction),
	}
}

// CreateTransactionParams carries the fields of a new transaction. A nil
// Date defaults to today.
type CreateTransactionParams struct {
	Amount      core.Money
	Type        core.TransactionType
	CategoryID  *int64
	Description string
	Notes       string
	Date        *core.Date
}

// UpdateTransactionParams carries a partial update; nil fields keep the
// stored value.
type UpdateTransactionParams struct {
	Amount      *core.Money
	Type        *core.TransactionType
	CategoryID  *int64
	Description *string
	Notes       *string
	Date        *core.Date
}

// ListTransactionParams carries filtering, sorting, and pagination for a
// transaction listing.
type ListTransactionParams struct {
	Query      string
	CategoryID *int64
	Type       core.TransactionType
	MinCents   *int64
	MaxCents   *int64
	DateFrom   *core.Date
	DateTo     *core.Date
	SortBy     string
	SortDir    string
	Page       int
	PerPage    int
}

func (s *TransactionService) Create(ctx context.Context, caller *auth.Identity, p CreateTransactionParams) (core.Transaction, error) {
	if caller == nil || !auth.CanAct(caller, auth.ResourceTransaction, auth.ActionCreate, caller.ID) {
		return core.Transaction{}, core.ErrForbidden
	}

	txn := core.Transaction{
		UserID:      caller.ID,
		Amount:      p.Amount,
		Type:        p.Type,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		Notes:       p.Notes,
	}
	if p.Date != nil {
		txn.Date = *p.Date
	} else {
		txn.Date = core.Today()
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, txn.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.storage.CreateTransaction(ctx, txn)
	if err != nil {
		return core.Transaction{}, err
	}

	s.invalidateAnalytics(ctx, created.UserID)
	s.publishEvent(ctx, amqp.EventCreated, created)

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldOperation, log.OpCreate,
		log.FieldTxnID, created.ID,
		log.FieldUserID, created.UserID,
		log.FieldAmountCents, created.Amount.Cents,
		log.FieldTxnType, string(created.Type))
	return created, nil
}

// List returns a page of transactions. Non-admin callers are always scoped
// to their own records regardless of any filter they send.
func (s *TransactionService) List(ctx context.Context, caller *auth.Identity, p ListTransactionParams) ([]core.Transaction, PageMeta, error) {
	if caller == nil || !auth.CanAct(caller, auth.ResourceTransaction, auth.ActionRead, caller.ID) {
		return nil, PageMeta{}, core.ErrForbidden
	}
	if p.Type != "" && !p.Type.IsValid() {
		return nil, PageMeta{}, core.ErrInvalidType
	}

	page, perPage := clampPagination(p.Page, p.PerPage)

	filter := storage.TransactionFilter{
		Query:      p.Query,
		CategoryID: p.CategoryID,
		Type:       p.Type,
		MinCents:   p.MinCents,
		MaxCents:   p.MaxCents,
		DateFrom:   p.DateFrom,
		DateTo:     p.DateTo,
		SortBy:     p.SortBy,
		SortAsc:    p.SortDir == "asc",
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	}
	if !caller.IsAdmin() {
		uid := caller.ID
		filter.UserID = &uid
	}

	txns, total, err := s.storage.ListTransactions(ctx, filter)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return txns, pageMeta(page, perPage, total), nil
}

func (s *TransactionService) Get(ctx context.Context, caller *auth.Identity, id int64) (core.Transaction, error) {
	txn, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !auth.CanAct(caller, auth.ResourceTransaction, auth.ActionRead, txn.UserID) {
		return core.Transaction{}, core.ErrForbidden
	}
	return txn, nil
}

func (s *TransactionService) Update(ctx context.Context, caller *auth.Identity, id int64, p UpdateTransactionParams) (core.Transaction, error) {
	txn, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !auth.CanAct(caller, auth.ResourceTransaction, auth.ActionUpdate, txn.UserID) {
		return core.Transaction{}, core.ErrForbidden
	}

	if p.Amount != nil {
		txn.Amount = *p.Amount
	}
	if p.Type != nil {
		txn.Type = *p.Type
	}
	if p.CategoryID != nil {
		txn.CategoryID = p.CategoryID
	}
	if p.Description != nil {
		txn.Description = *p.Description
	}
	if p.Notes != nil {
		txn.Notes = *p.Notes
	}
	if p.Date != nil {
		txn.Date = *p.Date
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if p.CategoryID != nil {
		if err := s.checkCategory(ctx, txn.CategoryID); err != nil {
			return core.Transaction{}, err
		}
	}

	updated, err := s.storage.UpdateTransaction(ctx, txn)
	if err != nil {
		return core.Transaction{}, err
	}

	s.invalidateAnalytics(ctx, updated.UserID)
	s.publishEvent(ctx, amqp.EventUpdated, updated)

	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldTxnID, updated.ID,
		log.FieldUserID, updated.UserID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, caller *auth.Identity, id int64) error {
	txn, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanAct(caller, auth.ResourceTransaction, auth.ActionDelete, txn.UserID) {
		return core.ErrForbidden
	}

	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.invalidateAnalytics(ctx, txn.UserID)
	s.publishEvent(ctx, amqp.EventDeleted, txn)

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTxnID, id,
		log.FieldUserID, txn.UserID)
	return nil
}

func (s *TransactionService) checkCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	exists, err := s.storage.CategoryExists(ctx, *categoryID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: category %d does not exist", core.ErrInvalidCategory, *categoryID)
	}
	return nil
}

// invalidateAnalytics drops the analytics cache entry of the transaction
// owner, which may differ from the caller when an admin mutates another
// user's record.
func (s *TransactionService) invalidateAnalytics(ctx context.Context, ownerID int64) {
	s.cache.Delete(ctx, cache.AnalyticsKey(ownerID))
}

func (s *TransactionService) publishEvent(ctx context.Context, action string, txn core.Transaction) {
	if s.events == nil {
		return
	}
	msg := amqp.NewTransactionEvent(action, txn.ID, txn.UserID, txn.Amount.Cents, string(txn.Type))
	if err := s.events.PublishTransactionEvent(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldTxnID, txn.ID,
			log.FieldError, err)
	}
}
