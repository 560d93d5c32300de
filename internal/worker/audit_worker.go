// Package worker holds the audit consumer for the transaction event stream.
package worker

import (
	"context"
	"errors"
	"fmt"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// AuditWorker consumes transaction events and writes a structured audit
// trail. Deleted transactions are logged from the message alone since the
// row is already gone.
type AuditWorker struct {
	storage *storage.SQLiteRepository
	logger  *log.Logger
}

func NewAuditWorker(storage *storage.SQLiteRepository, logger *log.Logger) *AuditWorker {
	return &AuditWorker{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single transaction event.
func (w *AuditWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	if msg.Action == amqp.EventDeleted {
		w.logger.InfoContext(ctx, "Transaction deleted",
			log.FieldTxnID, msg.TransactionID,
			log.FieldUserID, msg.UserID,
			log.FieldAmountCents, msg.AmountCents,
			log.FieldTxnType, msg.Type)
		return nil
	}

	txn, err := w.storage.GetTransaction(ctx, msg.TransactionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Row removed between publish and consume; nothing to audit.
			w.logger.WarnContext(ctx, "Transaction gone before audit",
				log.FieldTxnID, msg.TransactionID)
			return nil
		}
		return fmt.Errorf("get transaction for audit: %w", err)
	}

	w.logger.InfoContext(ctx, "Transaction "+msg.Action,
		log.FieldTxnID, txn.ID,
		log.FieldUserID, txn.UserID,
		log.FieldAmountCents, txn.Amount.Cents,
		log.FieldTxnType, string(txn.Type),
		"date", txn.Date.String())
	return nil
}
