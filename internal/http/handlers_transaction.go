package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"finledger/internal/core"
	"finledger/internal/services"
)

type transactionRequest struct {
	Amount      *core.Money           `json:"amount"`
	Type        *core.TransactionType `json:"type"`
	CategoryID  *int64                `json:"categoryId"`
	Description *string               `json:"description"`
	Notes       *string               `json:"notes"`
	Date        *core.Date            `json:"date"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.Amount == nil || req.Type == nil {
		s.writeError(w, r, core.ErrMissingFields)
		return
	}

	params := services.CreateTransactionParams{
		Amount:     *req.Amount,
		Type:       *req.Type,
		CategoryID: req.CategoryID,
		Date:       req.Date,
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.Notes != nil {
		params.Notes = *req.Notes
	}

	txn, err := s.transactionService.Create(r.Context(), identityFrom(r.Context()), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := services.ListTransactionParams{
		Query:      strings.TrimSpace(q.Get("q")),
		CategoryID: queryInt64Ptr(r, "categoryId"),
		Type:       core.TransactionType(strings.TrimSpace(q.Get("type"))),
		SortBy:     strings.TrimSpace(q.Get("sortBy")),
		SortDir:    strings.TrimSpace(q.Get("sortDir")),
		Page:       queryInt(r, "page"),
		PerPage:    queryInt(r, "perPage"),
	}

	if v := strings.TrimSpace(q.Get("minAmount")); v != "" {
		if cents, err := core.ParseDecimalToCents(v); err == nil {
			params.MinCents = &cents
		}
	}
	if v := strings.TrimSpace(q.Get("maxAmount")); v != "" {
		if cents, err := core.ParseDecimalToCents(v); err == nil {
			params.MaxCents = &cents
		}
	}
	if v := strings.TrimSpace(q.Get("dateFrom")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			params.DateFrom = &d
		}
	}
	if v := strings.TrimSpace(q.Get("dateTo")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			params.DateTo = &d
		}
	}

	txns, meta, err := s.transactionService.List(r.Context(), identityFrom(r.Context()), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: txns, Meta: meta})
}

// handleTransactionStats serves the cached analytics snapshot. Admins may
// target another user via the userId query parameter.
func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	var targetUserID int64
	if v := queryInt64Ptr(r, "userId"); v != nil {
		targetUserID = *v
	}

	snap, cached, err := s.analyticsService.Snapshot(r.Context(), identityFrom(r.Context()), targetUserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cachedResponse{Data: snap, Cached: cached})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, core.ErrNotFound)
		return
	}

	txn, err := s.transactionService.Get(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, core.ErrNotFound)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	txn, err := s.transactionService.Update(r.Context(), identityFrom(r.Context()), id, services.UpdateTransactionParams{
		Amount:      req.Amount,
		Type:        req.Type,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Notes:       req.Notes,
		Date:        req.Date,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, core.ErrNotFound)
		return
	}

	if err := s.transactionService.Delete(r.Context(), identityFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
