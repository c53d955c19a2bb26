package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	GetEntriesByAccount(ctx context.Context, input usecase.GetEntriesByAccountInput) ([]*domain.Entry, error)
	GetEntriesByTransaction(ctx context.Context, transactionID string) ([]*domain.Entry, error)
	GetHistoricalBalance(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC EntryService
	now     func() time.Time
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC, now: time.Now}
}

// ListByAccount lists entries for an account.
func (h *EntryHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing account ID", "")
		return
	}

	entries, err := h.entryUC.GetEntriesByAccount(r.Context(), usecase.GetEntriesByAccountInput{
		AccountID: accountID,
		Limit:     parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, err, "failed to list entries", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// ListByTransaction lists entries posted by a transaction.
func (h *EntryHandler) ListByTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing transaction ID", "")
		return
	}

	entries, err := h.entryUC.GetEntriesByTransaction(r.Context(), transactionID)
	if err != nil {
		writeDomainError(w, r, err, "failed to list entries", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// GetHistoricalBalance gets the balance at a specific time; "at" defaults to now.
func (h *EntryHandler) GetHistoricalBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing account ID", "")
		return
	}

	at := h.now().UTC()
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid 'at' format (use RFC3339)", err.Error())
			return
		}
		at = parsed
	}

	balance, err := h.entryUC.GetHistoricalBalance(r.Context(), accountID, at)
	if err != nil {
		writeDomainError(w, r, err, "failed to get historical balance", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		AccountID: accountID,
		Balance:   balance,
		At:        at,
	})
}
