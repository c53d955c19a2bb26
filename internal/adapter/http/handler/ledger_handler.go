package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/usecase"
)

// LedgerService checks conservation across the whole ledger.
type LedgerService interface {
	CheckConsistency(ctx context.Context) (usecase.LedgerTotals, error)
}

// ReconciliationService compares balances with the transaction log.
type ReconciliationService interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	ledgerUC         LedgerService
	reconciliationUC ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService, reconciliationUC ReconciliationService) *LedgerHandler {
	return &LedgerHandler{
		ledgerUC:         ledgerUC,
		reconciliationUC: reconciliationUC,
	}
}

// CheckConsistency checks if the ledger is consistent.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	totals, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) {
			writeJSON(w, http.StatusConflict, dto.ConsistencyFromTotals(totals, false))
			return
		}
		writeDomainError(w, r, err, "failed to check consistency", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromTotals(totals, true))
}

// Report runs reconciliation over every account.
func (h *LedgerHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "failed to reconcile ledger", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportFromDomain(report))
}

// ReconcileAccount reconciles a single account.
func (h *LedgerHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing account ID", "")
		return
	}

	result, err := h.reconciliationUC.ReconcileAccount(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, r, err, "failed to reconcile account", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}
