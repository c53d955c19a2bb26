package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type ledgerServiceStub struct {
	totals usecase.LedgerTotals
	err    error
}

func (s *ledgerServiceStub) CheckConsistency(ctx context.Context) (usecase.LedgerTotals, error) {
	return s.totals, s.err
}

type reconciliationServiceStub struct {
	result *usecase.ReconciliationResult
	report *usecase.ReconciliationReport
	err    error
}

func (s *reconciliationServiceStub) ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error) {
	return s.result, s.err
}

func (s *reconciliationServiceStub) GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error) {
	return s.report, s.err
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	totals := usecase.LedgerTotals{TotalBalance: decimal.NewFromInt(10), NetExternalFlow: decimal.NewFromInt(10)}

	tests := []struct {
		name       string
		stub       *ledgerServiceStub
		wantStatus int
		consistent bool
	}{
		{"consistent", &ledgerServiceStub{totals: totals}, http.StatusOK, true},
		{"inconsistent", &ledgerServiceStub{totals: totals, err: fmt.Errorf("%w: drift", usecase.ErrInconsistentLedger)}, http.StatusConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewLedgerHandler(tt.stub, &reconciliationServiceStub{})

			rec := httptest.NewRecorder()
			handler.CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			var resp dto.LedgerConsistencyResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Consistent != tt.consistent {
				t.Fatalf("expected consistent=%v, got %+v", tt.consistent, resp)
			}
		})
	}

	handler := NewLedgerHandler(&ledgerServiceStub{err: errors.New("db down")}, &reconciliationServiceStub{})
	rec := httptest.NewRecorder()
	handler.CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestLedgerHandler_Reconciliation(t *testing.T) {
	recon := &reconciliationServiceStub{
		result: &usecase.ReconciliationResult{AccountID: "acc-1", IsReconciled: true, LastChecked: time.Now()},
		report: &usecase.ReconciliationReport{TotalAccounts: 3, ReconciledAccounts: 3, LedgerConsistent: true},
	}
	handler := NewLedgerHandler(&ledgerServiceStub{}, recon)

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/reconciliation", nil), "id", "acc-1")
	rec := httptest.NewRecorder()
	handler.ReconcileAccount(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Report(rec, httptest.NewRequest(http.MethodGet, "/ledger/reconciliation", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var report dto.ReconciliationReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.TotalAccounts != 3 || !report.Ledger.Consistent {
		t.Fatalf("unexpected report: %+v", report)
	}

	recon.err = domain.ErrAccountNotFound
	req = setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/x/reconciliation", nil), "id", "x")
	rec = httptest.NewRecorder()
	handler.ReconcileAccount(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
