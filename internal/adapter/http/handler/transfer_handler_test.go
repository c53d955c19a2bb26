package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type moneyServiceStub struct {
	transferFn func(ctx context.Context, input usecase.TransferInput) (*domain.Transaction, error)
	depositFn  func(ctx context.Context, input usecase.DepositInput) (*domain.Transaction, error)
	withdrawFn func(ctx context.Context, input usecase.WithdrawInput) (*domain.Transaction, error)
	payFn      func(ctx context.Context, input usecase.PaymentInput) (*domain.Transaction, error)
	getFn      func(ctx context.Context, id string) (*domain.Transaction, error)
}

func (s *moneyServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) (*domain.Transaction, error) {
	return s.transferFn(ctx, input)
}

func (s *moneyServiceStub) Deposit(ctx context.Context, input usecase.DepositInput) (*domain.Transaction, error) {
	return s.depositFn(ctx, input)
}

func (s *moneyServiceStub) Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.Transaction, error) {
	return s.withdrawFn(ctx, input)
}

func (s *moneyServiceStub) Pay(ctx context.Context, input usecase.PaymentInput) (*domain.Transaction, error) {
	return s.payFn(ctx, input)
}

func (s *moneyServiceStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func completedTransaction(txType domain.TransactionType) *domain.Transaction {
	src, dst := "acc-a", "acc-b"
	return &domain.Transaction{
		ID:                   "tx-1",
		IdempotencyKey:       "key-1",
		Type:                 txType,
		Status:               domain.TransactionStatusCompleted,
		SourceAccountID:      &src,
		DestinationAccountID: &dst,
		Amount:               decimal.NewFromInt(100),
		Currency:             "INR",
	}
}

func TestTransferHandler_Transfer_Success(t *testing.T) {
	var captured usecase.TransferInput
	handler := NewTransferHandler(&moneyServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transaction, error) {
			captured = input
			return completedTransaction(domain.TransactionTypeTransfer), nil
		},
	})

	body, _ := json.Marshal(dto.TransferRequest{
		SourceAccountID: "acc-a",
		Destination:     "123456789012",
		MoneyRequest:    dto.MoneyRequest{Amount: "100", IdempotencyKey: "key-1"},
	})

	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Transfer(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.SourceAccountID != "acc-a" || captured.Destination != "123456789012" ||
		!captured.Amount.Equal(decimal.NewFromInt(100)) || captured.IdempotencyKey != "key-1" {
		t.Fatalf("unexpected input: %+v", captured)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %+v", resp)
	}
}

func TestTransferHandler_Transfer_HeaderKey(t *testing.T) {
	var captured usecase.TransferInput
	handler := NewTransferHandler(&moneyServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transaction, error) {
			captured = input
			return completedTransaction(domain.TransactionTypeTransfer), nil
		},
	})

	body := `{"source_account_id":"acc-a","destination":"acc-b","amount":"5"}`
	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body))
	req = req.WithContext(middleware.WithIdempotencyKey(req.Context(), "header-key"))
	rec := httptest.NewRecorder()

	handler.Transfer(rec, req)

	if captured.IdempotencyKey != "header-key" {
		t.Fatalf("expected header key to be used, got %q", captured.IdempotencyKey)
	}
}

func TestTransferHandler_Transfer_FailedReturnsTransaction(t *testing.T) {
	handler := NewTransferHandler(&moneyServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transaction, error) {
			txn := completedTransaction(domain.TransactionTypeTransfer)
			txn.Status = domain.TransactionStatusFailed
			txn.FailureCode = domain.FailureInsufficientFunds
			return txn, domain.ErrInsufficientFunds
		},
	})

	body := `{"source_account_id":"acc-a","destination":"acc-b","amount":"500","idempotency_key":"k"}`
	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Transfer(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Transaction == nil || resp.Transaction.FailureCode != domain.FailureInsufficientFunds {
		t.Fatalf("expected failed transaction in response, got %+v", resp)
	}
}

func TestTransferHandler_InvalidAmount(t *testing.T) {
	handler := NewTransferHandler(&moneyServiceStub{
		depositFn: func(ctx context.Context, input usecase.DepositInput) (*domain.Transaction, error) {
			t.Fatal("Deposit should not be called for an invalid amount")
			return nil, nil
		},
	})

	body := `{"account_id":"acc-a","amount":"1.234","idempotency_key":"k"}`
	req := httptest.NewRequest(http.MethodPost, "/deposits", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Deposit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransferHandler_DepositWithdrawPay(t *testing.T) {
	handler := NewTransferHandler(&moneyServiceStub{
		depositFn: func(ctx context.Context, input usecase.DepositInput) (*domain.Transaction, error) {
			return completedTransaction(domain.TransactionTypeDeposit), nil
		},
		withdrawFn: func(ctx context.Context, input usecase.WithdrawInput) (*domain.Transaction, error) {
			return nil, domain.ErrLockTimeout
		},
		payFn: func(ctx context.Context, input usecase.PaymentInput) (*domain.Transaction, error) {
			if input.Payee != "UPI-shop" {
				t.Fatalf("unexpected payee %q", input.Payee)
			}
			return completedTransaction(domain.TransactionTypePayment), nil
		},
	})

	tests := []struct {
		name       string
		call       http.HandlerFunc
		body       string
		wantStatus int
	}{
		{"deposit", handler.Deposit, `{"account_id":"acc-a","amount":"10","idempotency_key":"k1"}`, http.StatusCreated},
		{"withdraw lock timeout", handler.Withdraw, `{"account_id":"acc-a","amount":"10","idempotency_key":"k2"}`, http.StatusServiceUnavailable},
		{"pay", handler.Pay, `{"source_account_id":"acc-a","payee":"UPI-shop","amount":"10","idempotency_key":"k3"}`, http.StatusCreated},
		{"pay missing payee", handler.Pay, `{"source_account_id":"acc-a","amount":"10"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			tt.call(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTransferHandler_GetTransaction(t *testing.T) {
	handler := NewTransferHandler(&moneyServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
			if id == "missing" {
				return nil, domain.ErrTransactionNotFound
			}
			return completedTransaction(domain.TransactionTypeTransfer), nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/transactions/tx-1", nil), "id", "tx-1")
	rec := httptest.NewRecorder()
	handler.GetTransaction(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = setChiURLParam(httptest.NewRequest(http.MethodGet, "/transactions/missing", nil), "id", "missing")
	rec = httptest.NewRecorder()
	handler.GetTransaction(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
