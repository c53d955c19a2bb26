package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// MoneyService defines the behavior needed by TransferHandler.
// A business failure returns the FAILED transaction together with the error.
type MoneyService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*domain.Transaction, error)
	Deposit(ctx context.Context, input usecase.DepositInput) (*domain.Transaction, error)
	Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.Transaction, error)
	Pay(ctx context.Context, input usecase.PaymentInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
}

// TransferHandler handles money movement HTTP requests.
type TransferHandler struct {
	transferUC MoneyService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC MoneyService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC}
}

// Transfer moves money between accounts or to an external payee.
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, "invalid request body", nil)
		return
	}
	req.WithKey(middleware.IdempotencyKeyFromContext(r.Context()))

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err, "invalid amount", nil)
		return
	}

	txn, err := h.transferUC.Transfer(r.Context(), input)
	h.respond(w, r, txn, err, "transfer failed")
}

// Deposit credits an account.
func (h *TransferHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, "invalid request body", nil)
		return
	}
	req.WithKey(middleware.IdempotencyKeyFromContext(r.Context()))

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err, "invalid amount", nil)
		return
	}

	txn, err := h.transferUC.Deposit(r.Context(), input)
	h.respond(w, r, txn, err, "deposit failed")
}

// Withdraw debits an account.
func (h *TransferHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, "invalid request body", nil)
		return
	}
	req.WithKey(middleware.IdempotencyKeyFromContext(r.Context()))

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err, "invalid amount", nil)
		return
	}

	txn, err := h.transferUC.Withdraw(r.Context(), input)
	h.respond(w, r, txn, err, "withdrawal failed")
}

// Pay sends money to an external payee.
func (h *TransferHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, "invalid request body", nil)
		return
	}
	req.WithKey(middleware.IdempotencyKeyFromContext(r.Context()))

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err, "invalid amount", nil)
		return
	}

	txn, err := h.transferUC.Pay(r.Context(), input)
	h.respond(w, r, txn, err, "payment failed")
}

// GetTransaction retrieves a transaction by ID.
func (h *TransferHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.transferUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, "failed to get transaction", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

func (h *TransferHandler) respond(w http.ResponseWriter, r *http.Request, txn *domain.Transaction, err error, message string) {
	if err != nil {
		writeDomainError(w, r, err, message, txn)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}
