package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags on a request.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}

	return &ValidationError{Fields: msgs}
}

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// OpenAccountRequest represents a request to open an account.
type OpenAccountRequest struct {
	OwnerID       string `json:"owner_id" validate:"required,max=128"`
	Currency      string `json:"currency" validate:"omitempty,len=3,alpha"`
	AccountNumber string `json:"account_number" validate:"omitempty,numeric,min=6,max=34"`
}

// ToUseCaseInput converts to use case input.
func (r *OpenAccountRequest) ToUseCaseInput() usecase.OpenAccountInput {
	return usecase.OpenAccountInput{
		OwnerID:       r.OwnerID,
		Currency:      r.Currency,
		AccountNumber: r.AccountNumber,
	}
}

// MoneyRequest holds the fields shared by all money movements.
// Amount is a decimal string so clients never round-trip floats.
type MoneyRequest struct {
	Amount         string `json:"amount" validate:"required"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=255"`
	Category       string `json:"category" validate:"omitempty,max=64"`
	Description    string `json:"description" validate:"omitempty,max=512"`
}

// WithKey fills IdempotencyKey from the header value when the body has none.
func (r *MoneyRequest) WithKey(headerKey string) {
	if r.IdempotencyKey == "" {
		r.IdempotencyKey = headerKey
	}
}

// TransferRequest moves money to an account number, account ID or external payee.
type TransferRequest struct {
	SourceAccountID string `json:"source_account_id" validate:"required"`
	Destination     string `json:"destination" validate:"required"`
	MoneyRequest
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() (usecase.TransferInput, error) {
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return usecase.TransferInput{}, err
	}

	return usecase.TransferInput{
		SourceAccountID: r.SourceAccountID,
		Destination:     r.Destination,
		Amount:          amount,
		IdempotencyKey:  r.IdempotencyKey,
		Category:        r.Category,
		Description:     r.Description,
	}, nil
}

// DepositRequest credits an account from outside the ledger.
type DepositRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	MoneyRequest
}

// ToUseCaseInput converts to use case input.
func (r *DepositRequest) ToUseCaseInput() (usecase.DepositInput, error) {
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return usecase.DepositInput{}, err
	}

	return usecase.DepositInput{
		AccountID:      r.AccountID,
		Amount:         amount,
		IdempotencyKey: r.IdempotencyKey,
		Category:       r.Category,
		Description:    r.Description,
	}, nil
}

// WithdrawRequest debits an account to outside the ledger.
type WithdrawRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	MoneyRequest
}

// ToUseCaseInput converts to use case input.
func (r *WithdrawRequest) ToUseCaseInput() (usecase.WithdrawInput, error) {
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return usecase.WithdrawInput{}, err
	}

	return usecase.WithdrawInput{
		AccountID:      r.AccountID,
		Amount:         amount,
		IdempotencyKey: r.IdempotencyKey,
		Category:       r.Category,
		Description:    r.Description,
	}, nil
}

// PaymentRequest pays an external payee.
type PaymentRequest struct {
	SourceAccountID string `json:"source_account_id" validate:"required"`
	Payee           string `json:"payee" validate:"required,max=255"`
	MoneyRequest
}

// ToUseCaseInput converts to use case input.
func (r *PaymentRequest) ToUseCaseInput() (usecase.PaymentInput, error) {
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return usecase.PaymentInput{}, err
	}

	return usecase.PaymentInput{
		SourceAccountID: r.SourceAccountID,
		Payee:           r.Payee,
		Amount:          amount,
		IdempotencyKey:  r.IdempotencyKey,
		Category:        r.Category,
		Description:     r.Description,
	}, nil
}
