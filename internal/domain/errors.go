package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the parent of every lookup miss.
var ErrNotFound = errors.New("not found")

var (
	// Account errors
	ErrAccountNotFound         = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountNotActive        = errors.New("account is not active")
	ErrAccountNotEmpty         = errors.New("account balance must be zero")
	ErrAccountNumberTaken      = errors.New("account number already in use")
	ErrInvalidStatusTransition = errors.New("invalid account status transition")
	ErrInsufficientFunds       = errors.New("insufficient funds")

	// Transaction errors
	ErrTransactionNotFound     = fmt.Errorf("transaction %w", ErrNotFound)
	ErrSameAccount             = errors.New("cannot transfer to same account")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrCurrencyMismatch        = errors.New("cannot transfer between different currencies")
	ErrDestinationNotFound     = errors.New("destination not found")
	ErrInvalidTransactionState = errors.New("invalid transaction state transition")
	ErrInvalidIdempotencyKey   = errors.New("invalid idempotency key")
	ErrDuplicateRequest        = errors.New("duplicate request for idempotency key")
	ErrIdempotencyKeyExists    = errors.New("idempotency key already recorded")
	ErrLockTimeout             = errors.New("timed out waiting for account lock")
	ErrInvalidCursor           = errors.New("invalid cursor")

	// ErrForbidden is returned when the caller does not own the account it acts on.
	ErrForbidden = errors.New("operation not permitted for caller")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Failure codes persisted on FAILED transactions.
const (
	FailureInsufficientFunds = "insufficient_funds"
	FailureAccountNotActive  = "account_not_active"
	FailureCurrencyMismatch  = "currency_mismatch"
)

var failureErrors = map[string]error{
	FailureInsufficientFunds: ErrInsufficientFunds,
	FailureAccountNotActive:  ErrAccountNotActive,
	FailureCurrencyMismatch:  ErrCurrencyMismatch,
}

// FailureCode returns the persisted code for a business failure, or "" if err is not one.
func FailureCode(err error) string {
	for code, sentinel := range failureErrors {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return ""
}

// FailureError returns the sentinel for a persisted failure code.
func FailureError(code string) error {
	if err, ok := failureErrors[code]; ok {
		return err
	}

	return errors.New("transaction failed: " + code)
}
