package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestTransaction_StateTransitions(t *testing.T) {
	t.Parallel()

	t.Run("pending to completed", func(t *testing.T) {
		tx := &Transaction{Status: TransactionStatusPending}
		if err := tx.Complete(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !tx.IsFinal() || tx.Err() != nil {
			t.Fatalf("expected final completed transaction, got %s", tx.Status)
		}
	})

	t.Run("pending to failed keeps reason", func(t *testing.T) {
		tx := &Transaction{Status: TransactionStatusPending}
		if err := tx.Fail(ErrInsufficientFunds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if tx.FailureCode != FailureInsufficientFunds {
			t.Fatalf("expected failure code %q, got %q", FailureInsufficientFunds, tx.FailureCode)
		}

		if !errors.Is(tx.Err(), ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", tx.Err())
		}
	})

	t.Run("final transactions are immutable", func(t *testing.T) {
		completed := &Transaction{Status: TransactionStatusCompleted}
		if err := completed.Fail(ErrAccountNotActive); !errors.Is(err, ErrInvalidTransactionState) {
			t.Fatalf("expected ErrInvalidTransactionState, got %v", err)
		}

		failed := &Transaction{Status: TransactionStatusFailed}
		if err := failed.Complete(); !errors.Is(err, ErrInvalidTransactionState) {
			t.Fatalf("expected ErrInvalidTransactionState, got %v", err)
		}
	})
}

func TestTransaction_SignedAmountFor(t *testing.T) {
	t.Parallel()

	amount := decimal.RequireFromString("300.00")
	transfer := &Transaction{
		Status:               TransactionStatusCompleted,
		SourceAccountID:      strPtr("a"),
		DestinationAccountID: strPtr("b"),
		Amount:               amount,
	}

	if got := transfer.SignedAmountFor("a"); !got.Equal(amount.Neg()) {
		t.Errorf("source effect: expected -300, got %s", got)
	}

	if got := transfer.SignedAmountFor("b"); !got.Equal(amount) {
		t.Errorf("destination effect: expected 300, got %s", got)
	}

	if got := transfer.SignedAmountFor("c"); !got.IsZero() {
		t.Errorf("unrelated account: expected 0, got %s", got)
	}

	failed := *transfer
	failed.Status = TransactionStatusFailed
	if got := failed.SignedAmountFor("a"); !got.IsZero() {
		t.Errorf("failed transaction must not count, got %s", got)
	}

	if !transfer.Involves("a") || !transfer.Involves("b") || transfer.Involves("c") {
		t.Errorf("unexpected Involves result")
	}
}

func TestFingerprint_Matches(t *testing.T) {
	t.Parallel()

	base := (&Transaction{
		Type:                 TransactionTypeTransfer,
		SourceAccountID:      strPtr("a"),
		DestinationAccountID: strPtr("b"),
		Amount:               decimal.RequireFromString("10.00"),
	}).Fingerprint()

	same := base
	same.Amount = decimal.RequireFromString("10")
	if !base.Matches(same) {
		t.Errorf("expected equal amounts with different scale to match")
	}

	otherAmount := base
	otherAmount.Amount = decimal.RequireFromString("11")
	if base.Matches(otherAmount) {
		t.Errorf("expected different amount to mismatch")
	}

	otherDest := base
	otherDest.DestinationAccountID = "c"
	if base.Matches(otherDest) {
		t.Errorf("expected different destination to mismatch")
	}
}

func TestFailureCodeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, sentinel := range []error{ErrInsufficientFunds, ErrAccountNotActive, ErrCurrencyMismatch} {
		code := FailureCode(sentinel)
		if code == "" {
			t.Fatalf("no code for %v", sentinel)
		}

		if !errors.Is(FailureError(code), sentinel) {
			t.Fatalf("code %q does not map back to %v", code, sentinel)
		}
	}

	if FailureCode(ErrLockTimeout) != "" {
		t.Fatalf("lock timeout is not a recorded failure")
	}

	if !errors.Is(ErrAccountNotFound, ErrNotFound) || !errors.Is(ErrTransactionNotFound, ErrNotFound) {
		t.Fatalf("lookup misses must match ErrNotFound")
	}
}
