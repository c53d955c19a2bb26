package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger operations.
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypePayment    TransactionType = "PAYMENT"
)

// TransactionStatus is the state of a ledger operation.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is the immutable record of one ledger operation.
type Transaction struct {
	CreatedAt            time.Time
	SourceAccountID      *string
	DestinationAccountID *string
	ID                   string
	IdempotencyKey       string
	Type                 TransactionType
	Status               TransactionStatus
	ExternalDestination  string
	Currency             string
	Category             string
	Description          string
	FailureCode          string
	Amount               decimal.Decimal
}

// Complete moves a pending transaction to COMPLETED.
func (t *Transaction) Complete() error {
	if t.Status != TransactionStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransactionState, t.Status, TransactionStatusCompleted)
	}

	t.Status = TransactionStatusCompleted

	return nil
}

// Fail moves a pending transaction to FAILED and records why.
func (t *Transaction) Fail(reason error) error {
	if t.Status != TransactionStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransactionState, t.Status, TransactionStatusFailed)
	}

	t.Status = TransactionStatusFailed
	t.FailureCode = FailureCode(reason)

	return nil
}

// IsFinal reports whether the transaction can no longer change.
func (t *Transaction) IsFinal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// Err returns the business error recorded on a FAILED transaction.
func (t *Transaction) Err() error {
	if t.Status != TransactionStatusFailed {
		return nil
	}

	return FailureError(t.FailureCode)
}

// Involves reports whether accountID is the source or destination.
func (t *Transaction) Involves(accountID string) bool {
	return (t.SourceAccountID != nil && *t.SourceAccountID == accountID) ||
		(t.DestinationAccountID != nil && *t.DestinationAccountID == accountID)
}

// SignedAmountFor returns the balance effect of a completed transaction on accountID.
func (t *Transaction) SignedAmountFor(accountID string) decimal.Decimal {
	if t.Status != TransactionStatusCompleted {
		return decimal.Zero
	}

	effect := decimal.Zero
	if t.DestinationAccountID != nil && *t.DestinationAccountID == accountID {
		effect = effect.Add(t.Amount)
	}

	if t.SourceAccountID != nil && *t.SourceAccountID == accountID {
		effect = effect.Sub(t.Amount)
	}

	return effect
}

// Fingerprint identifies the parameters a request was made with.
type Fingerprint struct {
	Type                 TransactionType
	SourceAccountID      string
	DestinationAccountID string
	ExternalDestination  string
	Amount               decimal.Decimal
}

// Fingerprint returns the request parameters recorded on the transaction.
func (t *Transaction) Fingerprint() Fingerprint {
	return Fingerprint{
		Type:                 t.Type,
		SourceAccountID:      deref(t.SourceAccountID),
		DestinationAccountID: deref(t.DestinationAccountID),
		ExternalDestination:  t.ExternalDestination,
		Amount:               t.Amount,
	}
}

// Matches reports whether two fingerprints describe the same request.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Type == other.Type &&
		f.SourceAccountID == other.SourceAccountID &&
		f.DestinationAccountID == other.DestinationAccountID &&
		f.ExternalDestination == other.ExternalDestination &&
		f.Amount.Equal(other.Amount)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
