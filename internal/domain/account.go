package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusFrozen AccountStatus = "FROZEN"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// AccountNumberLength is the number of digits in a generated account number.
const AccountNumberLength = 12

// Account holds a customer balance. Balance is only changed by ledger operations.
type Account struct {
	ID            string
	OwnerID       string
	AccountNumber string
	Currency      string
	Balance       decimal.Decimal
	Status        AccountStatus
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the account accepts balance mutations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if !a.IsActive() {
		return fmt.Errorf("%w: account %s is %s", ErrAccountNotActive, a.ID, a.Status)
	}

	if a.Balance.LessThan(amount) {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, a.Balance.StringFixed(2), amount.StringFixed(2))
	}

	return nil
}

// ValidateCredit checks if account can be credited.
func (a *Account) ValidateCredit() error {
	if !a.IsActive() {
		return fmt.Errorf("%w: account %s is %s", ErrAccountNotActive, a.ID, a.Status)
	}

	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// ValidateTransition checks whether the account may move to the given status.
func (a *Account) ValidateTransition(to AccountStatus) error {
	switch {
	case a.Status == AccountStatusClosed:
		return fmt.Errorf("%w: account %s is closed", ErrInvalidStatusTransition, a.ID)
	case a.Status == to:
		return fmt.Errorf("%w: account %s is already %s", ErrInvalidStatusTransition, a.ID, to)
	}

	switch to {
	case AccountStatusActive, AccountStatusFrozen:
		return nil
	case AccountStatusClosed:
		if !a.Balance.IsZero() {
			return fmt.Errorf("%w: balance is %s", ErrAccountNotEmpty, a.Balance.StringFixed(2))
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, to)
	}
}

// GenerateAccountNumber returns a random numeric account number with a non-zero leading digit.
func GenerateAccountNumber() (string, error) {
	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(AccountNumberLength-1), nil)
	n, err := rand.Int(rand.Reader, new(big.Int).Mul(upper, big.NewInt(9)))
	if err != nil {
		return "", fmt.Errorf("generate account number: %w", err)
	}

	return n.Add(n, upper).String(), nil
}
