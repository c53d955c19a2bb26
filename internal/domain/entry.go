package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is the balance snapshot of one account touched by one transaction.
type Entry struct {
	CreatedAt              time.Time
	ID                     string
	AccountID              string
	TransactionID          string
	Amount                 decimal.Decimal
	AccountPreviousBalance decimal.Decimal
	AccountCurrentBalance  decimal.Decimal
	AccountVersion         int64
}
