package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{
		queries: generated.New(db),
	}
}

// Create creates a new entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	err = queries.CreateEntry(ctx, generated.CreateEntryParams{
		ID:                     entry.ID,
		AccountID:              entry.AccountID,
		TransactionID:          entry.TransactionID,
		Amount:                 decimalToNumeric(entry.Amount),
		AccountPreviousBalance: decimalToNumeric(entry.AccountPreviousBalance),
		AccountCurrentBalance:  decimalToNumeric(entry.AccountCurrentBalance),
		AccountVersion:         entry.AccountVersion,
		CreatedAt:              timeToPgTimestamptz(entry.CreatedAt),
	})

	return mapError(err, nil)
}

// GetByTransaction retrieves entries by transaction ID.
func (r *EntryRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.Entry, error) {
	rows, err := r.queries.GetEntriesByTransaction(ctx, transactionID)
	if err != nil {
		return nil, mapError(err, nil)
	}

	return rowsToEntries(rows), nil
}

// GetByAccount retrieves entries by account ID, newest first.
func (r *EntryRepository) GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.queries.GetEntriesByAccount(ctx, generated.GetEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, mapError(err, nil)
	}

	return rowsToEntries(rows), nil
}

// GetBalanceAtTime returns the balance after the last entry at or before at.
// An account with no entries by then had a zero balance.
func (r *EntryRepository) GetBalanceAtTime(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	balance, err := r.queries.GetBalanceAtTime(ctx, generated.GetBalanceAtTimeParams{
		AccountID: accountID,
		CreatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}

		return decimal.Zero, mapError(err, nil)
	}

	return numericToDecimal(balance), nil
}

func rowsToEntries(rows []generated.Entry) []*domain.Entry {
	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.Entry{
			ID:                     row.ID,
			AccountID:              row.AccountID,
			TransactionID:          row.TransactionID,
			Amount:                 numericToDecimal(row.Amount),
			AccountPreviousBalance: numericToDecimal(row.AccountPreviousBalance),
			AccountCurrentBalance:  numericToDecimal(row.AccountCurrentBalance),
			AccountVersion:         row.AccountVersion,
			CreatedAt:              row.CreatedAt.Time,
		})
	}

	return entries
}
