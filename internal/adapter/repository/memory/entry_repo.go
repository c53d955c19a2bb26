package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create stages an entry.
func (r *EntryRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	row := *entry

	return t.stage(func(s *Store) {
		s.entries = append(s.entries, &row)
	})
}

// GetByTransaction lists entries written by a transaction.
func (r *EntryRepository) GetByTransaction(_ context.Context, transactionID string) ([]*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entries []*domain.Entry
	for _, e := range r.store.entries {
		if e.TransactionID == transactionID {
			c := *e
			entries = append(entries, &c)
		}
	}

	return entries, nil
}

// GetByAccount lists an account's entries newest first.
func (r *EntryRepository) GetByAccount(_ context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]*domain.Entry, 0, limit)
	skipped := 0

	// Entries are appended in commit order.
	for i := len(r.store.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		e := r.store.entries[i]
		if e.AccountID != accountID {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		c := *e
		entries = append(entries, &c)
	}

	return entries, nil
}

// GetBalanceAtTime returns the balance after the last entry at or before at.
func (r *EntryRepository) GetBalanceAtTime(_ context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for i := len(r.store.entries) - 1; i >= 0; i-- {
		e := r.store.entries[i]
		if e.AccountID == accountID && !e.CreatedAt.After(at) {
			return e.AccountCurrentBalance, nil
		}
	}

	return decimal.Zero, nil
}
