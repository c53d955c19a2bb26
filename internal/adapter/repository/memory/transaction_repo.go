package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create stages a final transaction.
func (r *TransactionRepository) Create(_ context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	if !t.IsFinal() {
		return fmt.Errorf("%w: cannot persist %s transaction", domain.ErrInvalidTransactionState, t.Status)
	}

	r.store.mu.RLock()
	_, exists := r.store.byKey[t.IdempotencyKey]
	r.store.mu.RUnlock()

	if _, staged := mtx.keys[t.IdempotencyKey]; exists || staged {
		return fmt.Errorf("%w: %s", domain.ErrIdempotencyKeyExists, t.IdempotencyKey)
	}

	row := cloneTransaction(t)
	mtx.keys[row.IdempotencyKey] = row

	return mtx.stage(func(s *Store) {
		s.transactions[row.ID] = row
		s.byKey[row.IdempotencyKey] = row.ID
	})
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	return cloneTransaction(t), nil
}

// GetByIdempotencyKey retrieves a committed transaction by idempotency key.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	id, ok := r.store.byKey[key]
	r.store.mu.RUnlock()

	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	return r.GetByID(ctx, id)
}

// GetByIdempotencyKeyTx also sees rows staged by tx.
func (r *TransactionRepository) GetByIdempotencyKeyTx(ctx context.Context, tx usecase.Transaction, key string) (*domain.Transaction, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	if t, ok := mtx.keys[key]; ok {
		return cloneTransaction(t), nil
	}

	return r.GetByIdempotencyKey(ctx, key)
}

// ListByAccount lists the account's transactions newest first.
func (r *TransactionRepository) ListByAccount(_ context.Context, accountID string, cursor *domain.Cursor, limit int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	var matched []*domain.Transaction
	for _, t := range r.store.transactions {
		if t.Involves(accountID) && (cursor == nil || cursor.Admits(t)) {
			matched = append(matched, cloneTransaction(t))
		}
	}
	r.store.mu.RUnlock()

	sortNewestFirst(matched)

	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// BalanceSnapshot reads the balance and the transaction sum under one read
// lock. Commits apply under the write lock, so neither can move in between.
func (r *TransactionRepository) BalanceSnapshot(_ context.Context, accountID string) (usecase.BalanceSnapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	account, ok := r.store.accounts[accountID]
	if !ok {
		return usecase.BalanceSnapshot{}, domain.ErrAccountNotFound
	}

	sum := decimal.Zero
	for _, t := range r.store.transactions {
		sum = sum.Add(t.SignedAmountFor(accountID))
	}

	return usecase.BalanceSnapshot{Recorded: account.Balance, Calculated: sum}, nil
}
