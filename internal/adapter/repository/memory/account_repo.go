package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create stages a new account.
func (r *AccountRepository) Create(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	_, idTaken := r.store.accounts[account.ID]
	_, numberTaken := r.store.byNumber[account.AccountNumber]
	r.store.mu.RUnlock()

	if idTaken {
		return fmt.Errorf("memory: account %s already exists", account.ID)
	}

	if _, staged := t.numbers[account.AccountNumber]; numberTaken || staged {
		return fmt.Errorf("%w: %s", domain.ErrAccountNumberTaken, account.AccountNumber)
	}

	row := cloneAccount(account)
	t.numbers[row.AccountNumber] = row.ID

	return t.stage(func(s *Store) {
		s.accounts[row.ID] = row
		s.byNumber[row.AccountNumber] = row.ID
	})
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return cloneAccount(acc), nil
}

// GetByAccountNumber retrieves an account by its external number.
func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	r.store.mu.RLock()
	id, ok := r.store.byNumber[accountNumber]
	r.store.mu.RUnlock()

	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return r.GetByID(ctx, id)
}

// ListByOwner lists an owner's accounts, oldest first.
func (r *AccountRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var accounts []*domain.Account
	for _, acc := range r.store.accounts {
		if acc.OwnerID == ownerID {
			accounts = append(accounts, cloneAccount(acc))
		}
	}

	sortAccounts(accounts)

	return accounts, nil
}

// GetByIDForUpdate locks and returns an account.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	accounts, err := r.GetByIDsForUpdate(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, domain.ErrAccountNotFound
	}

	return accounts[0], nil
}

// GetByIDsForUpdate locks existing accounts in ascending id order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	accounts := make([]*domain.Account, 0, len(sorted))
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}

		if _, err := r.GetByID(ctx, id); err != nil {
			continue
		}

		if err := r.store.lock(ctx, t, id); err != nil {
			return nil, err
		}

		// Re-read under the lock: the previous holder may have committed.
		acc, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, acc)
	}

	return accounts, nil
}

// UpdateBalance stages a new balance for a locked account.
func (r *AccountRepository) UpdateBalance(
	_ context.Context,
	tx usecase.Transaction,
	id string,
	balance decimal.Decimal,
	version int64,
	updatedAt time.Time,
) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if err := t.requireLock(id); err != nil {
		return err
	}

	if balance.IsNegative() {
		return fmt.Errorf("%w: account %s", domain.ErrInsufficientFunds, id)
	}

	return t.stage(func(s *Store) {
		acc := s.accounts[id]
		acc.Balance = balance
		acc.Version = version
		acc.UpdatedAt = updatedAt
	})
}

// UpdateStatus stages a status change for a locked account.
func (r *AccountRepository) UpdateStatus(
	_ context.Context,
	tx usecase.Transaction,
	id string,
	status domain.AccountStatus,
	updatedAt time.Time,
) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if err := t.requireLock(id); err != nil {
		return err
	}

	return t.stage(func(s *Store) {
		acc := s.accounts[id]
		acc.Status = status
		acc.UpdatedAt = updatedAt
	})
}

// List lists accounts with pagination, oldest first.
func (r *AccountRepository) List(_ context.Context, limit, offset int) ([]*domain.Account, error) {
	r.store.mu.RLock()
	accounts := make([]*domain.Account, 0, len(r.store.accounts))
	for _, acc := range r.store.accounts {
		accounts = append(accounts, cloneAccount(acc))
	}
	r.store.mu.RUnlock()

	sortAccounts(accounts)

	if offset >= len(accounts) {
		return []*domain.Account{}, nil
	}

	end := offset + limit
	if end > len(accounts) {
		end = len(accounts)
	}

	return accounts[offset:end], nil
}

func sortAccounts(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
}
