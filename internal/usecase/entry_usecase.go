package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// EntryUseCase serves the per-account balance history.
type EntryUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(accountRepo AccountRepository, entryRepo EntryRepository) *EntryUseCase {
	return &EntryUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
	}
}

// GetEntriesByAccountInput represents input for listing entries.
type GetEntriesByAccountInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// GetEntriesByAccount lists entries for an account, newest first.
func (uc *EntryUseCase) GetEntriesByAccount(ctx context.Context, input GetEntriesByAccountInput) ([]*domain.Entry, error) {
	if _, err := ownedAccount(ctx, uc.accountRepo, input.AccountID); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.entryRepo.GetByAccount(ctx, input.AccountID, limit, offset)
}

// GetEntriesByTransaction lists entries written by a transaction. A customer
// must own one of the accounts the entries touch.
func (uc *EntryUseCase) GetEntriesByTransaction(ctx context.Context, transactionID string) ([]*domain.Entry, error) {
	entries, err := uc.entryRepo.GetByTransaction(ctx, transactionID)
	if err != nil || len(entries) == 0 {
		return entries, err
	}

	accountIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		accountIDs = append(accountIDs, e.AccountID)
	}

	if err := authorizeAccounts(ctx, uc.accountRepo, accountIDs...); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetHistoricalBalance returns the balance at a specific point in time.
func (uc *EntryUseCase) GetHistoricalBalance(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	if _, err := ownedAccount(ctx, uc.accountRepo, accountID); err != nil {
		return decimal.Zero, err
	}

	return uc.entryRepo.GetBalanceAtTime(ctx, accountID, at)
}
