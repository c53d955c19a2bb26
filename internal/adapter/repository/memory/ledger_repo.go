package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// Totals sums all balances and the net money that entered the ledger.
func (r *LedgerRepository) Totals(_ context.Context) (usecase.LedgerTotals, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	totals := usecase.LedgerTotals{TotalBalance: decimal.Zero, NetExternalFlow: decimal.Zero}

	for _, acc := range r.store.accounts {
		totals.TotalBalance = totals.TotalBalance.Add(acc.Balance)
	}

	for _, t := range r.store.transactions {
		if t.Status != domain.TransactionStatusCompleted {
			continue
		}

		switch t.Type {
		case domain.TransactionTypeDeposit:
			totals.NetExternalFlow = totals.NetExternalFlow.Add(t.Amount)
		case domain.TransactionTypeWithdrawal, domain.TransactionTypePayment:
			totals.NetExternalFlow = totals.NetExternalFlow.Sub(t.Amount)
		}
	}

	return totals, nil
}
