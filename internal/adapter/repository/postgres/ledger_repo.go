package postgres

import (
	"context"

	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// Totals returns the sum of balances and the net flow through deposits,
// withdrawals and payments.
func (r *LedgerRepository) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	row, err := r.queries.GetLedgerTotals(ctx)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	return usecase.LedgerTotals{
		TotalBalance:    numericToDecimal(row.TotalBalance),
		NetExternalFlow: numericToDecimal(row.NetExternalFlow),
	}, nil
}
