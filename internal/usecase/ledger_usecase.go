package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

var (
	// ErrInconsistentLedger is returned when money was created or destroyed inside the ledger.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not match external flows")
)

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
	metrics    *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository, m *metrics.Metrics) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
		metrics:    m,
	}
}

// CheckConsistency verifies conservation: internal transfers move money but never
// create it, so all balances together equal deposits minus withdrawals and payments.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (LedgerTotals, error) {
	totals, err := uc.ledgerRepo.Totals(ctx)
	if err != nil {
		return LedgerTotals{}, err
	}

	consistent := totals.TotalBalance.Equal(totals.NetExternalFlow)

	if uc.metrics != nil {
		if consistent {
			uc.metrics.LedgerConsistent.Set(1)
		} else {
			uc.metrics.LedgerConsistent.Set(0)
		}
	}

	if !consistent {
		return totals, fmt.Errorf(
			"%w: balances=%s external=%s difference=%s",
			ErrInconsistentLedger,
			totals.TotalBalance.String(),
			totals.NetExternalFlow.String(),
			totals.TotalBalance.Sub(totals.NetExternalFlow).String(),
		)
	}

	return totals, nil
}
