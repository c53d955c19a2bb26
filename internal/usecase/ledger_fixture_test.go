package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/adapter/repository/memory"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type seqIDs struct {
	n atomic.Int64
}

func (g *seqIDs) Generate() string {
	return fmt.Sprintf("id-%06d", g.n.Add(1))
}

// ledger wires the use cases over one in-memory store.
type ledger struct {
	store          *memory.Store
	transfers      *usecase.TransferUseCase
	accounts       *usecase.AccountUseCase
	statements     *usecase.StatementUseCase
	reconciliation *usecase.ReconciliationUseCase
	ledger         *usecase.LedgerUseCase
	txManager      *memory.TxManager
	accountRepo    *memory.AccountRepository
	txRepo         *memory.TransactionRepository
	entryRepo      *memory.EntryRepository
	outboxRepo     *memory.OutboxRepository
	auditRepo      *memory.AuditRepository
	ids            *seqIDs
}

func newLedger(t *testing.T, lockTimeout time.Duration, opts ...usecase.TransferOption) *ledger {
	t.Helper()

	store := memory.NewStore(lockTimeout)
	txManager := memory.NewTxManager(store)
	accountRepo := memory.NewAccountRepository(store)
	txRepo := memory.NewTransactionRepository(store)
	entryRepo := memory.NewEntryRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	auditRepo := memory.NewAuditRepository(store)
	ids := &seqIDs{}

	ledgerUC := usecase.NewLedgerUseCase(memory.NewLedgerRepository(store), nil)

	l := &ledger{
		store:          store,
		accounts:       usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, auditRepo, ids, "INR", nil),
		statements:     usecase.NewStatementUseCase(accountRepo, txRepo),
		reconciliation: usecase.NewReconciliationUseCase(accountRepo, txRepo, ledgerUC, nil),
		ledger:         ledgerUC,
		txManager:      txManager,
		accountRepo:    accountRepo,
		txRepo:         txRepo,
		entryRepo:      entryRepo,
		outboxRepo:     outboxRepo,
		auditRepo:      auditRepo,
		ids:            ids,
	}
	l.transfers = l.transferUseCase(opts...)

	return l
}

// transferUseCase builds another TransferUseCase over the same store.
func (l *ledger) transferUseCase(opts ...usecase.TransferOption) *usecase.TransferUseCase {
	return usecase.NewTransferUseCase(
		l.txManager, l.accountRepo, l.txRepo, l.entryRepo, l.outboxRepo, l.ids,
		domain.NewExternalRouter(domain.DefaultExternalPrefixes), opts...,
	)
}

// open creates an account and funds it with a deposit.
func (l *ledger) open(t *testing.T, owner, balance string) *domain.Account {
	t.Helper()

	ctx := context.Background()
	acc, err := l.accounts.OpenAccount(ctx, usecase.OpenAccountInput{OwnerID: owner})
	require.NoError(t, err)

	if amount := decimal.RequireFromString(balance); amount.IsPositive() {
		_, err = l.transfers.Deposit(ctx, usecase.DepositInput{
			AccountID:      acc.ID,
			Amount:         amount,
			IdempotencyKey: "seed-" + acc.ID,
		})
		require.NoError(t, err)
	}

	return acc
}

func (l *ledger) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()

	acc, err := l.accounts.GetAccount(context.Background(), id)
	require.NoError(t, err)

	return acc.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
