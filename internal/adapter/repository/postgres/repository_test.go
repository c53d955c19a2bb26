package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/domain"
)

var accountColumns = []string{
	"id", "owner_id", "account_number", "currency", "balance", "status", "version", "created_at", "updated_at",
}

func TestAccountRepositoryGetByID(t *testing.T) {
	pool := newMockPool(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	pool.ExpectQuery("FROM accounts WHERE id").
		WithArgs("acc-1").
		WillReturnRows(pgxmock.NewRows(accountColumns).
			AddRow("acc-1", "owner-1", "123456789012", "INR", "100.50", "ACTIVE", int64(3), created, created))

	account, err := NewAccountRepository(pool).GetByID(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, "owner-1", account.OwnerID)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("100.50")), "balance %s", account.Balance)
	assert.Equal(t, domain.AccountStatusActive, account.Status)
	assert.Equal(t, int64(3), account.Version)
	assertExpectations(t, pool)
}

func TestAccountRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM accounts WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewAccountRepository(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepositoryCreateDuplicateNumber(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)

	pool.ExpectExec("INSERT INTO accounts").
		WithArgs("acc-1", "owner-1", "123456789012", "INR", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintAccountNumber})

	now := time.Now()
	err := NewAccountRepository(pool).Create(context.Background(), tx, &domain.Account{
		ID:            "acc-1",
		OwnerID:       "owner-1",
		AccountNumber: "123456789012",
		Currency:      "INR",
		Balance:       decimal.Zero,
		Status:        domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})

	assert.ErrorIs(t, err, domain.ErrAccountNumberTaken)
	assertExpectations(t, pool)
}

func TestAccountRepositoryUpdateBalanceVersionConflict(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)

	pool.ExpectExec("UPDATE accounts").
		WithArgs("acc-1", pgxmock.AnyArg(), int64(4), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewAccountRepository(pool).UpdateBalance(
		context.Background(), tx, "acc-1", decimal.NewFromInt(10), 4, time.Now(),
	)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "version 4 conflict")
	assertExpectations(t, pool)
}

func TestAccountRepositoryUpdateBalance(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)

	pool.ExpectExec("UPDATE accounts").
		WithArgs("acc-1", pgxmock.AnyArg(), int64(2), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := NewAccountRepository(pool).UpdateBalance(
		context.Background(), tx, "acc-1", decimal.NewFromInt(10), 2, time.Now(),
	)

	assert.NoError(t, err)
	assertExpectations(t, pool)
}

func TestRepositoriesRejectForeignTransaction(t *testing.T) {
	pool := newMockPool(t)

	err := NewEntryRepository(pool).Create(context.Background(), foreignTx{}, &domain.Entry{})
	assert.ErrorContains(t, err, "unsupported transaction type")
}

func TestTransactionRepositoryCreateDuplicateKey(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)

	pool.ExpectExec("INSERT INTO transactions").
		WithArgs("txn-1", "key-1", "WITHDRAWAL", "COMPLETED", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintIdempotencyKey})

	source := "acc-1"
	txn := &domain.Transaction{
		ID:              "txn-1",
		IdempotencyKey:  "key-1",
		Type:            domain.TransactionTypeWithdrawal,
		Status:          domain.TransactionStatusCompleted,
		SourceAccountID: &source,
		Amount:          decimal.NewFromInt(5),
		Currency:        "INR",
		CreatedAt:       time.Now(),
	}

	err := NewTransactionRepository(pool).Create(context.Background(), tx, txn)
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyExists)
	assertExpectations(t, pool)
}

func TestTransactionRepositoryCreateRejectsPending(t *testing.T) {
	pool := newMockPool(t)

	err := NewTransactionRepository(pool).Create(context.Background(), &Tx{}, &domain.Transaction{
		Status: domain.TransactionStatusPending,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidTransactionState)
	assertExpectations(t, pool)
}

func TestTransactionRepositoryListByAccountCursor(t *testing.T) {
	pool := newMockPool(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	columns := []string{
		"id", "idempotency_key", "type", "status", "source_account_id", "destination_account_id",
		"external_destination", "amount", "currency", "category", "description", "failure_code", "created_at",
	}

	pool.ExpectQuery("FROM transactions").
		WithArgs("acc-1", true, pgxmock.AnyArg(), "txn-9", int32(2)).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("txn-8", "k8", "TRANSFER", "COMPLETED", "acc-1", "acc-2", "", "12.00", "INR", "food", "", "", at).
			AddRow("txn-7", "k7", "DEPOSIT", "COMPLETED", nil, "acc-1", "", "50.00", "INR", "", "", "", at))

	txs, err := NewTransactionRepository(pool).ListByAccount(
		context.Background(), "acc-1", &domain.Cursor{CreatedAt: at, ID: "txn-9"}, 2,
	)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "acc-1", *txs[0].SourceAccountID)
	assert.Equal(t, "food", txs[0].Category)
	assert.Nil(t, txs[1].SourceAccountID)
	assert.Equal(t, "acc-1", *txs[1].DestinationAccountID)
	assertExpectations(t, pool)
}

func TestLedgerRepositoryTotals(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("total_balance").
		WillReturnRows(pgxmock.NewRows([]string{"total_balance", "net_external_flow"}).
			AddRow("250.25", "250.25"))

	totals, err := NewLedgerRepository(pool).Totals(context.Background())
	require.NoError(t, err)

	assert.True(t, totals.TotalBalance.Equal(decimal.RequireFromString("250.25")))
	assert.True(t, totals.NetExternalFlow.Equal(totals.TotalBalance))
	assertExpectations(t, pool)
}

func TestEntryRepositoryBalanceAtTimeWithoutEntries(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM entries").
		WithArgs("acc-1", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	balance, err := NewEntryRepository(pool).GetBalanceAtTime(context.Background(), "acc-1", time.Now())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assertExpectations(t, pool)
}

func TestTransactionRepositoryBalanceSnapshot(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM accounts a").
		WithArgs("acc-1").
		WillReturnRows(pgxmock.NewRows([]string{"recorded", "calculated"}).
			AddRow("120.00", "120.00"))

	snapshot, err := NewTransactionRepository(pool).BalanceSnapshot(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.True(t, snapshot.Recorded.Equal(decimal.NewFromInt(120)))
	assert.True(t, snapshot.Calculated.Equal(snapshot.Recorded))
	assertExpectations(t, pool)
}

func TestTransactionRepositoryBalanceSnapshotUnknownAccount(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM accounts a").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewTransactionRepository(pool).BalanceSnapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assertExpectations(t, pool)
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "100.50", "-42.75", "1000000000000"} {
		d := decimal.RequireFromString(s)
		assert.True(t, numericToDecimal(decimalToNumeric(d)).Equal(d), "round trip %s", s)
	}
}

type foreignTx struct{}

func (foreignTx) Commit(context.Context) error   { return nil }
func (foreignTx) Rollback(context.Context) error { return nil }
