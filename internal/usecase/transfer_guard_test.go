package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func TestTransfer_InFlightKeyIsRejected(t *testing.T) {
	l := newLedger(t, time.Second)
	a := l.open(t, "alice", "100")
	b := l.open(t, "bob", "0")

	ctrl := gomock.NewController(t)
	busy := mocks.NewMockIdempotencyStore(ctrl)
	busy.EXPECT().Acquire(gomock.Any(), "held", usecase.InFlightKeyTTL).Return(false, nil)

	uc := l.transferUseCase(usecase.WithIdempotencyStore(busy))

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SourceAccountID: a.ID, Destination: b.AccountNumber, Amount: dec("10"), IdempotencyKey: "held",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	assert.True(t, l.balance(t, a.ID).Equal(dec("100")))
}

func TestTransfer_HeldKeyReplaysFinishedOutcome(t *testing.T) {
	l := newLedger(t, time.Second)
	a := l.open(t, "alice", "100")
	b := l.open(t, "bob", "0")
	ctx := context.Background()

	input := usecase.TransferInput{
		SourceAccountID: a.ID, Destination: b.AccountNumber, Amount: dec("10"), IdempotencyKey: "done",
	}

	first, err := l.transfers.Transfer(ctx, input)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	busy := mocks.NewMockIdempotencyStore(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)

	// The first lookup races with the holder; the second sees its commit.
	gomock.InOrder(
		txRepo.EXPECT().GetByIdempotencyKey(gomock.Any(), "done").Return(nil, domain.ErrTransactionNotFound),
		busy.EXPECT().Acquire(gomock.Any(), "done", usecase.InFlightKeyTTL).Return(false, nil),
		txRepo.EXPECT().GetByIdempotencyKey(gomock.Any(), "done").Return(first, nil),
	)

	uc := usecase.NewTransferUseCase(
		l.txManager, l.accountRepo, txRepo, l.entryRepo, l.outboxRepo, l.ids,
		domain.NewExternalRouter(nil), usecase.WithIdempotencyStore(busy),
	)

	replayed, err := uc.Transfer(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replayed.ID)
}

func TestTransfer_GuardOutageFallsBackToDatabase(t *testing.T) {
	ctrl := gomock.NewController(t)
	guard := mocks.NewMockIdempotencyStore(ctrl)
	guard.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down")).AnyTimes()
	guard.EXPECT().Release(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).AnyTimes()

	l := newLedger(t, time.Second, usecase.WithIdempotencyStore(guard))
	a := l.open(t, "alice", "100")
	b := l.open(t, "bob", "0")

	_, err := l.transfers.Transfer(context.Background(), usecase.TransferInput{
		SourceAccountID: a.ID, Destination: b.AccountNumber, Amount: dec("10"), IdempotencyKey: "k",
	})
	require.NoError(t, err)
	assert.True(t, l.balance(t, b.ID).Equal(dec("10")))
}

func TestTransfer_ReleasesKeyAfterCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	guard := mocks.NewMockIdempotencyStore(ctrl)

	l := newLedger(t, time.Second, usecase.WithIdempotencyStore(guard))

	// The seed deposit takes and releases its own key.
	gomock.InOrder(
		guard.EXPECT().Acquire(gomock.Any(), gomock.Any(), usecase.InFlightKeyTTL).Return(true, nil),
		guard.EXPECT().Release(gomock.Any(), gomock.Any()).Return(nil),
	)
	a := l.open(t, "alice", "1")

	gomock.InOrder(
		guard.EXPECT().Acquire(gomock.Any(), "dep-1", usecase.InFlightKeyTTL).Return(true, nil),
		guard.EXPECT().Release(gomock.Any(), "dep-1").Return(nil),
	)

	_, err := l.transfers.Deposit(context.Background(), usecase.DepositInput{
		AccountID: a.ID, Amount: dec("5"), IdempotencyKey: "dep-1",
	})
	require.NoError(t, err)

	// A replay is answered before the guard is consulted.
	_, err = l.transfers.Deposit(context.Background(), usecase.DepositInput{
		AccountID: a.ID, Amount: dec("5"), IdempotencyKey: "dep-1",
	})
	require.NoError(t, err)
	assert.True(t, l.balance(t, a.ID).Equal(dec("6")))
}

func TestTransfer_CachesAccountNumberLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	l := newLedger(t, time.Second, usecase.WithCache(cache))
	a := l.open(t, "alice", "100")
	b := l.open(t, "bob", "0")

	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), "acctno:"+b.AccountNumber).Return(nil, nil),
		cache.EXPECT().Set(gomock.Any(), "acctno:"+b.AccountNumber, []byte(b.ID), usecase.AccountNumberCacheTTL).Return(nil),
		cache.EXPECT().Get(gomock.Any(), "acctno:"+b.AccountNumber).Return([]byte(b.ID), nil),
	)

	for _, key := range []string{"c1", "c2"} {
		_, err := l.transfers.Transfer(context.Background(), usecase.TransferInput{
			SourceAccountID: a.ID, Destination: b.AccountNumber, Amount: dec("10"), IdempotencyKey: key,
		})
		require.NoError(t, err)
	}

	assert.True(t, l.balance(t, b.ID).Equal(dec("20")))
}

func TestTransfer_UsesRetrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	retrier := mocks.NewMockRetrier(ctrl)
	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, op func() error) error {
		return op()
	}).AnyTimes()

	l := newLedger(t, time.Second, usecase.WithRetrier(retrier))
	a := l.open(t, "alice", "10")

	assert.True(t, l.balance(t, a.ID).Equal(dec("10")))
}

func TestTransfer_StorageErrorAbortsWithoutRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	txManager := mocks.NewMockTransactionManager(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	tx := mocks.NewMockTransaction(ctrl)

	boom := errors.New("connection reset")

	txRepo.EXPECT().GetByIdempotencyKey(gomock.Any(), "k").Return(nil, domain.ErrTransactionNotFound)
	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accountRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, []string{"acc-1"}).Return(nil, boom)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewTransferUseCase(txManager, accountRepo, txRepo, nil, nil, &seqIDs{}, domain.NewExternalRouter(nil))

	_, err := uc.Withdraw(context.Background(), usecase.WithdrawInput{AccountID: "acc-1", Amount: dec("1"), IdempotencyKey: "k"})
	assert.ErrorIs(t, err, boom)
}

func TestTransfer_DeadlineWhileLockingIsLockTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	txManager := mocks.NewMockTransactionManager(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	tx := mocks.NewMockTransaction(ctrl)

	txRepo.EXPECT().GetByIdempotencyKey(gomock.Any(), "k").Return(nil, domain.ErrTransactionNotFound)
	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accountRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, []string{"acc-1"}).
		DoAndReturn(func(ctx context.Context, _ usecase.Transaction, _ []string) ([]*domain.Account, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewTransferUseCase(txManager, accountRepo, txRepo, nil, nil, &seqIDs{}, domain.NewExternalRouter(nil),
		usecase.WithTransactionTimeout(20*time.Millisecond))

	_, err := uc.Deposit(context.Background(), usecase.DepositInput{AccountID: "acc-1", Amount: dec("1"), IdempotencyKey: "k"})
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}
