package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// TransferUseCase executes balance-affecting operations. Every operation is
// idempotent on its key and runs as one atomic unit over locked account rows.
type TransferUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	entryRepo       EntryRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	router          *domain.ExternalRouter

	retrier   Retrier
	inFlight  IdempotencyStore
	cache     Cache
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	txTimeout time.Duration
	now       func() time.Time
}

// TransferOption configures optional collaborators of TransferUseCase.
type TransferOption func(*TransferUseCase)

// WithRetrier retries the atomic unit on transient storage errors.
func WithRetrier(r Retrier) TransferOption {
	return func(uc *TransferUseCase) { uc.retrier = r }
}

// WithIdempotencyStore rejects concurrent requests sharing a key before they reach the database.
func WithIdempotencyStore(s IdempotencyStore) TransferOption {
	return func(uc *TransferUseCase) { uc.inFlight = s }
}

// WithCache caches account number lookups.
func WithCache(c Cache) TransferOption {
	return func(uc *TransferUseCase) { uc.cache = c }
}

// WithMetrics records operation metrics.
func WithMetrics(m *metrics.Metrics) TransferOption {
	return func(uc *TransferUseCase) { uc.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) TransferOption {
	return func(uc *TransferUseCase) { uc.logger = l }
}

// WithTransactionTimeout bounds each atomic unit, lock waits included.
func WithTransactionTimeout(d time.Duration) TransferOption {
	return func(uc *TransferUseCase) {
		if d > 0 {
			uc.txTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TransferOption {
	return func(uc *TransferUseCase) { uc.now = now }
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	router *domain.ExternalRouter,
	opts ...TransferOption,
) *TransferUseCase {
	uc := &TransferUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		entryRepo:       entryRepo,
		outboxRepo:      outboxRepo,
		idGen:           idGen,
		router:          router,
		logger:          zerolog.Nop(),
		txTimeout:       DefaultTransactionTimeout,
		now:             ledgerNow,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ledgerNow truncates to the storage precision so statement cursors round-trip.
func ledgerNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// TransferInput represents input for moving money out of an account.
type TransferInput struct {
	SourceAccountID string
	// Destination is an account number, an account id or an external routing tag.
	Destination    string
	Amount         decimal.Decimal
	IdempotencyKey string
	Category       string
	Description    string
}

// DepositInput represents input for crediting an account from outside the ledger.
type DepositInput struct {
	AccountID      string
	Amount         decimal.Decimal
	IdempotencyKey string
	Category       string
	Description    string
}

// WithdrawInput represents input for debiting an account to outside the ledger.
type WithdrawInput struct {
	AccountID      string
	Amount         decimal.Decimal
	IdempotencyKey string
	Category       string
	Description    string
}

// PaymentInput represents input for paying an external payee.
type PaymentInput struct {
	SourceAccountID string
	Payee           string
	Amount          decimal.Decimal
	IdempotencyKey  string
	Category        string
	Description     string
}

// Transfer moves money from the source account to an internal account or an
// external payee. A destination matching an external routing pattern is
// recorded as a PAYMENT that debits the source only.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (result *domain.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "ledger.transfer", keyAttr(input.IdempotencyKey))
	defer func() { endSpan(span, err) }()

	if err := validateRequest(input.Amount, input.IdempotencyKey, input.Category); err != nil {
		return nil, err
	}

	if input.SourceAccountID == "" {
		return nil, fmt.Errorf("%w: source account is required", domain.ErrAccountNotFound)
	}

	if err := uc.authorizeSource(ctx, input.SourceAccountID); err != nil {
		return nil, err
	}

	mv := movement{
		txType:      domain.TransactionTypeTransfer,
		sourceID:    input.SourceAccountID,
		amount:      input.Amount,
		key:         input.IdempotencyKey,
		category:    input.Category,
		description: input.Description,
	}

	destination, external, err := uc.resolveDestination(ctx, input.Destination)
	if err != nil {
		return nil, err
	}

	if external {
		mv.txType = domain.TransactionTypePayment
		mv.external = destination
	} else {
		if destination == input.SourceAccountID {
			return nil, domain.ErrSameAccount
		}
		mv.destID = destination
	}

	return uc.execute(ctx, mv)
}

// Pay debits the source account towards an external payee.
func (uc *TransferUseCase) Pay(ctx context.Context, input PaymentInput) (result *domain.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "ledger.pay", keyAttr(input.IdempotencyKey))
	defer func() { endSpan(span, err) }()

	if err := validateRequest(input.Amount, input.IdempotencyKey, input.Category); err != nil {
		return nil, err
	}

	if input.SourceAccountID == "" {
		return nil, fmt.Errorf("%w: source account is required", domain.ErrAccountNotFound)
	}

	payee := strings.TrimSpace(input.Payee)
	if !uc.router.IsExternal(payee) {
		return nil, fmt.Errorf("%w: %q is not an external payee", domain.ErrDestinationNotFound, input.Payee)
	}

	if err := uc.authorizeSource(ctx, input.SourceAccountID); err != nil {
		return nil, err
	}

	return uc.execute(ctx, movement{
		txType:      domain.TransactionTypePayment,
		sourceID:    input.SourceAccountID,
		external:    payee,
		amount:      input.Amount,
		key:         input.IdempotencyKey,
		category:    input.Category,
		description: input.Description,
	})
}

// Deposit credits an account.
func (uc *TransferUseCase) Deposit(ctx context.Context, input DepositInput) (result *domain.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "ledger.deposit", keyAttr(input.IdempotencyKey))
	defer func() { endSpan(span, err) }()

	if err := validateRequest(input.Amount, input.IdempotencyKey, input.Category); err != nil {
		return nil, err
	}

	if input.AccountID == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrAccountNotFound)
	}

	return uc.execute(ctx, movement{
		txType:      domain.TransactionTypeDeposit,
		destID:      input.AccountID,
		amount:      input.Amount,
		key:         input.IdempotencyKey,
		category:    input.Category,
		description: input.Description,
	})
}

// Withdraw debits an account.
func (uc *TransferUseCase) Withdraw(ctx context.Context, input WithdrawInput) (result *domain.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "ledger.withdraw", keyAttr(input.IdempotencyKey))
	defer func() { endSpan(span, err) }()

	if err := validateRequest(input.Amount, input.IdempotencyKey, input.Category); err != nil {
		return nil, err
	}

	if input.AccountID == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrAccountNotFound)
	}

	if err := uc.authorizeSource(ctx, input.AccountID); err != nil {
		return nil, err
	}

	return uc.execute(ctx, movement{
		txType:      domain.TransactionTypeWithdrawal,
		sourceID:    input.AccountID,
		amount:      input.Amount,
		key:         input.IdempotencyKey,
		category:    input.Category,
		description: input.Description,
	})
}

// GetTransaction retrieves a transaction by ID.
// A customer may only read transactions touching one of their accounts.
func (uc *TransferUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorizeAccounts(ctx, uc.accountRepo, derefString(t.SourceAccountID), derefString(t.DestinationAccountID)); err != nil {
		return nil, fmt.Errorf("%w: transaction %s", err, id)
	}

	return t, nil
}

// movement is a validated request ready for the atomic unit.
type movement struct {
	txType      domain.TransactionType
	sourceID    string
	destID      string
	external    string
	amount      decimal.Decimal
	key         string
	category    string
	description string
}

func (m movement) fingerprint() domain.Fingerprint {
	return domain.Fingerprint{
		Type:                 m.txType,
		SourceAccountID:      m.sourceID,
		DestinationAccountID: m.destID,
		ExternalDestination:  m.external,
		Amount:               m.amount,
	}
}

// accountIDs returns the internal accounts touched, sorted so locks are always
// taken in the same order.
func (m movement) accountIDs() []string {
	ids := make([]string, 0, 2)
	if m.sourceID != "" {
		ids = append(ids, m.sourceID)
	}

	if m.destID != "" && m.destID != m.sourceID {
		ids = append(ids, m.destID)
	}

	sort.Strings(ids)

	return ids
}

func (uc *TransferUseCase) execute(ctx context.Context, mv movement) (*domain.Transaction, error) {
	start := time.Now()

	result, err := uc.run(ctx, mv)
	uc.observe(mv, result, err, start)

	return result, err
}

func (uc *TransferUseCase) run(ctx context.Context, mv movement) (*domain.Transaction, error) {
	// 1. Answer retries from the recorded outcome
	existing, err := uc.transactionRepo.GetByIdempotencyKey(ctx, mv.key)
	if err == nil {
		return uc.replay(existing, mv)
	}

	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	// 2. Claim the key for the duration of this request
	if !uc.acquireKey(ctx, mv.key) {
		return uc.replayOrReject(ctx, mv)
	}
	defer uc.releaseKey(ctx, mv.key)

	// 3. Apply in one atomic unit
	var (
		result *domain.Transaction
		opErr  error
	)

	err = uc.retry(ctx, func() error {
		var err error
		result, opErr, err = uc.apply(ctx, mv)
		return err
	})

	if errors.Is(err, domain.ErrIdempotencyKeyExists) {
		// Lost the insert race against a concurrent request with the same key.
		return uc.replayOrReject(ctx, mv)
	}

	if err != nil {
		return nil, err
	}

	return result, opErr
}

// apply runs one attempt of the atomic unit. opErr is a business failure that
// was recorded as a FAILED transaction; err aborts the unit without writes.
func (uc *TransferUseCase) apply(ctx context.Context, mv movement) (result *domain.Transaction, opErr, err error) {
	txCtx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, nil, lockError(err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock accounts in sorted order
	ids := mv.accountIDs()

	accounts, err := uc.accountRepo.GetByIDsForUpdate(txCtx, tx, ids)
	if err != nil {
		return nil, nil, lockError(err)
	}

	accountMap := buildAccountMap(accounts)
	for _, id := range ids {
		if accountMap[id] == nil {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
	}

	// A duplicate holding the same locks may have committed while we waited.
	existing, err := uc.transactionRepo.GetByIdempotencyKeyTx(txCtx, tx, mv.key)
	if err == nil {
		result, opErr = uc.replay(existing, mv)
		return result, opErr, nil
	}

	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, nil, err
	}

	source := accountMap[mv.sourceID]
	destination := accountMap[mv.destID]
	now := uc.now()

	record := uc.newPendingTransaction(mv, source, destination, now)

	if failure := validateMovement(mv.amount, source, destination); failure != nil {
		if err := record.Fail(failure); err != nil {
			return nil, nil, err
		}

		if err := uc.transactionRepo.Create(txCtx, tx, record); err != nil {
			return nil, nil, err
		}

		if err := tx.Commit(txCtx); err != nil {
			return nil, nil, lockError(err)
		}

		return record, failure, nil
	}

	if err := record.Complete(); err != nil {
		return nil, nil, err
	}

	if err := uc.transactionRepo.Create(txCtx, tx, record); err != nil {
		return nil, nil, err
	}

	if source != nil {
		if err := uc.post(txCtx, tx, source, mv.amount.Neg(), record, now); err != nil {
			return nil, nil, err
		}
	}

	if destination != nil {
		if err := uc.post(txCtx, tx, destination, mv.amount, record, now); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, lockError(err)
	}

	return record, nil, nil
}

// post writes the entry, the new balance and the balance change event for one account.
func (uc *TransferUseCase) post(
	ctx context.Context,
	tx Transaction,
	account *domain.Account,
	amount decimal.Decimal,
	record *domain.Transaction,
	now time.Time,
) error {
	newBalance := account.ApplyCredit(amount)
	if amount.IsNegative() {
		newBalance = account.ApplyDebit(amount.Neg())
	}

	if newBalance.IsNegative() {
		return fmt.Errorf("%w: account %s", domain.ErrInsufficientFunds, account.ID)
	}

	entry := &domain.Entry{
		ID:                     uc.idGen.Generate(),
		AccountID:              account.ID,
		TransactionID:          record.ID,
		Amount:                 amount,
		AccountPreviousBalance: account.Balance,
		AccountCurrentBalance:  newBalance,
		AccountVersion:         account.Version + 1,
		CreatedAt:              now,
	}

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, entry.AccountVersion, now); err != nil {
		return err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   account.ID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeBalanceChanged,
		Payload: domain.MarshalState(domain.BalanceChangedEvent{
			AccountID:   account.ID,
			NewBalance:  newBalance.StringFixed(2),
			Transaction: domain.SnapshotTransaction(record),
		}),
		CreatedAt: now,
	}

	return uc.outboxRepo.Create(ctx, tx, event)
}

func (uc *TransferUseCase) newPendingTransaction(mv movement, source, destination *domain.Account, now time.Time) *domain.Transaction {
	record := &domain.Transaction{
		ID:                  uc.idGen.Generate(),
		IdempotencyKey:      mv.key,
		Type:                mv.txType,
		ExternalDestination: mv.external,
		Amount:              mv.amount,
		Category:            mv.category,
		Description:         mv.description,
		Status:              domain.TransactionStatusPending,
		CreatedAt:           now,
	}

	if source != nil {
		id := source.ID
		record.SourceAccountID = &id
		record.Currency = source.Currency
	}

	if destination != nil {
		id := destination.ID
		record.DestinationAccountID = &id
		if record.Currency == "" {
			record.Currency = destination.Currency
		}
	}

	return record
}

// validateMovement checks the locked accounts. Status is checked before funds
// so a frozen account reports as frozen.
func validateMovement(amount decimal.Decimal, source, destination *domain.Account) error {
	if destination != nil {
		if err := destination.ValidateCredit(); err != nil {
			return err
		}
	}

	if source != nil && destination != nil && source.Currency != destination.Currency {
		return fmt.Errorf("%w: %s to %s", domain.ErrCurrencyMismatch, source.Currency, destination.Currency)
	}

	if source != nil {
		return source.ValidateDebit(amount)
	}

	return nil
}

// replay answers a request whose key already has a recorded transaction.
func (uc *TransferUseCase) replay(existing *domain.Transaction, mv movement) (*domain.Transaction, error) {
	if !existing.Fingerprint().Matches(mv.fingerprint()) {
		return nil, fmt.Errorf("%w: key %q was used with different parameters", domain.ErrDuplicateRequest, mv.key)
	}

	if !existing.IsFinal() {
		return nil, fmt.Errorf("%w: key %q is still in flight", domain.ErrDuplicateRequest, mv.key)
	}

	if uc.metrics != nil {
		uc.metrics.IdempotentReplays.WithLabelValues(string(existing.Type)).Inc()
	}

	uc.logger.Debug().
		Str("idempotency_key", mv.key).
		Str("transaction_id", existing.ID).
		Str("status", string(existing.Status)).
		Msg("replaying recorded transaction")

	return existing, existing.Err()
}

// replayOrReject is used when another request holds the key: it either finished
// and we replay its outcome, or it is still running.
func (uc *TransferUseCase) replayOrReject(ctx context.Context, mv movement) (*domain.Transaction, error) {
	existing, err := uc.transactionRepo.GetByIdempotencyKey(ctx, mv.key)
	if err == nil {
		return uc.replay(existing, mv)
	}

	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	return nil, fmt.Errorf("%w: key %q is still in flight", domain.ErrDuplicateRequest, mv.key)
}

// acquireKey reports whether this request may proceed. Without a guard, or when
// the guard is unavailable, the unique index on the key still decides.
func (uc *TransferUseCase) acquireKey(ctx context.Context, key string) bool {
	if uc.inFlight == nil {
		return true
	}

	ok, err := uc.inFlight.Acquire(ctx, key, InFlightKeyTTL)
	if err != nil {
		uc.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency guard unavailable")
		return true
	}

	return ok
}

func (uc *TransferUseCase) releaseKey(ctx context.Context, key string) {
	if uc.inFlight == nil {
		return
	}

	if err := uc.inFlight.Release(context.WithoutCancel(ctx), key); err != nil {
		uc.logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
	}
}

func (uc *TransferUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}

	return uc.retrier.Retry(ctx, op)
}

// resolveDestination returns the internal account id, or the routing tag when
// the destination is external.
func (uc *TransferUseCase) resolveDestination(ctx context.Context, destination string) (string, bool, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return "", false, fmt.Errorf("%w: destination is required", domain.ErrDestinationNotFound)
	}

	if id, ok := uc.cachedAccountID(ctx, destination); ok {
		return id, false, nil
	}

	account, err := uc.accountRepo.GetByAccountNumber(ctx, destination)
	if err == nil {
		uc.cacheAccountID(ctx, destination, account.ID)
		return account.ID, false, nil
	}

	if !errors.Is(err, domain.ErrAccountNotFound) {
		return "", false, err
	}

	account, err = uc.accountRepo.GetByID(ctx, destination)
	if err == nil {
		return account.ID, false, nil
	}

	if !errors.Is(err, domain.ErrAccountNotFound) {
		return "", false, err
	}

	if uc.router.IsExternal(destination) {
		return destination, true, nil
	}

	return "", false, fmt.Errorf("%w: %s", domain.ErrDestinationNotFound, destination)
}

func (uc *TransferUseCase) cachedAccountID(ctx context.Context, accountNumber string) (string, bool) {
	if uc.cache == nil {
		return "", false
	}

	value, err := uc.cache.Get(ctx, accountNumberCachePrefix+accountNumber)
	if err != nil {
		uc.logger.Debug().Err(err).Msg("account number cache read failed")
		return "", false
	}

	if len(value) == 0 {
		return "", false
	}

	return string(value), true
}

func (uc *TransferUseCase) cacheAccountID(ctx context.Context, accountNumber, id string) {
	if uc.cache == nil {
		return
	}

	if err := uc.cache.Set(ctx, accountNumberCachePrefix+accountNumber, []byte(id), AccountNumberCacheTTL); err != nil {
		uc.logger.Debug().Err(err).Msg("account number cache write failed")
	}
}

// authorizeSource checks that a customer only moves money out of their own account.
func (uc *TransferUseCase) authorizeSource(ctx context.Context, accountID string) error {
	if !domain.IsCustomer(ctx) {
		return nil
	}

	_, err := ownedAccount(ctx, uc.accountRepo, accountID)
	return err
}

func (uc *TransferUseCase) observe(mv movement, result *domain.Transaction, err error, start time.Time) {
	outcome := "completed"

	switch {
	case err == nil:
	case result != nil && result.Status == domain.TransactionStatusFailed:
		outcome = "failed"
	default:
		outcome = "rejected"
	}

	if err != nil {
		uc.logger.Warn().
			Err(err).
			Str("type", string(mv.txType)).
			Str("idempotency_key", mv.key).
			Str("outcome", outcome).
			Msg("ledger operation did not complete")
	}

	if uc.metrics == nil {
		return
	}

	uc.metrics.Transactions.WithLabelValues(string(mv.txType), outcome).Inc()
	uc.metrics.OperationDuration.WithLabelValues(string(mv.txType)).Observe(time.Since(start).Seconds())

	if err == nil {
		uc.metrics.TransactionAmount.WithLabelValues(string(mv.txType)).Observe(mv.amount.InexactFloat64())
	}

	if errors.Is(err, domain.ErrLockTimeout) {
		uc.metrics.LockTimeouts.Inc()
	}
}

func validateRequest(amount decimal.Decimal, key, category string) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	if err := domain.ValidateIdempotencyKey(key); err != nil {
		return err
	}

	return domain.ValidateCategory(category)
}

// lockError reports an expired deadline while waiting on the database as a lock timeout.
func lockError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrLockTimeout) {
		return fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
	}

	return err
}

func buildAccountMap(accounts []*domain.Account) map[string]*domain.Account {
	accountMap := make(map[string]*domain.Account, len(accounts))
	for _, acc := range accounts {
		accountMap[acc.ID] = acc
	}

	return accountMap
}
