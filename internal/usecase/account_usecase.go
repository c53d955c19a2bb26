package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// AccountUseCase handles account lookups and lifecycle.
type AccountUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	outboxRepo      OutboxRepository
	auditRepo       AuditRepository
	idGen           IDGenerator
	defaultCurrency string
	metrics         *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase. auditRepo and m may be nil.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	defaultCurrency string,
	m *metrics.Metrics,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		outboxRepo:      outboxRepo,
		auditRepo:       auditRepo,
		idGen:           idGen,
		defaultCurrency: defaultCurrency,
		metrics:         m,
	}
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	OwnerID  string
	Currency string
	// AccountNumber is generated when empty.
	AccountNumber string
}

// OpenAccount creates an ACTIVE account with a zero balance.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	if err := domain.ValidateOwnerID(input.OwnerID); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = uc.defaultCurrency
	}

	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	attempts := 1
	if input.AccountNumber == "" {
		attempts = openAccountAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		number := input.AccountNumber
		if number == "" {
			generated, err := domain.GenerateAccountNumber()
			if err != nil {
				return nil, err
			}
			number = generated
		}

		account, err := uc.openAccount(ctx, strings.TrimSpace(input.OwnerID), currency, number)
		if err == nil {
			return account, nil
		}

		if !errors.Is(err, domain.ErrAccountNumberTaken) {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}

func (uc *AccountUseCase) openAccount(ctx context.Context, ownerID, currency, number string) (*domain.Account, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, lockError(err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := ledgerNow()
	account := &domain.Account{
		ID:            uc.idGen.Generate(),
		OwnerID:       ownerID,
		AccountNumber: number,
		Currency:      currency,
		Balance:       decimal.Zero,
		Status:        domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   account.ID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeAccountOpened,
		Payload: domain.MarshalState(domain.AccountOpenedEvent{
			AccountID:     account.ID,
			OwnerID:       account.OwnerID,
			AccountNumber: account.AccountNumber,
			Currency:      account.Currency,
		}),
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := uc.audit(txCtx, tx, domain.AuditActionAccountOpen, nil, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsOpened.Inc()
	}

	return account, nil
}

// GetAccount retrieves an account by ID. Customers only see their own accounts.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return ownedAccount(ctx, uc.accountRepo, id)
}

// GetAccountByOwner returns the owner's earliest account that is not closed,
// or the earliest account when all are closed.
func (uc *AccountUseCase) GetAccountByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	accounts, err := uc.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, acc := range accounts {
		if acc.Status != domain.AccountStatusClosed {
			return acc, nil
		}
	}

	return accounts[0], nil
}

// ListAccountsByOwner lists an owner's accounts, oldest first.
func (uc *AccountUseCase) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	accounts, err := uc.accountRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: owner %s", domain.ErrAccountNotFound, ownerID)
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})

	return accounts, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.accountRepo.List(ctx, limit, offset)
}

// FreezeAccount stops all balance mutations on the account.
func (uc *AccountUseCase) FreezeAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.changeStatus(ctx, id, domain.AccountStatusFrozen, domain.AuditActionAccountFreeze)
}

// UnfreezeAccount reactivates a frozen account.
func (uc *AccountUseCase) UnfreezeAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.changeStatus(ctx, id, domain.AccountStatusActive, domain.AuditActionAccountUnfreeze)
}

// CloseAccount closes an account with a zero balance. Closed accounts are kept.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.changeStatus(ctx, id, domain.AccountStatusClosed, domain.AuditActionAccountClose)
}

func (uc *AccountUseCase) changeStatus(
	ctx context.Context,
	id string,
	to domain.AccountStatus,
	action domain.AuditAction,
) (*domain.Account, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, lockError(err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// The row lock orders this change with in-flight balance mutations.
	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, lockError(err)
	}

	if err := account.ValidateTransition(to); err != nil {
		return nil, err
	}

	before := *account
	now := ledgerNow()

	if err := uc.accountRepo.UpdateStatus(txCtx, tx, id, to, now); err != nil {
		return nil, err
	}

	account.Status = to
	account.UpdatedAt = now

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   account.ID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeAccountStatusChanged,
		Payload: domain.MarshalState(domain.AccountStatusChangedEvent{
			AccountID: account.ID,
			From:      string(before.Status),
			To:        string(to),
		}),
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := uc.audit(txCtx, tx, action, &before, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, lockError(err)
	}

	if uc.metrics != nil {
		uc.metrics.AccountStatusChanges.WithLabelValues(string(to)).Inc()
	}

	return account, nil
}

func (uc *AccountUseCase) audit(
	ctx context.Context,
	tx Transaction,
	action domain.AuditAction,
	before, after *domain.Account,
) error {
	if uc.auditRepo == nil {
		return nil
	}

	userID, requestID := "system", ""
	if principal, ok := domain.PrincipalFromContext(ctx); ok {
		userID = principal.OwnerID
		requestID = principal.RequestID
	}

	log := &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		UserID:       userID,
		Action:       string(action),
		ResourceType: domain.AggregateTypeAccount,
		ResourceID:   after.ID,
		RequestID:    requestID,
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    ledgerNow(),
	}

	if before != nil {
		log.BeforeState = domain.MarshalState(before)
	}

	return uc.auditRepo.CreateTx(ctx, tx, log)
}

// GetAuditTrail lists lifecycle audit logs of an account, oldest first.
func (uc *AccountUseCase) GetAuditTrail(ctx context.Context, accountID string) ([]*domain.AuditLog, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	if uc.auditRepo == nil {
		return []*domain.AuditLog{}, nil
	}

	return uc.auditRepo.GetByResourceID(ctx, domain.AggregateTypeAccount, accountID)
}

// ListEvents lists the outbox events raised for an account, published or not.
func (uc *AccountUseCase) ListEvents(ctx context.Context, accountID string, input ListAccountsInput) ([]*domain.OutboxEvent, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.outboxRepo.GetByAggregate(ctx, domain.AggregateTypeAccount, accountID, limit, offset)
}
