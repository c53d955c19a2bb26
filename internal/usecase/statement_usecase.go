package usecase

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
)

// StatementUseCase serves account statements.
type StatementUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// NewStatementUseCase creates a new StatementUseCase.
func NewStatementUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository) *StatementUseCase {
	return &StatementUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// StatementPage is one page of an account statement, newest first.
type StatementPage struct {
	Transactions []*domain.Transaction
	// NextCursor is empty on the last page.
	NextCursor string
}

// GetStatement returns transactions where the account is source or destination.
// Pages are keyed on (createdAt, id) so inserts between calls do not shift them.
func (uc *StatementUseCase) GetStatement(ctx context.Context, accountID string, limit int, cursor string) (page *StatementPage, err error) {
	ctx, span := tracer.Start(ctx, "ledger.statement")
	defer func() { endSpan(span, err) }()

	after, err := domain.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	if _, err := ownedAccount(ctx, uc.accountRepo, accountID); err != nil {
		return nil, err
	}

	limit = domain.ValidatePageLimit(limit)

	// One extra row tells us whether another page exists.
	transactions, err := uc.transactionRepo.ListByAccount(ctx, accountID, after, limit+1)
	if err != nil {
		return nil, err
	}

	page = &StatementPage{Transactions: transactions}
	if len(transactions) > limit {
		page.Transactions = transactions[:limit]
		page.NextCursor = domain.CursorFor(page.Transactions[limit-1]).Encode()
	}

	return page, nil
}
