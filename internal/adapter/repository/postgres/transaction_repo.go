package postgres

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		queries: generated.New(db),
	}
}

// Create inserts a final transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	if !t.IsFinal() {
		return domain.ErrInvalidTransactionState
	}

	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	err = queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:                   t.ID,
		IdempotencyKey:       t.IdempotencyKey,
		Type:                 string(t.Type),
		Status:               string(t.Status),
		SourceAccountID:      stringToPgText(t.SourceAccountID),
		DestinationAccountID: stringToPgText(t.DestinationAccountID),
		ExternalDestination:  t.ExternalDestination,
		Amount:               decimalToNumeric(t.Amount),
		Currency:             t.Currency,
		Category:             t.Category,
		Description:          t.Description,
		FailureCode:          t.FailureCode,
		CreatedAt:            timeToPgTimestamptz(t.CreatedAt),
	})

	return mapError(err, nil)
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound)
	}

	return rowToTransaction(row), nil
}

// GetByIdempotencyKey retrieves the transaction recorded under key.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound)
	}

	return rowToTransaction(row), nil
}

// GetByIdempotencyKeyTx is GetByIdempotencyKey inside tx.
func (r *TransactionRepository) GetByIdempotencyKeyTx(ctx context.Context, tx usecase.Transaction, key string) (*domain.Transaction, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound)
	}

	return rowToTransaction(row), nil
}

// ListByAccount returns a page of the account's transactions, newest first.
func (r *TransactionRepository) ListByAccount(
	ctx context.Context,
	accountID string,
	cursor *domain.Cursor,
	limit int,
) ([]*domain.Transaction, error) {
	params := generated.ListTransactionsByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
	}
	if cursor != nil {
		params.HasCursor = true
		params.CursorCreatedAt = timeToPgTimestamptz(cursor.CreatedAt)
		params.CursorID = cursor.ID
	}

	rows, err := r.queries.ListTransactionsByAccount(ctx, params)
	if err != nil {
		return nil, mapError(err, nil)
	}

	transactions := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, rowToTransaction(row))
	}

	return transactions, nil
}

// BalanceSnapshot reads the balance and the transaction sum in one statement,
// so both come from the same snapshot.
func (r *TransactionRepository) BalanceSnapshot(ctx context.Context, accountID string) (usecase.BalanceSnapshot, error) {
	row, err := r.queries.GetAccountBalanceSnapshot(ctx, accountID)
	if err != nil {
		return usecase.BalanceSnapshot{}, mapError(err, domain.ErrAccountNotFound)
	}

	return usecase.BalanceSnapshot{
		Recorded:   numericToDecimal(row.Recorded),
		Calculated: numericToDecimal(row.Calculated),
	}, nil
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:                   row.ID,
		IdempotencyKey:       row.IdempotencyKey,
		Type:                 domain.TransactionType(row.Type),
		Status:               domain.TransactionStatus(row.Status),
		SourceAccountID:      pgTextToString(row.SourceAccountID),
		DestinationAccountID: pgTextToString(row.DestinationAccountID),
		ExternalDestination:  row.ExternalDestination,
		Amount:               numericToDecimal(row.Amount),
		Currency:             row.Currency,
		Category:             row.Category,
		Description:          row.Description,
		FailureCode:          row.FailureCode,
		CreatedAt:            row.CreatedAt.Time,
	}
}
