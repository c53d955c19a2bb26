package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/bankledger/internal/domain"
)

// PostgreSQL error codes mapped to domain errors.
const (
	pgErrUniqueViolation  = "23505"
	pgErrCheckViolation   = "23514"
	pgErrLockNotAvailable = "55P03"
)

// Constraint names from the migrations.
const (
	constraintIdempotencyKey     = "uq_transactions_idempotency_key"
	constraintAccountNumber      = "uq_accounts_account_number"
	constraintBalanceNonNegative = "chk_accounts_balance_non_negative"
)

// mapError translates driver errors into domain errors. notFound is returned
// for pgx.ErrNoRows.
func mapError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrLockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrLockTimeout, pgErr.Message)
	case pgErrUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintIdempotencyKey:
			return domain.ErrIdempotencyKeyExists
		case constraintAccountNumber:
			return domain.ErrAccountNumberTaken
		}
	case pgErrCheckViolation:
		if pgErr.ConstraintName == constraintBalanceNonNegative {
			return domain.ErrInsufficientFunds
		}
	}

	return err
}
