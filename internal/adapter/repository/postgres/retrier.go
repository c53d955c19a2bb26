package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
)

// PostgreSQL error codes for retryable errors.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// errStaleVersion reports a guarded balance update that matched no row.
var errStaleVersion = errors.New("account changed since it was read")

// RetrierConfig bounds how a unit of work is re-run.
type RetrierConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetrierConfig suits short ledger units under row locks.
var DefaultRetrierConfig = RetrierConfig{
	MaxRetries:      3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
	MaxElapsedTime:  10 * time.Second,
}

// Retrier re-runs a whole ledger unit when Postgres aborted it for reasons
// that a fresh attempt can clear: deadlocks, serialization failures and stale
// versions. Lock timeouts are surfaced to the caller untouched.
type Retrier struct {
	cfg    RetrierConfig
	logger zerolog.Logger
}

// NewRetrier creates a retrier with DefaultRetrierConfig.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithConfig(logger, DefaultRetrierConfig)
}

// NewRetrierWithConfig creates a retrier with explicit bounds.
func NewRetrierWithConfig(logger zerolog.Logger, cfg RetrierConfig) *Retrier {
	return &Retrier{
		cfg:    cfg,
		logger: logger.With().Str("component", "retrier").Logger(),
	}
}

// Retry runs operation until it succeeds, fails permanently or the retry
// budget is spent. A contention error that outlives the budget is reported as
// domain.ErrLockTimeout so callers can retry later.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = r.cfg.MaxElapsedTime

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err == nil || !isRetryableError(err) {
			return permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Int("retry", attempt).
			Dur("backoff", wait).
			Msg("retryable database error, retrying")
	})

	if err != nil && isRetryableError(err) {
		return fmt.Errorf("%w: still contended after %d attempts: %w", domain.ErrLockTimeout, attempt, err)
	}

	return err
}

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// isRetryableError checks if an aborted unit may succeed when run again.
func isRetryableError(err error) bool {
	if errors.Is(err, errStaleVersion) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure:
			return true
		}
	}
	return false
}
