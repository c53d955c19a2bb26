package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// InFlightKeyTTL bounds how long a crashed request can hold its idempotency key.
	InFlightKeyTTL = 30 * time.Second

	// AccountNumberCacheTTL is how long account number lookups are cached.
	// The mapping never changes once assigned.
	AccountNumberCacheTTL = 24 * time.Hour

	accountNumberCachePrefix = "acctno:"

	// openAccountAttempts bounds retries on generated account number collisions.
	openAccountAttempts = 3
)
