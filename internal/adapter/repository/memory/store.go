// Package memory is a process-local ledger store. It honours the same row lock
// and atomic commit contract as the Postgres adapter and backs the memory
// storage driver and the concurrency tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// DefaultLockTimeout bounds row lock waits when none is configured.
const DefaultLockTimeout = 5 * time.Second

var errTxDone = errors.New("memory: transaction already finished")

// Store holds committed state. Staged writes become visible only on commit.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	byNumber     map[string]string
	transactions map[string]*domain.Transaction
	byKey        map[string]string
	entries      []*domain.Entry
	outbox       []*domain.OutboxEvent
	audit        []*domain.AuditLog

	locksMu     sync.Mutex
	locks       map[string]chan struct{}
	lockTimeout time.Duration
}

// NewStore creates an empty store whose row locks give up after lockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &Store{
		accounts:     make(map[string]*domain.Account),
		byNumber:     make(map[string]string),
		transactions: make(map[string]*domain.Transaction),
		byKey:        make(map[string]string),
		locks:        make(map[string]chan struct{}),
		lockTimeout:  lockTimeout,
	}
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{
		store:   m.store,
		held:    make(map[string]chan struct{}),
		keys:    make(map[string]*domain.Transaction),
		numbers: make(map[string]string),
	}, nil
}

// Tx buffers writes and holds row locks until Commit or Rollback.
type Tx struct {
	store  *Store
	held   map[string]chan struct{}
	writes []func(s *Store)

	// staged unique keys, visible to reads made through this transaction
	keys    map[string]*domain.Transaction
	numbers map[string]string

	done bool
}

// Commit applies staged writes atomically and releases the locks.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return errTxDone
	}

	defer t.finish()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range t.keys {
		if _, exists := s.byKey[key]; exists {
			return fmt.Errorf("%w: %s", domain.ErrIdempotencyKeyExists, key)
		}
	}

	for number := range t.numbers {
		if _, exists := s.byNumber[number]; exists {
			return fmt.Errorf("%w: %s", domain.ErrAccountNumberTaken, number)
		}
	}

	for _, w := range t.writes {
		w(s)
	}

	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}

	t.finish()

	return nil
}

func (t *Tx) finish() {
	t.done = true
	t.writes = nil

	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

func (t *Tx) stage(w func(s *Store)) error {
	if t.done {
		return errTxDone
	}

	t.writes = append(t.writes, w)

	return nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}

	if t.done {
		return nil, errTxDone
	}

	return t, nil
}

// lock takes the row lock for id, waiting at most the store's lock timeout.
func (s *Store) lock(ctx context.Context, t *Tx, id string) error {
	if _, ok := t.held[id]; ok {
		return nil
	}

	s.locksMu.Lock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	s.locksMu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		t.held[id] = ch
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: account %s", domain.ErrLockTimeout, id)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: account %s", domain.ErrLockTimeout, id)
		}
		return ctx.Err()
	}
}

func (t *Tx) requireLock(id string) error {
	if _, ok := t.held[id]; !ok {
		return fmt.Errorf("memory: account %s is not locked by this transaction", id)
	}

	return nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.SourceAccountID != nil {
		id := *t.SourceAccountID
		c.SourceAccountID = &id
	}

	if t.DestinationAccountID != nil {
		id := *t.DestinationAccountID
		c.DestinationAccountID = &id
	}

	return &c
}

func sortNewestFirst(txs []*domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID > txs[j].ID
	})
}
