// Package memory is a process-local ledger store for development and tests.
// It honours the same locking contract as the PostgreSQL adapter: balance
// rows locked through a transaction stay locked until Commit or Rollback,
// and writes become visible to other readers only on Commit.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrForeignTx is returned when a repository receives a transaction it did not start.
var ErrForeignTx = errors.New("memory: transaction was not started by this store")

// DefaultCurrencies is the catalog every new Store is seeded with.
var DefaultCurrencies = []domain.Currency{
	{ID: 1, Code: "BTC", Name: "Bitcoin", Kind: domain.CurrencyKindCrypto},
	{ID: 2, Code: "ETH", Name: "Ethereum", Kind: domain.CurrencyKindCrypto},
	{ID: 3, Code: "SOL", Name: "Solana", Kind: domain.CurrencyKindCrypto},
	{ID: 4, Code: "USD", Name: "US Dollar", Kind: domain.CurrencyKindFiat},
	{ID: 5, Code: "EUR", Name: "Euro", Kind: domain.CurrencyKindFiat},
	{ID: 6, Code: "BRL", Name: "Brazilian Real", Kind: domain.CurrencyKindFiat},
}

// Store holds committed state plus the lock tables.
type Store struct {
	mu          sync.RWMutex
	currencies  []domain.Currency
	wallets     map[string]*domain.Wallet
	walletOrder []string
	balances    map[domain.BalanceKey]*domain.Balance
	movements   []domain.Movement
	conversions []domain.Conversion
	transfers   []domain.Transfer

	locksMu     sync.Mutex
	rowLocks    map[domain.BalanceKey]chan struct{}
	walletGates map[string]*sync.RWMutex

	movementSeq   atomic.Int64
	conversionSeq atomic.Int64
	transferSeq   atomic.Int64

	now func() time.Time
}

// New returns an empty store seeded with DefaultCurrencies.
func New() *Store {
	currencies := make([]domain.Currency, len(DefaultCurrencies))
	copy(currencies, DefaultCurrencies)
	return &Store{
		currencies:  currencies,
		wallets:     make(map[string]*domain.Wallet),
		balances:    make(map[domain.BalanceKey]*domain.Balance),
		rowLocks:    make(map[domain.BalanceKey]chan struct{}),
		walletGates: make(map[string]*sync.RWMutex),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) rowLock(key domain.BalanceKey) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.rowLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[key] = ch
	}
	return ch
}

func (s *Store) walletGate(address string) *sync.RWMutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	g, ok := s.walletGates[address]
	if !ok {
		g = &sync.RWMutex{}
		s.walletGates[address] = g
	}
	return g
}

// memTx buffers writes until Commit. Only Commit and Rollback are
// implemented; the embedded pgx.Tx is nil and must not be used.
type memTx struct {
	pgx.Tx

	store    *Store
	mu       sync.Mutex
	done     bool
	rows     map[domain.BalanceKey]chan struct{}
	gates    map[string]*sync.RWMutex
	balances map[domain.BalanceKey]decimal.Decimal
	pending  []func(s *Store)
}

func (s *Store) begin() *memTx {
	return &memTx{
		store:    s,
		rows:     make(map[domain.BalanceKey]chan struct{}),
		gates:    make(map[string]*sync.RWMutex),
		balances: make(map[domain.BalanceKey]decimal.Decimal),
	}
}

func asMemTx(tx pgx.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, ErrForeignTx
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

// lockRow blocks until the row lock is held by this transaction.
func (t *memTx) lockRow(ctx context.Context, key domain.BalanceKey) error {
	t.mu.Lock()
	_, held := t.rows[key]
	t.mu.Unlock()
	if held {
		return nil
	}

	ch := t.store.rowLock(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	t.rows[key] = ch
	t.mu.Unlock()
	return nil
}

func (t *memTx) shareWallet(address string) {
	t.mu.Lock()
	_, held := t.gates[address]
	t.mu.Unlock()
	if held {
		return
	}

	g := t.store.walletGate(address)
	g.RLock()

	t.mu.Lock()
	t.gates[address] = g
	t.mu.Unlock()
}

// balance returns the amount visible to this transaction and whether the row exists.
func (t *memTx) balance(key domain.BalanceKey) (decimal.Decimal, bool) {
	t.mu.Lock()
	amount, ok := t.balances[key]
	t.mu.Unlock()
	if ok {
		return amount, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if b, ok := t.store.balances[key]; ok {
		return b.Amount, true
	}
	return decimal.Zero, false
}

func (t *memTx) setBalance(key domain.BalanceKey, amount decimal.Decimal) {
	t.mu.Lock()
	t.balances[key] = amount
	t.mu.Unlock()
}

func (t *memTx) append(fn func(s *Store)) {
	t.mu.Lock()
	t.pending = append(t.pending, fn)
	t.mu.Unlock()
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return pgx.ErrTxClosed
	}
	t.done = true
	t.mu.Unlock()

	s := t.store
	now := s.now()
	s.mu.Lock()
	for key, amount := range t.balances {
		s.balances[key] = &domain.Balance{
			Address:    key.Address,
			CurrencyID: key.CurrencyID,
			Amount:     amount,
			UpdatedAt:  now,
		}
	}
	for _, fn := range t.pending {
		fn(s)
	}
	s.mu.Unlock()

	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return pgx.ErrTxClosed
	}
	t.done = true
	t.mu.Unlock()

	t.release()
	return nil
}

func (t *memTx) release() {
	for _, ch := range t.rows {
		<-ch
	}
	for _, g := range t.gates {
		g.RUnlock()
	}
	t.rows = nil
	t.gates = nil
	t.balances = nil
	t.pending = nil
}

// Transactor implements ports.DBTransactor.
type Transactor struct {
	store *Store
}

func (s *Store) Transactor() *Transactor {
	return &Transactor{store: s}
}

// Begin starts a transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.store.begin(), nil
}

// Retryable is always false: row locks are exclusive and taken in a
// fixed order, so transactions never abort on conflict.
func (t *Transactor) Retryable(error) bool {
	return false
}

// HealthCheck implements ports.HealthChecker.
type HealthCheck struct{}

func (HealthCheck) Ping(ctx context.Context) error { return ctx.Err() }

func (HealthCheck) Name() string { return "memory" }
