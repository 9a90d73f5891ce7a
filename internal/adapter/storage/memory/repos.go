package memory

import (
	"context"
	"sort"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.Address]; ok {
		return ports.ErrDuplicateAddress
	}
	cp := *w
	r.s.wallets[w.Address] = &cp
	r.s.walletOrder = append(r.s.walletOrder, w.Address)
	return nil
}

func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[address]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *WalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wallets := make([]domain.Wallet, 0, len(r.s.walletOrder))
	for _, addr := range r.s.walletOrder {
		wallets = append(wallets, *r.s.wallets[addr])
	}
	return wallets, nil
}

// GetForShare holds the wallet gate in shared mode until tx ends.
func (r *WalletRepo) GetForShare(ctx context.Context, tx pgx.Tx, address string) (*domain.Wallet, error) {
	mt, err := asMemTx(tx)
	if err != nil {
		return nil, err
	}
	mt.shareWallet(address)
	return r.GetByAddress(ctx, address)
}

// UpdateStatus waits for every transaction sharing the wallet to finish.
func (r *WalletRepo) UpdateStatus(ctx context.Context, address string, status domain.WalletStatus) (*domain.Wallet, error) {
	g := r.s.walletGate(address)
	g.Lock()
	defer g.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[address]
	if !ok {
		return nil, nil
	}
	w.Status = status
	cp := *w
	return &cp, nil
}

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct{ s *Store }

func (s *Store) Balances() *BalanceRepo { return &BalanceRepo{s: s} }

func (r *BalanceRepo) Get(ctx context.Context, address string, currencyID int64) (*domain.Balance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.balances[domain.BalanceKey{Address: address, CurrencyID: currencyID}]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *BalanceRepo) ListByAddress(ctx context.Context, address string) ([]domain.Balance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var balances []domain.Balance
	for key, b := range r.s.balances {
		if key.Address == address {
			balances = append(balances, *b)
		}
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].CurrencyID < balances[j].CurrencyID })
	return balances, nil
}

func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address string, currencyID int64) (*domain.Balance, error) {
	mt, err := asMemTx(tx)
	if err != nil {
		return nil, err
	}
	key := domain.BalanceKey{Address: address, CurrencyID: currencyID}
	if err := mt.lockRow(ctx, key); err != nil {
		return nil, err
	}
	amount, ok := mt.balance(key)
	if !ok {
		return nil, nil
	}
	return &domain.Balance{Address: address, CurrencyID: currencyID, Amount: amount}, nil
}

func (r *BalanceRepo) Credit(ctx context.Context, tx pgx.Tx, address string, currencyID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	mt, err := asMemTx(tx)
	if err != nil {
		return decimal.Zero, err
	}
	key := domain.BalanceKey{Address: address, CurrencyID: currencyID}
	if err := mt.lockRow(ctx, key); err != nil {
		return decimal.Zero, err
	}
	current, _ := mt.balance(key)
	next := current.Add(amount)
	mt.setBalance(key, next)
	return next, nil
}

func (r *BalanceRepo) Debit(ctx context.Context, tx pgx.Tx, address string, currencyID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	mt, err := asMemTx(tx)
	if err != nil {
		return decimal.Zero, err
	}
	key := domain.BalanceKey{Address: address, CurrencyID: currencyID}
	if err := mt.lockRow(ctx, key); err != nil {
		return decimal.Zero, err
	}
	current, ok := mt.balance(key)
	if !ok || current.LessThan(amount) {
		return decimal.Zero, ports.ErrInsufficientBalance
	}
	next := current.Sub(amount)
	mt.setBalance(key, next)
	return next, nil
}

// MovementRepo implements ports.MovementRepository.
type MovementRepo struct{ s *Store }

func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

func (r *MovementRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Movement) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}
	m.ID = r.s.movementSeq.Add(1)
	cp := *m
	mt.append(func(s *Store) { s.movements = append(s.movements, cp) })
	return nil
}

func (r *MovementRepo) ListByAddress(ctx context.Context, address string) ([]domain.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Movement
	for _, m := range r.s.movements {
		if m.Address == address {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ConversionRepo implements ports.ConversionRepository.
type ConversionRepo struct{ s *Store }

func (s *Store) Conversions() *ConversionRepo { return &ConversionRepo{s: s} }

func (r *ConversionRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Conversion) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}
	c.ID = r.s.conversionSeq.Add(1)
	cp := *c
	mt.append(func(s *Store) { s.conversions = append(s.conversions, cp) })
	return nil
}

func (r *ConversionRepo) ListByAddress(ctx context.Context, address string) ([]domain.Conversion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Conversion
	for _, c := range r.s.conversions {
		if c.Address == address {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct{ s *Store }

func (s *Store) Transfers() *TransferRepo { return &TransferRepo{s: s} }

func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}
	t.ID = r.s.transferSeq.Add(1)
	cp := *t
	mt.append(func(s *Store) { s.transfers = append(s.transfers, cp) })
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, id int64) (*domain.Transfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.transfers {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *TransferRepo) ListByAddress(ctx context.Context, address string) ([]domain.Transfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Transfer
	for _, t := range r.s.transfers {
		if t.SourceAddress == address || t.DestAddress == address {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CurrencyRepo implements ports.CurrencyRepository.
type CurrencyRepo struct{ s *Store }

func (s *Store) Currencies() *CurrencyRepo { return &CurrencyRepo{s: s} }

func (r *CurrencyRepo) List(ctx context.Context) ([]domain.Currency, error) {
	out := make([]domain.Currency, len(r.s.currencies))
	copy(out, r.s.currencies)
	return out, nil
}

func (r *CurrencyRepo) GetByID(ctx context.Context, id int64) (*domain.Currency, error) {
	for _, c := range r.s.currencies {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *CurrencyRepo) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	for _, c := range r.s.currencies {
		if c.Code == code {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

var (
	_ ports.WalletRepository     = (*WalletRepo)(nil)
	_ ports.BalanceRepository    = (*BalanceRepo)(nil)
	_ ports.MovementRepository   = (*MovementRepo)(nil)
	_ ports.ConversionRepository = (*ConversionRepo)(nil)
	_ ports.TransferRepository   = (*TransferRepo)(nil)
	_ ports.CurrencyRepository   = (*CurrencyRepo)(nil)
	_ ports.DBTransactor         = (*Transactor)(nil)
	_ ports.HealthChecker        = HealthCheck{}
)
