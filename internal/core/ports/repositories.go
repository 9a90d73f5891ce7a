package ports

import (
	"context"
	"errors"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned by BalanceRepository.Debit when the row is short.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDuplicateAddress is returned by WalletRepository.Create on an address collision.
	ErrDuplicateAddress = errors.New("wallet address already exists")
)

// WalletRepository defines persistence operations for wallets.
// Lookups return nil, nil when the wallet does not exist.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
	List(ctx context.Context) ([]domain.Wallet, error)
	// GetForShare reads the wallet inside tx, holding a shared lock that
	// serialises with UpdateStatus until the transaction ends.
	GetForShare(ctx context.Context, tx pgx.Tx, address string) (*domain.Wallet, error)
	UpdateStatus(ctx context.Context, address string, status domain.WalletStatus) (*domain.Wallet, error)
}

// BalanceRepository defines persistence operations for per-currency balances.
// Methods accepting pgx.Tx run inside the caller's transaction; the
// repository never opens its own.
type BalanceRepository interface {
	Get(ctx context.Context, address string, currencyID int64) (*domain.Balance, error)
	ListByAddress(ctx context.Context, address string) ([]domain.Balance, error)
	// GetForUpdate locks the row until tx ends. Returns nil, nil if the row does not exist yet.
	GetForUpdate(ctx context.Context, tx pgx.Tx, address string, currencyID int64) (*domain.Balance, error)
	// Credit creates the row at amount or adds amount to it, returning the new balance.
	Credit(ctx context.Context, tx pgx.Tx, address string, currencyID int64, amount decimal.Decimal) (decimal.Decimal, error)
	// Debit subtracts amount, returning the new balance or ErrInsufficientBalance.
	Debit(ctx context.Context, tx pgx.Tx, address string, currencyID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// MovementRepository is the append-only deposit/withdrawal ledger.
type MovementRepository interface {
	// Create assigns the store-generated ID to movement.
	Create(ctx context.Context, tx pgx.Tx, movement *domain.Movement) error
	ListByAddress(ctx context.Context, address string) ([]domain.Movement, error)
}

// ConversionRepository is the append-only conversion ledger.
type ConversionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, conversion *domain.Conversion) error
	ListByAddress(ctx context.Context, address string) ([]domain.Conversion, error)
}

// TransferRepository is the append-only transfer ledger.
type TransferRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id int64) (*domain.Transfer, error)
	// ListByAddress returns transfers where address is the source or the destination.
	ListByAddress(ctx context.Context, address string) ([]domain.Transfer, error)
}

// CurrencyRepository reads the currency catalog.
type CurrencyRepository interface {
	List(ctx context.Context) ([]domain.Currency, error)
	GetByID(ctx context.Context, id int64) (*domain.Currency, error)
	GetByCode(ctx context.Context, code string) (*domain.Currency, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	// Retryable reports whether err is a transient concurrent-update conflict
	// that may succeed if the whole transaction is run again.
	Retryable(err error) bool
}
