package ports

import (
	"context"
	"errors"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound means the provider answered but has no rate for the pair.
var ErrRateNotFound = errors.New("rate not found")

// RateProvider returns the price of one unit of from, expressed in to.
type RateProvider interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// RateCache is the short-lived rate cache in front of a RateProvider.
type RateCache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, from, to string) (rate decimal.Decimal, ok bool, err error)
	Set(ctx context.Context, from, to string, rate decimal.Decimal, ttl time.Duration) error
}

// KeyGenerator produces fresh wallet key material.
type KeyGenerator interface {
	Generate() (address string, privateKey string, err error)
}

// HashService derives and compares one-way secret hashes.
type HashService interface {
	Hash(secret string) string
	Equal(hash, stored string) bool
}

// TokenService handles admin JWT operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
	Role    string
}

// RoleAdmin is the only role tokens are minted for.
const RoleAdmin = "admin"

// --- Service Ports (Business Logic) ---

// WalletService manages wallet state and read-side queries.
type WalletService interface {
	Create(ctx context.Context) (*CreatedWallet, error)
	Get(ctx context.Context, address string) (*domain.Wallet, error)
	List(ctx context.Context) ([]domain.Wallet, error)
	SetStatus(ctx context.Context, address string, status domain.WalletStatus) (*domain.Wallet, error)
	Block(ctx context.Context, address string) (*domain.Wallet, error)
	HashSecret(privateKey string) string
	VerifySecret(ctx context.Context, address string, secretHash string) (bool, error)

	GetBalance(ctx context.Context, address string, currencyID int64) (*domain.Balance, error)
	ListBalances(ctx context.Context, address string) ([]domain.Balance, error)
	ListMovements(ctx context.Context, address string) ([]domain.Movement, error)
	ListConversions(ctx context.Context, address string) ([]domain.Conversion, error)
	ListTransfers(ctx context.Context, address string) ([]domain.Transfer, error)
	GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error)
}

// CreatedWallet carries the private key in clear text. It is returned once, at creation.
type CreatedWallet struct {
	Wallet     domain.Wallet
	PrivateKey string
}

// LedgerService is the balance-mutation engine. Every call is one atomic transaction.
type LedgerService interface {
	Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	Withdraw(ctx context.Context, req WithdrawalRequest) (*WithdrawalResult, error)
	Convert(ctx context.Context, req ConversionRequest) (*ConversionResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// DepositRequest needs no secret: anyone may fund a wallet.
type DepositRequest struct {
	Address    string
	CurrencyID int64
	Amount     decimal.Decimal
}

type WithdrawalRequest struct {
	Address    string
	CurrencyID int64
	Amount     decimal.Decimal
	SecretHash string
}

type ConversionRequest struct {
	Address          string
	SourceCurrencyID int64
	DestCurrencyID   int64
	Amount           decimal.Decimal
	SecretHash       string
}

type TransferRequest struct {
	SourceAddress string
	DestAddress   string
	CurrencyID    int64
	Amount        decimal.Decimal
	SecretHash    string // authorizes the source wallet
}

type DepositResult struct {
	MovementID int64
	Address    string
	CurrencyID int64
	Amount     decimal.Decimal
	OccurredAt time.Time
	Balance    decimal.Decimal
}

type WithdrawalResult struct {
	MovementID int64
	Address    string
	CurrencyID int64
	Amount     decimal.Decimal // gross, excluding fee
	FeeRate    decimal.Decimal
	Fee        decimal.Decimal
	OccurredAt time.Time
	Balance    decimal.Decimal
}

type ConversionResult struct {
	ConversionID     int64
	Address          string
	SourceCurrencyID int64
	DestCurrencyID   int64
	SourceAmount     decimal.Decimal
	DestAmount       decimal.Decimal
	FeePercent       decimal.Decimal
	Rate             decimal.Decimal
	OccurredAt       time.Time
	SourceBalance    decimal.Decimal
	DestBalance      decimal.Decimal
}

type TransferResult struct {
	TransferID    int64
	SourceAddress string
	DestAddress   string
	CurrencyID    int64
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	OccurredAt    time.Time
	SourceBalance decimal.Decimal
	DestBalance   decimal.Decimal
}

// RateService exposes the currency catalog and spot quotes.
type RateService interface {
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
	Quote(ctx context.Context, base, target string) (*Quote, error)
}

type Quote struct {
	Base      string
	Target    string
	Rate      decimal.Decimal
	Timestamp time.Time
}
