package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const sqlStateUniqueViolation = "23505"

const walletColumns = `address, secret_hash, status, created_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet. An address collision returns ports.ErrDuplicateAddress.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (address, secret_hash, status, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, w.Address, w.SecretHash, w.Status, w.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation {
			return ports.ErrDuplicateAddress
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByAddress fetches a wallet without locking.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE address = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, address))
	if err != nil {
		return nil, fmt.Errorf("get wallet by address: %w", err)
	}
	return w, nil
}

// List returns every wallet, oldest first.
func (r *WalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY created_at, address`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.Address, &w.SecretHash, &w.Status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return wallets, nil
}

// GetForShare reads the wallet with a shared row lock.
// This MUST be called within a transaction.
func (r *WalletRepo) GetForShare(ctx context.Context, tx pgx.Tx, address string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE address = $1 FOR SHARE`

	w, err := scanWallet(tx.QueryRow(ctx, query, address))
	if err != nil {
		return nil, fmt.Errorf("get wallet for share: %w", err)
	}
	return w, nil
}

// UpdateStatus sets the wallet status and returns the updated wallet, or nil if absent.
func (r *WalletRepo) UpdateStatus(ctx context.Context, address string, status domain.WalletStatus) (*domain.Wallet, error) {
	query := `UPDATE wallets SET status = $1 WHERE address = $2 RETURNING ` + walletColumns

	w, err := scanWallet(r.pool.QueryRow(ctx, query, status, address))
	if err != nil {
		return nil, fmt.Errorf("update wallet status: %w", err)
	}
	return w, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	if err := row.Scan(&w.Address, &w.SecretHash, &w.Status, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
