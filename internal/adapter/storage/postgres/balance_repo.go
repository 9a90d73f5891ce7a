package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Get fetches one balance row without locking.
func (r *BalanceRepo) Get(ctx context.Context, address string, currencyID int64) (*domain.Balance, error) {
	query := `SELECT address, currency_id, amount, updated_at FROM balances WHERE address = $1 AND currency_id = $2`

	b, err := scanBalance(r.pool.QueryRow(ctx, query, address, currencyID))
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// ListByAddress returns every balance row of a wallet ordered by currency.
func (r *BalanceRepo) ListByAddress(ctx context.Context, address string) ([]domain.Balance, error) {
	query := `SELECT address, currency_id, amount, updated_at FROM balances WHERE address = $1 ORDER BY currency_id`

	rows, err := r.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		var b domain.Balance
		if err := rows.Scan(&b.Address, &b.CurrencyID, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return balances, nil
}

// GetForUpdate fetches a balance row with pessimistic locking.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address string, currencyID int64) (*domain.Balance, error) {
	query := `SELECT address, currency_id, amount, updated_at FROM balances
		WHERE address = $1 AND currency_id = $2 FOR UPDATE`

	b, err := scanBalance(tx.QueryRow(ctx, query, address, currencyID))
	if err != nil {
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// Credit upserts the row, adding amount, and returns the new balance.
func (r *BalanceRepo) Credit(ctx context.Context, tx pgx.Tx, address string, currencyID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `INSERT INTO balances (address, currency_id, amount, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (address, currency_id)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
		RETURNING amount`

	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, query, address, currencyID, amount).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}
	return balance, nil
}

// Debit subtracts amount only if the row holds at least amount.
// A missing or short row returns ports.ErrInsufficientBalance.
func (r *BalanceRepo) Debit(ctx context.Context, tx pgx.Tx, address string, currencyID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE balances SET amount = amount - $3, updated_at = NOW()
		WHERE address = $1 AND currency_id = $2 AND amount >= $3
		RETURNING amount`

	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, query, address, currencyID, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ports.ErrInsufficientBalance
		}
		return decimal.Zero, fmt.Errorf("debit balance: %w", err)
	}
	return balance, nil
}

func scanBalance(row pgx.Row) (*domain.Balance, error) {
	b := &domain.Balance{}
	if err := row.Scan(&b.Address, &b.CurrencyID, &b.Amount, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}
