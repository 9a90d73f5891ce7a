package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CurrencyRepo implements ports.CurrencyRepository.
type CurrencyRepo struct {
	pool Pool
}

// NewCurrencyRepo creates a new CurrencyRepo.
func NewCurrencyRepo(pool Pool) *CurrencyRepo {
	return &CurrencyRepo{pool: pool}
}

func (r *CurrencyRepo) List(ctx context.Context) ([]domain.Currency, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, kind FROM currencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []domain.Currency
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate currencies: %w", err)
	}
	return currencies, nil
}

func (r *CurrencyRepo) GetByID(ctx context.Context, id int64) (*domain.Currency, error) {
	c, err := scanCurrency(r.pool.QueryRow(ctx, `SELECT id, code, name, kind FROM currencies WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get currency by id: %w", err)
	}
	return c, nil
}

func (r *CurrencyRepo) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	c, err := scanCurrency(r.pool.QueryRow(ctx, `SELECT id, code, name, kind FROM currencies WHERE code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("get currency by code: %w", err)
	}
	return c, nil
}

func scanCurrency(row pgx.Row) (*domain.Currency, error) {
	c := &domain.Currency{}
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
