package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ConversionRepo implements ports.ConversionRepository.
type ConversionRepo struct {
	pool Pool
}

// NewConversionRepo creates a new ConversionRepo.
func NewConversionRepo(pool Pool) *ConversionRepo {
	return &ConversionRepo{pool: pool}
}

// Create appends a conversion within a transaction and sets its ID.
func (r *ConversionRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Conversion) error {
	query := `INSERT INTO conversions
		(address, source_currency_id, dest_currency_id, source_amount, dest_amount, fee_percent, rate, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	err := tx.QueryRow(ctx, query,
		c.Address, c.SourceCurrencyID, c.DestCurrencyID,
		c.SourceAmount, c.DestAmount, c.FeePercent, c.Rate, c.OccurredAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// ListByAddress returns a wallet's conversions in insertion order.
func (r *ConversionRepo) ListByAddress(ctx context.Context, address string) ([]domain.Conversion, error) {
	query := `SELECT id, address, source_currency_id, dest_currency_id, source_amount, dest_amount,
		fee_percent, rate, occurred_at
		FROM conversions WHERE address = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var conversions []domain.Conversion
	for rows.Next() {
		var c domain.Conversion
		if err := rows.Scan(
			&c.ID, &c.Address, &c.SourceCurrencyID, &c.DestCurrencyID,
			&c.SourceAmount, &c.DestAmount, &c.FeePercent, &c.Rate, &c.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		conversions = append(conversions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return conversions, nil
}
