package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// MovementRepo implements ports.MovementRepository.
type MovementRepo struct {
	pool Pool
}

// NewMovementRepo creates a new MovementRepo.
func NewMovementRepo(pool Pool) *MovementRepo {
	return &MovementRepo{pool: pool}
}

// Create appends a movement within a transaction and sets its ID.
func (r *MovementRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Movement) error {
	query := `INSERT INTO movements (address, currency_id, kind, amount, fee, conversion_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	err := tx.QueryRow(ctx, query,
		m.Address, m.CurrencyID, m.Kind, m.Amount, m.Fee, m.ConversionID, m.OccurredAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListByAddress returns a wallet's movements in insertion order.
func (r *MovementRepo) ListByAddress(ctx context.Context, address string) ([]domain.Movement, error) {
	query := `SELECT id, address, currency_id, kind, amount, fee, conversion_id, occurred_at
		FROM movements WHERE address = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(
			&m.ID, &m.Address, &m.CurrencyID, &m.Kind,
			&m.Amount, &m.Fee, &m.ConversionID, &m.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}
	return movements, nil
}
