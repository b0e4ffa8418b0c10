package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lowkeylabs/guildbank/internal/domain"
)

// XPRepository implements usecase.XPRepository.
type XPRepository struct {
	pool *pgxpool.Pool
}

// NewXPRepository creates a new XPRepository.
func NewXPRepository(pool *pgxpool.Pool) *XPRepository {
	return &XPRepository{pool: pool}
}

// Get retrieves the durable total for one key.
func (r *XPRepository) Get(ctx context.Context, key domain.XPKey) (*domain.XPRecord, error) {
	record := domain.XPRecord{UserID: key.UserID, ScopeID: key.ScopeID}

	err := r.pool.QueryRow(ctx, `
		SELECT xp
		FROM xp_records
		WHERE user_id = $1 AND scope_id = $2`,
		key.UserID, key.ScopeID,
	).Scan(&record.XP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return &record, nil
}

// AddBulk upserts a whole flush batch in one pipelined round trip.
func (r *XPRepository) AddBulk(ctx context.Context, deltas []domain.XPDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range deltas {
		batch.Queue(`
			INSERT INTO xp_records (user_id, scope_id, xp, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (user_id, scope_id)
			DO UPDATE SET xp = xp_records.xp + EXCLUDED.xp, updated_at = now()`,
			d.UserID, d.ScopeID, d.Amount,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range deltas {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// Top lists the highest totals in a scope.
func (r *XPRepository) Top(ctx context.Context, scopeID int64, limit int) ([]*domain.XPRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, scope_id, xp
		FROM xp_records
		WHERE scope_id = $1
		ORDER BY xp DESC, user_id
		LIMIT $2`,
		scopeID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.XPRecord

	for rows.Next() {
		var record domain.XPRecord
		if err := rows.Scan(&record.UserID, &record.ScopeID, &record.XP); err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
