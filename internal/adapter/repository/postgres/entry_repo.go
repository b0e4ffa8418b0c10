package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository. Ledger entries are
// append-only; there is no update or delete path.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create appends one ledger entry inside the caller's transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	var metadata []byte
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}

		metadata = b
	}

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, category, reason, other_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.Amount, entry.Category, entry.Reason, entry.OtherID, metadata, timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// ListByUser lists a user's entries, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, category, reason, other_id, metadata, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// SumByUser replays the ledger: the sum of all entry amounts for a user.
func (r *EntryRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1`,
		userID,
	).Scan(&sum)

	return sum, err
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry     domain.LedgerEntry
		metadata  []byte
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&entry.ID, &entry.UserID, &entry.Amount, &entry.Category, &entry.Reason, &entry.OtherID, &metadata, &createdAt); err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, err
		}
	}

	entry.CreatedAt = createdAt.Time

	return &entry, nil
}
