package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// HoldingRepository implements usecase.HoldingRepository.
type HoldingRepository struct {
	pool *pgxpool.Pool
}

// NewHoldingRepository creates a new HoldingRepository.
func NewHoldingRepository(pool *pgxpool.Pool) *HoldingRepository {
	return &HoldingRepository{pool: pool}
}

// Get retrieves one position.
func (r *HoldingRepository) Get(ctx context.Context, userID int64, symbol string) (*domain.Holding, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, symbol, shares, avg_cost
		FROM holdings
		WHERE user_id = $1 AND symbol = $2`,
		userID, symbol,
	)

	return scanHolding(row)
}

// GetForUpdate retrieves one position with a row lock held for the rest
// of the transaction.
func (r *HoldingRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, userID int64, symbol string) (*domain.Holding, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT user_id, symbol, shares, avg_cost
		FROM holdings
		WHERE user_id = $1 AND symbol = $2
		FOR UPDATE`,
		userID, symbol,
	)

	return scanHolding(row)
}

// Upsert writes a position's share count and cost basis.
func (r *HoldingRepository) Upsert(ctx context.Context, tx usecase.Transaction, holding *domain.Holding) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO holdings (user_id, symbol, shares, avg_cost, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, symbol)
		DO UPDATE SET shares = EXCLUDED.shares, avg_cost = EXCLUDED.avg_cost, updated_at = now()`,
		holding.UserID, holding.Symbol, holding.Shares, decimalToNumeric(holding.AvgCost),
	)

	return err
}

// Remove deletes a closed position.
func (r *HoldingRepository) Remove(ctx context.Context, tx usecase.Transaction, userID int64, symbol string) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		DELETE FROM holdings
		WHERE user_id = $1 AND symbol = $2`,
		userID, symbol,
	)

	return err
}

// ListByUser lists a user's open positions.
func (r *HoldingRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Holding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, symbol, shares, avg_cost
		FROM holdings
		WHERE user_id = $1
		ORDER BY symbol`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectHoldings(rows)
}

// ListBySymbol lists every position in a symbol, locked for the delist
// buyout.
func (r *HoldingRepository) ListBySymbol(ctx context.Context, tx usecase.Transaction, symbol string) ([]*domain.Holding, error) {
	pgxTx := tx.(*Tx).PgxTx()

	rows, err := pgxTx.Query(ctx, `
		SELECT user_id, symbol, shares, avg_cost
		FROM holdings
		WHERE symbol = $1
		ORDER BY user_id
		FOR UPDATE`,
		symbol,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectHoldings(rows)
}

func scanHolding(row pgx.Row) (*domain.Holding, error) {
	var (
		holding domain.Holding
		avgCost pgtype.Numeric
	)

	if err := row.Scan(&holding.UserID, &holding.Symbol, &holding.Shares, &avgCost); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	holding.AvgCost = numericToDecimal(avgCost)

	return &holding, nil
}

func collectHoldings(rows pgx.Rows) ([]*domain.Holding, error) {
	var holdings []*domain.Holding

	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}

		holdings = append(holdings, holding)
	}

	return holdings, rows.Err()
}
