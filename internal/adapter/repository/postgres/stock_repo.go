package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// StockRepository implements usecase.StockRepository.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new StockRepository.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// Create lists a new symbol.
func (r *StockRepository) Create(ctx context.Context, stock *domain.Stock) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stocks (symbol, display_name, activity_key, price, previous_price, total_shares, volatility, delisted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)`,
		stock.Symbol, stock.DisplayName, stock.ActivityKey,
		decimalToNumeric(stock.Price), decimalToNumeric(stock.PreviousPrice),
		stock.TotalShares, decimalToNumeric(stock.Volatility),
		timeToPgTimestamptz(stock.CreatedAt), timeToPgTimestamptz(stock.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSymbolExists
		}

		return err
	}

	return nil
}

// Get retrieves one symbol.
func (r *StockRepository) Get(ctx context.Context, symbol string) (*domain.Stock, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT symbol, display_name, activity_key, price, previous_price, total_shares, volatility, delisted, created_at, updated_at
		FROM stocks
		WHERE symbol = $1`,
		symbol,
	)

	stock, err := scanStock(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnknownSymbol
		}

		return nil, err
	}

	return stock, nil
}

// List retrieves all symbols, optionally including delisted ones.
func (r *StockRepository) List(ctx context.Context, includeDelisted bool) ([]*domain.Stock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT symbol, display_name, activity_key, price, previous_price, total_shares, volatility, delisted, created_at, updated_at
		FROM stocks
		WHERE delisted = false OR $1
		ORDER BY symbol`,
		includeDelisted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stocks []*domain.Stock

	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, err
		}

		stocks = append(stocks, stock)
	}

	return stocks, rows.Err()
}

// UpdatePrices persists one tick's movements in a single transaction so
// a partial tick never reaches storage.
func (r *StockRepository) UpdatePrices(ctx context.Context, updates []domain.PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`
			UPDATE stocks
			SET price = $2, previous_price = $3, updated_at = now()
			WHERE symbol = $1`,
			u.Symbol, decimalToNumeric(u.Price), decimalToNumeric(u.PreviousPrice),
		)
	}

	results := tx.SendBatch(ctx, batch)

	for range updates {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}

	if err := results.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateTrade persists the post-trade price and the change in shares
// outstanding inside the trade's transaction.
func (r *StockRepository) UpdateTrade(ctx context.Context, tx usecase.Transaction, symbol string, price decimal.Decimal, sharesDelta int64) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE stocks
		SET previous_price = price, price = $2, total_shares = total_shares + $3, updated_at = now()
		WHERE symbol = $1`,
		symbol, decimalToNumeric(price), sharesDelta,
	)

	return err
}

// SetDelisted retires a symbol and zeroes its shares outstanding.
func (r *StockRepository) SetDelisted(ctx context.Context, tx usecase.Transaction, symbol string) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE stocks
		SET delisted = true, total_shares = 0, updated_at = now()
		WHERE symbol = $1`,
		symbol,
	)

	return err
}

func scanStock(row pgx.Row) (*domain.Stock, error) {
	var (
		stock                 domain.Stock
		price, prevPrice, vol pgtype.Numeric
		createdAt, updatedAt  pgtype.Timestamptz
	)

	if err := row.Scan(&stock.Symbol, &stock.DisplayName, &stock.ActivityKey, &price, &prevPrice, &stock.TotalShares, &vol, &stock.Delisted, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	stock.Price = numericToDecimal(price)
	stock.PreviousPrice = numericToDecimal(prevPrice)
	stock.Volatility = numericToDecimal(vol)
	stock.CreatedAt = createdAt.Time
	stock.UpdatedAt = updatedAt.Time

	return &stock, nil
}
