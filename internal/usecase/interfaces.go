package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/domain"
)

// AccountRepository defines data access for wallet and bank balances.
type AccountRepository interface {
	// Touch creates the account with zero balances if it does not exist.
	Touch(ctx context.Context, tx Transaction, userID int64) error
	Get(ctx context.Context, userID int64) (*domain.Account, error)
	CreditWallet(ctx context.Context, tx Transaction, userID, amount int64) error
	// DebitWallet subtracts amount only when the wallet covers it and
	// reports whether the row was updated.
	DebitWallet(ctx context.Context, tx Transaction, userID, amount int64) (bool, error)
	CreditBank(ctx context.Context, tx Transaction, userID, amount int64) error
	DebitBank(ctx context.Context, tx Transaction, userID, amount int64) (bool, error)
	ListAboveTotal(ctx context.Context, threshold int64) ([]*domain.Account, error)
	TopByWallet(ctx context.Context, limit int) ([]*domain.Account, error)
}

// EntryRepository defines data access for the append-only ledger.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error)
	SumByUser(ctx context.Context, userID int64) (int64, error)
}

// XPRepository defines data access for per-scope experience totals.
type XPRepository interface {
	Get(ctx context.Context, key domain.XPKey) (*domain.XPRecord, error)
	// AddBulk upserts every delta in one round trip.
	AddBulk(ctx context.Context, deltas []domain.XPDelta) error
	Top(ctx context.Context, scopeID int64, limit int) ([]*domain.XPRecord, error)
}

// StockRepository defines data access for listed symbols.
type StockRepository interface {
	Create(ctx context.Context, stock *domain.Stock) error
	Get(ctx context.Context, symbol string) (*domain.Stock, error)
	List(ctx context.Context, includeDelisted bool) ([]*domain.Stock, error)
	// UpdatePrices persists one tick's movements in a single transaction.
	UpdatePrices(ctx context.Context, updates []domain.PriceUpdate) error
	// UpdateTrade persists the post-trade price and share delta.
	UpdateTrade(ctx context.Context, tx Transaction, symbol string, price decimal.Decimal, sharesDelta int64) error
	SetDelisted(ctx context.Context, tx Transaction, symbol string) error
}

// HoldingRepository defines data access for user positions.
type HoldingRepository interface {
	Get(ctx context.Context, userID int64, symbol string) (*domain.Holding, error)
	GetForUpdate(ctx context.Context, tx Transaction, userID int64, symbol string) (*domain.Holding, error)
	Upsert(ctx context.Context, tx Transaction, holding *domain.Holding) error
	Remove(ctx context.Context, tx Transaction, userID int64, symbol string) error
	ListByUser(ctx context.Context, userID int64) ([]*domain.Holding, error)
	ListBySymbol(ctx context.Context, tx Transaction, symbol string) ([]*domain.Holding, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Cache is a shared cache for expensive reads.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Retrier re-runs an operation when it fails transiently, such as on a
// database deadlock between opposing transfers.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
