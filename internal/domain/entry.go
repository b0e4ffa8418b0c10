package domain

import "time"

// Ledger categories written by the core services.
const (
	CategoryGift         = "gift"
	CategoryAward        = "award"
	CategoryTake         = "take"
	CategoryBankDeposit  = "bank-deposit"
	CategoryBankWithdraw = "bank-withdraw"
	CategoryStockBuy     = "stock-buy"
	CategoryStockSell    = "stock-sell"
	CategoryDelistBuyout = "delist-buyout"
	CategoryDecay        = "decay"
)

// LedgerEntry is an immutable record of a single wallet-affecting event.
// The sum of all entries for a user reconstructs their wallet balance;
// bank movements appear as paired deposit/withdraw wallet deltas.
type LedgerEntry struct {
	CreatedAt time.Time
	Metadata  map[string]any
	ID        string
	Category  string
	Reason    string
	OtherID   *int64
	UserID    int64
	Amount    int64
}
