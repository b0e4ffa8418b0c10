package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/domain"
)

// BalanceResponse represents a user's balances in API responses.
type BalanceResponse struct {
	UserID int64 `json:"user_id"`
	Wallet int64 `json:"wallet"`
	Bank   int64 `json:"bank"`
	Total  int64 `json:"total"`
}

// BalanceFromDomain converts a domain account to a response.
func BalanceFromDomain(a *domain.Account) *BalanceResponse {
	return &BalanceResponse{
		UserID: a.UserID,
		Wallet: a.Wallet,
		Bank:   a.Bank,
		Total:  a.Total(),
	}
}

// BalancesFromDomain converts domain accounts to responses.
func BalancesFromDomain(accounts []*domain.Account) []*BalanceResponse {
	result := make([]*BalanceResponse, len(accounts))
	for i, a := range accounts {
		result[i] = BalanceFromDomain(a)
	}

	return result
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"user_id"`
	Amount    int64          `json:"amount"`
	Category  string         `json:"category"`
	Reason    string         `json:"reason,omitempty"`
	OtherID   *int64         `json:"other_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Amount:    e.Amount,
		Category:  e.Category,
		Reason:    e.Reason,
		OtherID:   e.OtherID,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}

	return result
}

// VerifyResponse reports a ledger replay check.
type VerifyResponse struct {
	UserID   int64 `json:"user_id"`
	Wallet   int64 `json:"wallet"`
	Replayed int64 `json:"replayed"`
	Balanced bool  `json:"balanced"`
}

// LevelResponse represents level statistics in API responses.
type LevelResponse struct {
	UserID     int64 `json:"user_id"`
	ScopeID    int64 `json:"scope_id"`
	Level      int64 `json:"level"`
	LevelXP    int64 `json:"level_xp"`
	RequiredXP int64 `json:"required_xp"`
	TotalXP    int64 `json:"total_xp"`
}

// LevelFromDomain converts level stats to a response.
func LevelFromDomain(key domain.XPKey, s domain.LevelStats) *LevelResponse {
	return &LevelResponse{
		UserID:     key.UserID,
		ScopeID:    key.ScopeID,
		Level:      s.Level,
		LevelXP:    s.LevelXP,
		RequiredXP: s.RequiredXP,
		TotalXP:    s.TotalXP,
	}
}

// XPRecordResponse represents one leaderboard row.
type XPRecordResponse struct {
	UserID int64 `json:"user_id"`
	XP     int64 `json:"xp"`
	Level  int64 `json:"level"`
}

// XPRecordsFromDomain converts leaderboard records to responses.
func XPRecordsFromDomain(records []*domain.XPRecord) []*XPRecordResponse {
	result := make([]*XPRecordResponse, len(records))
	for i, r := range records {
		result[i] = &XPRecordResponse{
			UserID: r.UserID,
			XP:     r.XP,
			Level:  domain.LevelByTotalXP(r.XP),
		}
	}

	return result
}

// StockResponse represents a listed stock in API responses.
type StockResponse struct {
	Symbol        string          `json:"symbol"`
	DisplayName   string          `json:"display_name"`
	Price         decimal.Decimal `json:"price"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	TotalShares   int64           `json:"total_shares"`
	Volatility    decimal.Decimal `json:"volatility"`
	Delisted      bool            `json:"delisted"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockFromDomain converts a domain stock to a response.
func StockFromDomain(s *domain.Stock) *StockResponse {
	return &StockResponse{
		Symbol:        s.Symbol,
		DisplayName:   s.DisplayName,
		Price:         s.Price,
		PreviousPrice: s.PreviousPrice,
		TotalShares:   s.TotalShares,
		Volatility:    s.Volatility,
		Delisted:      s.Delisted,
		UpdatedAt:     s.UpdatedAt,
	}
}

// StocksFromDomain converts domain stocks to responses.
func StocksFromDomain(stocks []*domain.Stock) []*StockResponse {
	result := make([]*StockResponse, len(stocks))
	for i, s := range stocks {
		result[i] = StockFromDomain(s)
	}

	return result
}

// QuoteResponse represents a priced order.
type QuoteResponse struct {
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	Shares         int64           `json:"shares"`
	PrePrice       decimal.Decimal `json:"pre_price"`
	PostPrice      decimal.Decimal `json:"post_price"`
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	Amount         int64           `json:"amount"`
}

// QuoteFromDomain converts a trade quote to a response.
func QuoteFromDomain(symbol string, q domain.TradeQuote) *QuoteResponse {
	side := "buy"
	amount := q.Cost()

	if q.Side == domain.SideSell {
		side = "sell"
		amount = q.Proceeds()
	}

	return &QuoteResponse{
		Symbol:         symbol,
		Side:           side,
		Shares:         q.Shares,
		PrePrice:       q.PrePrice,
		PostPrice:      q.PostPrice,
		ExecutionPrice: q.ExecutionPrice,
		Amount:         amount,
	}
}

// HoldingResponse represents one position in API responses.
type HoldingResponse struct {
	Symbol  string          `json:"symbol"`
	Shares  int64           `json:"shares"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

// HoldingsFromDomain converts domain holdings to responses.
func HoldingsFromDomain(holdings []*domain.Holding) []*HoldingResponse {
	result := make([]*HoldingResponse, len(holdings))
	for i, h := range holdings {
		result[i] = &HoldingResponse{
			Symbol:  h.Symbol,
			Shares:  h.Shares,
			AvgCost: h.AvgCost,
		}
	}

	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
