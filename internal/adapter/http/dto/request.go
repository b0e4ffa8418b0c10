package dto

import (
	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// CreditRequest represents an administrative wallet award.
type CreditRequest struct {
	Amount   int64          `json:"amount"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreditRequest) ToUseCaseInput(userID int64) usecase.CreditInput {
	return usecase.CreditInput{
		UserID:   userID,
		Amount:   r.Amount,
		Reason:   r.Reason,
		Metadata: r.Metadata,
	}
}

// DebitRequest represents an administrative wallet removal.
type DebitRequest struct {
	Amount   int64          `json:"amount"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *DebitRequest) ToUseCaseInput(userID int64) usecase.DebitInput {
	return usecase.DebitInput{
		UserID:   userID,
		Amount:   r.Amount,
		Reason:   r.Reason,
		Metadata: r.Metadata,
	}
}

// TransferRequest represents a user-to-user gift.
type TransferRequest struct {
	FromUserID int64          `json:"from_user_id"`
	ToUserID   int64          `json:"to_user_id"`
	Amount     int64          `json:"amount"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Amount:     r.Amount,
		Reason:     r.Reason,
		Metadata:   r.Metadata,
	}
}

// BankRequest represents a deposit or withdrawal amount.
type BankRequest struct {
	Amount int64 `json:"amount"`
}

// XPGainRequest represents one experience gain event.
type XPGainRequest struct {
	UserID  int64 `json:"user_id"`
	ScopeID int64 `json:"scope_id"`
	Amount  int64 `json:"amount"`
}

// ActivityRequest represents chat activity feeding the market tick.
type ActivityRequest struct {
	ActivityKey string `json:"activity_key"`
	Amount      int64  `json:"amount"`
}

// IssueStockRequest represents a request to list a new stock.
type IssueStockRequest struct {
	Symbol       string          `json:"symbol"`
	DisplayName  string          `json:"display_name"`
	ActivityKey  string          `json:"activity_key"`
	InitialPrice decimal.Decimal `json:"initial_price"`
	Volatility   decimal.Decimal `json:"volatility"`
}

// ToUseCaseInput converts to use case input.
func (r *IssueStockRequest) ToUseCaseInput() usecase.IssueInput {
	return usecase.IssueInput{
		Symbol:       r.Symbol,
		DisplayName:  r.DisplayName,
		ActivityKey:  r.ActivityKey,
		InitialPrice: r.InitialPrice,
		Volatility:   r.Volatility,
	}
}

// TradeRequest represents a buy or sell order.
type TradeRequest struct {
	UserID int64 `json:"user_id"`
	Shares int64 `json:"shares"`
}
