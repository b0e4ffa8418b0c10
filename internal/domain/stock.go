package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Stock is the pricing state of one listed symbol. Price is re-derived
// only by the market tick or by a trade's slippage; no other writer.
type Stock struct {
	Symbol        string
	DisplayName   string
	ActivityKey   string
	Price         decimal.Decimal
	PreviousPrice decimal.Decimal
	Volatility    decimal.Decimal
	TotalShares   int64
	Delisted      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Holding is one user's position in one symbol. AvgCost is a weighted
// average recomputed on every buy and left untouched on sell.
type Holding struct {
	UserID  int64
	Symbol  string
	Shares  int64
	AvgCost decimal.Decimal
}

// PriceUpdate is one element of a bulk tick write.
type PriceUpdate struct {
	Symbol        string
	Price         decimal.Decimal
	PreviousPrice decimal.Decimal
}

// TradeSide distinguishes buys from sells.
type TradeSide int

const (
	SideBuy TradeSide = iota
	SideSell
)

// TradeQuote is the slippage-priced execution of a whole order: the
// resting price moves by impactRate per share in the trade direction and
// the order fills at the average of the pre- and post-trade price.
type TradeQuote struct {
	Side           TradeSide
	Shares         int64
	PrePrice       decimal.Decimal
	PostPrice      decimal.Decimal
	ExecutionPrice decimal.Decimal
}

// QuoteTrade computes the slippage quote for an order of the given size
// against the current resting price. The post-trade price never drops
// below floor.
func QuoteTrade(price decimal.Decimal, shares int64, impactRate decimal.Decimal, side TradeSide, floor decimal.Decimal) TradeQuote {
	move := price.Mul(impactRate).Mul(decimal.NewFromInt(shares))

	var post decimal.Decimal
	if side == SideBuy {
		post = price.Add(move)
	} else {
		post = price.Sub(move)
	}

	if post.LessThan(floor) {
		post = floor
	}

	return TradeQuote{
		Side:           side,
		Shares:         shares,
		PrePrice:       price,
		PostPrice:      post,
		ExecutionPrice: price.Add(post).Div(decimal.NewFromInt(2)),
	}
}

// Cost is the wallet debit for a buy: rounded up so rounding never
// favors the buyer.
func (q TradeQuote) Cost() int64 {
	return q.ExecutionPrice.Mul(decimal.NewFromInt(q.Shares)).Ceil().IntPart()
}

// Proceeds is the wallet credit for a sell: rounded down.
func (q TradeQuote) Proceeds() int64 {
	return q.ExecutionPrice.Mul(decimal.NewFromInt(q.Shares)).Floor().IntPart()
}

// WeightedAvgCost recomputes the average cost basis after buying more
// shares for a total of cost. Undefined (zero) when no shares result.
func WeightedAvgCost(oldShares int64, oldAvg decimal.Decimal, newShares int64, cost int64) decimal.Decimal {
	total := oldShares + newShares
	if total <= 0 {
		return decimal.Zero
	}

	oldValue := oldAvg.Mul(decimal.NewFromInt(oldShares))

	return oldValue.Add(decimal.NewFromInt(cost)).Div(decimal.NewFromInt(total))
}

// TickPrice computes one ordinary tick movement: growth is logarithmic
// in the period's activity score and scaled by volatility, decay pulls
// idle prices down, noise is a bounded random perturbation supplied by
// the caller. The result never drops below floor.
func TickPrice(price, volatility decimal.Decimal, activity int64, growthRate, decayRate, noise float64, floor decimal.Decimal) decimal.Decimal {
	vol, _ := volatility.Float64()

	growth := math.Log1p(float64(activity)) * growthRate * vol
	decay := decayRate * vol

	next := price.Mul(decimal.NewFromFloat(1 + growth - decay + noise))
	if next.LessThan(floor) {
		return floor
	}

	return next
}
