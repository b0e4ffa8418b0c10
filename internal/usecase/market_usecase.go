package usecase

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/metrics"
)

// MarketConfig holds the tuning knobs of the price engine.
type MarketConfig struct {
	GrowthRate      float64
	DecayRate       float64
	NoiseAmplitude  float64
	EventChance     float64
	SurgeMultiplier float64
	CrashMultiplier float64
	ImpactRate      decimal.Decimal
	PriceFloor      decimal.Decimal
	MaxTradeShares  int64
}

// MarketUseCase runs the stock price engine. Listed symbols live in an
// in-memory book that is the pricing source of truth between ticks; the
// database holds the durable copy and is updated before the book, so a
// failed write never leaves memory ahead of storage.
type MarketUseCase struct {
	cfg         MarketConfig
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	stockRepo   StockRepository
	holdingRepo HoldingRepository
	idGen       IDGenerator
	rng         *rand.Rand
	metrics     *metrics.Metrics

	// engineMu serializes ticks and trades against the book.
	engineMu sync.Mutex
	book     map[string]*domain.Stock

	// actMu guards the per-period activity counters so recording a
	// message never waits on a tick or a trade.
	actMu    sync.Mutex
	activity map[string]int64
}

// NewMarketUseCase creates a new MarketUseCase. The rand source is
// injected so tests can pin the noise and event rolls.
func NewMarketUseCase(
	cfg MarketConfig,
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	stockRepo StockRepository,
	holdingRepo HoldingRepository,
	idGen IDGenerator,
	rng *rand.Rand,
) *MarketUseCase {
	return &MarketUseCase{
		cfg:         cfg,
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		stockRepo:   stockRepo,
		holdingRepo: holdingRepo,
		idGen:       idGen,
		rng:         rng,
		book:        make(map[string]*domain.Stock),
		activity:    make(map[string]int64),
	}
}

// WithMetrics attaches Prometheus instrumentation.
func (uc *MarketUseCase) WithMetrics(m *metrics.Metrics) *MarketUseCase {
	uc.metrics = m
	return uc
}

// Load populates the in-memory book from storage. Call once at startup
// before the tick scheduler starts.
func (uc *MarketUseCase) Load(ctx context.Context) (int, error) {
	stocks, err := uc.stockRepo.List(ctx, true)
	if err != nil {
		return 0, err
	}

	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	uc.book = make(map[string]*domain.Stock, len(stocks))

	listed := 0
	for _, s := range stocks {
		uc.book[s.Symbol] = s
		if !s.Delisted {
			listed++
		}
	}

	if uc.metrics != nil {
		uc.metrics.ListedSymbols.Set(float64(listed))
	}

	return len(stocks), nil
}

// RecordActivity adds to the activity score that feeds the next tick's
// growth term for every stock keyed on the given channel group.
func (uc *MarketUseCase) RecordActivity(activityKey string, amount int64) {
	if amount <= 0 {
		return
	}

	uc.actMu.Lock()
	uc.activity[activityKey] += amount
	uc.actMu.Unlock()
}

// Tick advances every listed price by one period: logarithmic growth
// from activity, volatility-scaled decay, bounded noise, then a rare
// market-wide surge or crash on top. Storage is written first; the book
// and the consumed activity counters only change after the write lands.
func (uc *MarketUseCase) Tick(ctx context.Context) error {
	started := time.Now()

	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	uc.actMu.Lock()
	scores := uc.activity
	uc.activity = make(map[string]int64)
	uc.actMu.Unlock()

	eventMult := uc.rollEvent()

	updates := make([]domain.PriceUpdate, 0, len(uc.book))
	next := make(map[string]decimal.Decimal, len(uc.book))

	for symbol, stock := range uc.book {
		if stock.Delisted {
			continue
		}

		noise := (uc.rng.Float64()*2 - 1) * uc.cfg.NoiseAmplitude

		price := domain.TickPrice(stock.Price, stock.Volatility, scores[stock.ActivityKey], uc.cfg.GrowthRate, uc.cfg.DecayRate, noise, uc.cfg.PriceFloor)

		if eventMult != 0 {
			price = price.Mul(decimal.NewFromFloat(eventMult))
			if price.LessThan(uc.cfg.PriceFloor) {
				price = uc.cfg.PriceFloor
			}
		}

		next[symbol] = price
		updates = append(updates, domain.PriceUpdate{
			Symbol:        symbol,
			Price:         price,
			PreviousPrice: stock.Price,
		})
	}

	if len(updates) == 0 {
		return nil
	}

	if err := uc.stockRepo.UpdatePrices(ctx, updates); err != nil {
		// Give the consumed activity back so the next tick still sees it.
		uc.actMu.Lock()
		for key, amount := range scores {
			uc.activity[key] += amount
		}
		uc.actMu.Unlock()

		return err
	}

	now := time.Now().UTC()
	for symbol, price := range next {
		stock := uc.book[symbol]
		stock.PreviousPrice = stock.Price
		stock.Price = price
		stock.UpdatedAt = now
	}

	if uc.metrics != nil {
		uc.metrics.TicksTotal.Inc()
		uc.metrics.TickDuration.Observe(time.Since(started).Seconds())

		if eventMult != 0 {
			kind := "crash"
			if eventMult > 1 {
				kind = "surge"
			}

			uc.metrics.MarketEvents.WithLabelValues(kind).Inc()
		}

		for symbol, price := range next {
			uc.metrics.StockPrice.WithLabelValues(symbol).Set(price.InexactFloat64())
		}
	}

	return nil
}

// rollEvent returns 0 most ticks, or the surge/crash multiplier when a
// market-wide event fires. Surge and crash are equally likely.
func (uc *MarketUseCase) rollEvent() float64 {
	if uc.rng.Float64() >= uc.cfg.EventChance {
		return 0
	}

	if uc.rng.Float64() < 0.5 {
		return uc.cfg.SurgeMultiplier
	}

	return uc.cfg.CrashMultiplier
}

// Quote prices an order against the current book without executing it.
func (uc *MarketUseCase) Quote(symbol string, shares int64, side domain.TradeSide) (domain.TradeQuote, error) {
	if err := domain.ValidateShares(shares, uc.cfg.MaxTradeShares); err != nil {
		return domain.TradeQuote{}, err
	}

	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	stock, err := uc.lookup(symbol)
	if err != nil {
		return domain.TradeQuote{}, err
	}

	return domain.QuoteTrade(stock.Price, shares, uc.cfg.ImpactRate, side, uc.cfg.PriceFloor), nil
}

// Buy executes a market buy: the order fills at the slippage-average
// price, the wallet is debited conditionally, and the position's cost
// basis is recomputed as a weighted average.
func (uc *MarketUseCase) Buy(ctx context.Context, userID int64, symbol string, shares int64) (*domain.TradeQuote, error) {
	if err := domain.ValidateShares(shares, uc.cfg.MaxTradeShares); err != nil {
		return nil, err
	}

	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	stock, err := uc.lookup(symbol)
	if err != nil {
		return nil, err
	}

	quote := domain.QuoteTrade(stock.Price, shares, uc.cfg.ImpactRate, domain.SideBuy, uc.cfg.PriceFloor)
	cost := quote.Cost()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Touch(ctx, tx, userID); err != nil {
		return nil, err
	}

	ok, err := uc.accountRepo.DebitWallet(ctx, tx, userID, cost)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, domain.ErrInsufficientFunds
	}

	holding, err := uc.holdingRepo.GetForUpdate(ctx, tx, userID, symbol)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}

		holding = &domain.Holding{UserID: userID, Symbol: symbol}
	}

	holding.AvgCost = domain.WeightedAvgCost(holding.Shares, holding.AvgCost, shares, cost)
	holding.Shares += shares

	if err := uc.holdingRepo.Upsert(ctx, tx, holding); err != nil {
		return nil, err
	}

	if err := uc.stockRepo.UpdateTrade(ctx, tx, symbol, quote.PostPrice, shares); err != nil {
		return nil, err
	}

	if err := uc.createTradeEntry(ctx, tx, userID, -cost, domain.CategoryStockBuy, symbol, shares, quote); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.applyTrade(stock, quote.PostPrice, shares)
	uc.recordTrade("buy", shares)

	return &quote, nil
}

// Sell executes a market sell. The cost basis of any remaining shares
// is left unchanged; positions sold to zero are removed.
func (uc *MarketUseCase) Sell(ctx context.Context, userID int64, symbol string, shares int64) (*domain.TradeQuote, error) {
	if err := domain.ValidateShares(shares, uc.cfg.MaxTradeShares); err != nil {
		return nil, err
	}

	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	stock, err := uc.lookup(symbol)
	if err != nil {
		return nil, err
	}

	quote := domain.QuoteTrade(stock.Price, shares, uc.cfg.ImpactRate, domain.SideSell, uc.cfg.PriceFloor)
	proceeds := quote.Proceeds()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	holding, err := uc.holdingRepo.GetForUpdate(ctx, tx, userID, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInsufficientShares
		}

		return nil, err
	}

	if holding.Shares < shares {
		return nil, domain.ErrInsufficientShares
	}

	holding.Shares -= shares

	if holding.Shares == 0 {
		if err := uc.holdingRepo.Remove(ctx, tx, userID, symbol); err != nil {
			return nil, err
		}
	} else {
		if err := uc.holdingRepo.Upsert(ctx, tx, holding); err != nil {
			return nil, err
		}
	}

	if err := uc.accountRepo.Touch(ctx, tx, userID); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.CreditWallet(ctx, tx, userID, proceeds); err != nil {
		return nil, err
	}

	if err := uc.stockRepo.UpdateTrade(ctx, tx, symbol, quote.PostPrice, -shares); err != nil {
		return nil, err
	}

	if err := uc.createTradeEntry(ctx, tx, userID, proceeds, domain.CategoryStockSell, symbol, shares, quote); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.applyTrade(stock, quote.PostPrice, -shares)
	uc.recordTrade("sell", shares)

	return &quote, nil
}

// IssueInput represents input for listing a new stock.
type IssueInput struct {
	Symbol       string
	DisplayName  string
	ActivityKey  string
	InitialPrice decimal.Decimal
	Volatility   decimal.Decimal
}

// Issue lists a new symbol at the given starting price.
func (uc *MarketUseCase) Issue(ctx context.Context, input IssueInput) (*domain.Stock, error) {
	if err := domain.ValidateSymbol(input.Symbol); err != nil {
		return nil, err
	}

	if input.InitialPrice.LessThan(uc.cfg.PriceFloor) {
		return nil, domain.ErrInvalidAmount
	}

	if input.Volatility.LessThanOrEqual(decimal.Zero) {
		input.Volatility = decimal.NewFromInt(1)
	}

	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	if _, ok := uc.book[input.Symbol]; ok {
		return nil, domain.ErrSymbolExists
	}

	now := time.Now().UTC()
	stock := &domain.Stock{
		Symbol:        input.Symbol,
		DisplayName:   input.DisplayName,
		ActivityKey:   input.ActivityKey,
		Price:         input.InitialPrice,
		PreviousPrice: input.InitialPrice,
		Volatility:    input.Volatility,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.stockRepo.Create(ctx, stock); err != nil {
		return nil, err
	}

	uc.book[stock.Symbol] = stock

	if uc.metrics != nil {
		uc.metrics.ListedSymbols.Inc()
	}

	return stock, nil
}

// Delist retires a symbol and force-liquidates every open position at
// the current resting price, crediting holders in the same transaction
// that marks the stock delisted.
func (uc *MarketUseCase) Delist(ctx context.Context, symbol string) error {
	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	stock, err := uc.lookup(symbol)
	if err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	holdings, err := uc.holdingRepo.ListBySymbol(ctx, tx, symbol)
	if err != nil {
		return err
	}

	for _, h := range holdings {
		payout := stock.Price.Mul(decimal.NewFromInt(h.Shares)).Floor().IntPart()

		if err := uc.accountRepo.Touch(ctx, tx, h.UserID); err != nil {
			return err
		}

		if payout > 0 {
			if err := uc.accountRepo.CreditWallet(ctx, tx, h.UserID, payout); err != nil {
				return err
			}
		}

		if err := uc.entryRepo.Create(ctx, tx, &domain.LedgerEntry{
			ID:       uc.idGen.Generate(),
			UserID:   h.UserID,
			Amount:   payout,
			Category: domain.CategoryDelistBuyout,
			Metadata: map[string]any{
				"symbol": symbol,
				"shares": h.Shares,
				"price":  stock.Price.String(),
			},
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		if err := uc.holdingRepo.Remove(ctx, tx, h.UserID, symbol); err != nil {
			return err
		}
	}

	if err := uc.stockRepo.SetDelisted(ctx, tx, symbol); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	stock.Delisted = true
	stock.TotalShares = 0

	if uc.metrics != nil {
		uc.metrics.ListedSymbols.Dec()
	}

	return nil
}

// GetStock returns one symbol's current state from the book.
func (uc *MarketUseCase) GetStock(symbol string) (*domain.Stock, error) {
	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	stock, ok := uc.book[symbol]
	if !ok {
		return nil, domain.ErrUnknownSymbol
	}

	copied := *stock

	return &copied, nil
}

// ListStocks returns all listed symbols from the book.
func (uc *MarketUseCase) ListStocks(includeDelisted bool) []*domain.Stock {
	uc.engineMu.Lock()
	defer uc.engineMu.Unlock()

	stocks := make([]*domain.Stock, 0, len(uc.book))
	for _, stock := range uc.book {
		if stock.Delisted && !includeDelisted {
			continue
		}

		copied := *stock
		stocks = append(stocks, &copied)
	}

	return stocks
}

// ListHoldings returns a user's open positions.
func (uc *MarketUseCase) ListHoldings(ctx context.Context, userID int64) ([]*domain.Holding, error) {
	return uc.holdingRepo.ListByUser(ctx, userID)
}

func (uc *MarketUseCase) lookup(symbol string) (*domain.Stock, error) {
	stock, ok := uc.book[symbol]
	if !ok {
		return nil, domain.ErrUnknownSymbol
	}

	if stock.Delisted {
		return nil, domain.ErrSymbolDelisted
	}

	return stock, nil
}

func (uc *MarketUseCase) recordTrade(side string, shares int64) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.Trades.WithLabelValues(side).Inc()
	uc.metrics.TradeShares.Observe(float64(shares))
}

func (uc *MarketUseCase) applyTrade(stock *domain.Stock, post decimal.Decimal, sharesDelta int64) {
	stock.PreviousPrice = stock.Price
	stock.Price = post
	stock.TotalShares += sharesDelta
	stock.UpdatedAt = time.Now().UTC()
}

func (uc *MarketUseCase) createTradeEntry(ctx context.Context, tx Transaction, userID, amount int64, category, symbol string, shares int64, quote domain.TradeQuote) error {
	return uc.entryRepo.Create(ctx, tx, &domain.LedgerEntry{
		ID:       uc.idGen.Generate(),
		UserID:   userID,
		Amount:   amount,
		Category: category,
		Metadata: map[string]any{
			"symbol": symbol,
			"shares": shares,
			"price":  quote.ExecutionPrice.String(),
		},
		CreatedAt: time.Now().UTC(),
	})
}
