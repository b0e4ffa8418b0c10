package usecase_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
	"github.com/lowkeylabs/guildbank/internal/usecase/mocks"
)

type marketFixture struct {
	uc          *usecase.MarketUseCase
	accountRepo *mocks.MockAccountRepository
	entryRepo   *mocks.MockEntryRepository
	stockRepo   *mocks.MockStockRepository
	holdingRepo *mocks.MockHoldingRepository
}

func newMarketFixture(t *testing.T, cfg usecase.MarketConfig) *marketFixture {
	t.Helper()

	f := &marketFixture{
		accountRepo: mocks.NewMockAccountRepository(),
		entryRepo:   mocks.NewMockEntryRepository(),
		stockRepo:   mocks.NewMockStockRepository(),
		holdingRepo: mocks.NewMockHoldingRepository(),
	}

	f.uc = usecase.NewMarketUseCase(
		cfg,
		mocks.NewMockTransactionManager(),
		f.accountRepo,
		f.entryRepo,
		f.stockRepo,
		f.holdingRepo,
		mocks.NewMockIDGenerator(),
		rand.New(rand.NewSource(1)),
	)

	return f
}

func quietMarketConfig() usecase.MarketConfig {
	return usecase.MarketConfig{
		GrowthRate:      0.05,
		DecayRate:       0.02,
		NoiseAmplitude:  0,
		EventChance:     0,
		SurgeMultiplier: 1.30,
		CrashMultiplier: 0.70,
		ImpactRate:      decimal.NewFromFloat(0.0005),
		PriceFloor:      decimal.NewFromInt(1),
		MaxTradeShares:  100000,
	}
}

func (f *marketFixture) seedStock(t *testing.T, symbol, activityKey string, price int64) {
	t.Helper()

	f.stockRepo.Seed(&domain.Stock{
		Symbol:      symbol,
		DisplayName: symbol,
		ActivityKey: activityKey,
		Price:       decimal.NewFromInt(price),
		Volatility:  decimal.NewFromInt(1),
	})

	if _, err := f.uc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestMarketUseCase_TickPureDecay(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)

	if err := f.uc.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	stored := f.stockRepo.Stored("JOY")
	if !stored.Price.Equal(decimal.NewFromInt(98)) {
		t.Errorf("expected persisted price 98, got %s", stored.Price)
	}

	stock, err := f.uc.GetStock("JOY")
	if err != nil {
		t.Fatal(err)
	}

	if !stock.Price.Equal(decimal.NewFromInt(98)) {
		t.Errorf("expected book price 98, got %s", stock.Price)
	}

	if !stock.PreviousPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected previous price 100, got %s", stock.PreviousPrice)
	}
}

func TestMarketUseCase_TickActivityLiftsPrice(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)

	f.uc.RecordActivity("general", 500)

	if err := f.uc.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	active, _ := f.uc.GetStock("JOY")
	if !active.Price.GreaterThan(decimal.NewFromInt(100)) {
		t.Errorf("active stock should rise, got %s", active.Price)
	}

	// Counters are consumed: a second quiet tick decays.
	if err := f.uc.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	after, _ := f.uc.GetStock("JOY")
	if !after.Price.LessThan(active.Price) {
		t.Errorf("consumed activity must not lift the next tick: %s -> %s", active.Price, after.Price)
	}
}

func TestMarketUseCase_TickFailureKeepsBookAndActivity(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)

	f.uc.RecordActivity("general", 500)
	f.stockRepo.UpdatePricesFunc = func(ctx context.Context, updates []domain.PriceUpdate) error {
		return domain.ErrStorageUnavailable
	}

	if err := f.uc.Tick(context.Background()); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}

	stock, _ := f.uc.GetStock("JOY")
	if !stock.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("book must not move on failed tick, got %s", stock.Price)
	}

	// The restored activity lifts the retried tick above pure decay.
	f.stockRepo.UpdatePricesFunc = nil

	if err := f.uc.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	stock, _ = f.uc.GetStock("JOY")
	if !stock.Price.GreaterThan(decimal.NewFromInt(100)) {
		t.Errorf("restored activity should lift retried tick, got %s", stock.Price)
	}
}

func TestMarketUseCase_TickMarketEvent(t *testing.T) {
	cfg := quietMarketConfig()
	cfg.EventChance = 1
	cfg.SurgeMultiplier = 0.70
	cfg.CrashMultiplier = 0.70

	f := newMarketFixture(t, cfg)
	f.seedStock(t, "JOY", "general", 100)

	if err := f.uc.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Ordinary movement lands on 98, then the event multiplies by 0.70.
	stock, _ := f.uc.GetStock("JOY")
	if !stock.Price.Equal(decimal.NewFromFloat(68.6)) {
		t.Errorf("expected 68.6 after crash, got %s", stock.Price)
	}
}

func TestMarketUseCase_Buy(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)
	f.accountRepo.Seed(7, 200000, 0)

	quote, err := f.uc.Buy(context.Background(), 7, "JOY", 1000)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	if !quote.ExecutionPrice.Equal(decimal.NewFromInt(125)) {
		t.Errorf("expected execution at 125, got %s", quote.ExecutionPrice)
	}

	wallet, _ := f.accountRepo.Balance(7)
	if wallet != 75000 {
		t.Errorf("expected wallet 75000, got %d", wallet)
	}

	holding, err := f.holdingRepo.Get(context.Background(), 7, "JOY")
	if err != nil {
		t.Fatal(err)
	}

	if holding.Shares != 1000 || !holding.AvgCost.Equal(decimal.NewFromInt(125)) {
		t.Errorf("unexpected holding: %+v", holding)
	}

	stock, _ := f.uc.GetStock("JOY")
	if !stock.Price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected post-trade price 150, got %s", stock.Price)
	}

	entries := f.entryRepo.Entries()
	if len(entries) != 1 || entries[0].Amount != -125000 || entries[0].Category != domain.CategoryStockBuy {
		t.Errorf("unexpected ledger entries: %+v", entries)
	}
}

func TestMarketUseCase_Buy_InsufficientFunds(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)
	f.accountRepo.Seed(7, 50, 0)

	if _, err := f.uc.Buy(context.Background(), 7, "JOY", 1000); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	stock, _ := f.uc.GetStock("JOY")
	if !stock.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("failed buy must not move the price, got %s", stock.Price)
	}
}

func TestMarketUseCase_Buy_UnknownSymbol(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())

	if _, err := f.uc.Buy(context.Background(), 7, "NOPE", 10); !errors.Is(err, domain.ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestMarketUseCase_Buy_TradeLimit(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)

	if _, err := f.uc.Buy(context.Background(), 7, "JOY", 100001); !errors.Is(err, domain.ErrTradeLimitExceeded) {
		t.Errorf("expected ErrTradeLimitExceeded, got %v", err)
	}
}

func TestMarketUseCase_Sell(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)
	f.accountRepo.Seed(7, 0, 0)
	f.holdingRepo.Seed(&domain.Holding{UserID: 7, Symbol: "JOY", Shares: 1500, AvgCost: decimal.NewFromInt(80)})

	quote, err := f.uc.Sell(context.Background(), 7, "JOY", 1000)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}

	if !quote.ExecutionPrice.Equal(decimal.NewFromInt(75)) {
		t.Errorf("expected execution at 75, got %s", quote.ExecutionPrice)
	}

	wallet, _ := f.accountRepo.Balance(7)
	if wallet != 75000 {
		t.Errorf("expected wallet 75000, got %d", wallet)
	}

	// Cost basis does not move on a sell.
	holding, err := f.holdingRepo.Get(context.Background(), 7, "JOY")
	if err != nil {
		t.Fatal(err)
	}

	if holding.Shares != 500 || !holding.AvgCost.Equal(decimal.NewFromInt(80)) {
		t.Errorf("unexpected holding after partial sell: %+v", holding)
	}
}

func TestMarketUseCase_Sell_AllRemovesHolding(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)
	f.accountRepo.Seed(7, 0, 0)
	f.holdingRepo.Seed(&domain.Holding{UserID: 7, Symbol: "JOY", Shares: 200, AvgCost: decimal.NewFromInt(90)})

	if _, err := f.uc.Sell(context.Background(), 7, "JOY", 200); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if _, err := f.holdingRepo.Get(context.Background(), 7, "JOY"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("holding should be removed, got %v", err)
	}
}

func TestMarketUseCase_Sell_InsufficientShares(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)
	f.holdingRepo.Seed(&domain.Holding{UserID: 7, Symbol: "JOY", Shares: 10, AvgCost: decimal.NewFromInt(90)})

	if _, err := f.uc.Sell(context.Background(), 7, "JOY", 11); !errors.Is(err, domain.ErrInsufficientShares) {
		t.Errorf("expected ErrInsufficientShares, got %v", err)
	}

	if _, err := f.uc.Sell(context.Background(), 8, "JOY", 1); !errors.Is(err, domain.ErrInsufficientShares) {
		t.Errorf("expected ErrInsufficientShares for empty position, got %v", err)
	}
}

func TestMarketUseCase_Issue(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())

	stock, err := f.uc.Issue(context.Background(), usecase.IssueInput{
		Symbol:       "NEW",
		DisplayName:  "Newcomers",
		ActivityKey:  "general",
		InitialPrice: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if !stock.Volatility.Equal(decimal.NewFromInt(1)) {
		t.Errorf("volatility should default to 1, got %s", stock.Volatility)
	}

	if _, err := f.uc.Issue(context.Background(), usecase.IssueInput{
		Symbol:       "NEW",
		InitialPrice: decimal.NewFromInt(50),
	}); !errors.Is(err, domain.ErrSymbolExists) {
		t.Errorf("expected ErrSymbolExists, got %v", err)
	}

	if _, err := f.uc.Issue(context.Background(), usecase.IssueInput{
		Symbol:       "bad!",
		InitialPrice: decimal.NewFromInt(50),
	}); !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestMarketUseCase_Delist(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 40)
	f.accountRepo.Seed(7, 0, 0)
	f.accountRepo.Seed(8, 100, 0)
	f.holdingRepo.Seed(&domain.Holding{UserID: 7, Symbol: "JOY", Shares: 10, AvgCost: decimal.NewFromInt(30)})
	f.holdingRepo.Seed(&domain.Holding{UserID: 8, Symbol: "JOY", Shares: 3, AvgCost: decimal.NewFromInt(50)})

	if err := f.uc.Delist(context.Background(), "JOY"); err != nil {
		t.Fatalf("delist: %v", err)
	}

	// Holders are bought out at the resting price of 40.
	wallet7, _ := f.accountRepo.Balance(7)
	wallet8, _ := f.accountRepo.Balance(8)

	if wallet7 != 400 || wallet8 != 220 {
		t.Errorf("expected buyouts 400/220, got %d/%d", wallet7, wallet8)
	}

	if _, err := f.holdingRepo.Get(context.Background(), 7, "JOY"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("holdings should be cleared on delist")
	}

	entries := f.entryRepo.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 buyout entries, got %d", len(entries))
	}

	for _, e := range entries {
		if e.Category != domain.CategoryDelistBuyout {
			t.Errorf("unexpected entry category %q", e.Category)
		}
	}

	if _, err := f.uc.Buy(context.Background(), 7, "JOY", 1); !errors.Is(err, domain.ErrSymbolDelisted) {
		t.Errorf("expected ErrSymbolDelisted after delist, got %v", err)
	}
}

func TestMarketUseCase_QuoteDoesNotMutate(t *testing.T) {
	f := newMarketFixture(t, quietMarketConfig())
	f.seedStock(t, "JOY", "general", 100)

	quote, err := f.uc.Quote("JOY", 1000, domain.SideBuy)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if !quote.PostPrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected quoted post price 150, got %s", quote.PostPrice)
	}

	stock, _ := f.uc.GetStock("JOY")
	if !stock.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("quote must not move the book, got %s", stock.Price)
	}
}
