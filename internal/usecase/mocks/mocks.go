package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// MockAccountRepository is an in-memory AccountRepository. Every method
// can be overridden per-test through its Func field.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account

	TouchFunc          func(ctx context.Context, tx usecase.Transaction, userID int64) error
	GetFunc            func(ctx context.Context, userID int64) (*domain.Account, error)
	CreditWalletFunc   func(ctx context.Context, tx usecase.Transaction, userID, amount int64) error
	DebitWalletFunc    func(ctx context.Context, tx usecase.Transaction, userID, amount int64) (bool, error)
	CreditBankFunc     func(ctx context.Context, tx usecase.Transaction, userID, amount int64) error
	DebitBankFunc      func(ctx context.Context, tx usecase.Transaction, userID, amount int64) (bool, error)
	ListAboveTotalFunc func(ctx context.Context, threshold int64) ([]*domain.Account, error)
	TopByWalletFunc    func(ctx context.Context, limit int) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[int64]*domain.Account),
	}
}

// Seed installs an account directly, bypassing Touch.
func (m *MockAccountRepository) Seed(userID, wallet, bank int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = &domain.Account{UserID: userID, Wallet: wallet, Bank: bank}
}

// Balance reads the current balances for assertions.
func (m *MockAccountRepository) Balance(userID int64) (wallet, bank int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[userID]; ok {
		return acc.Wallet, acc.Bank
	}
	return 0, 0
}

func (m *MockAccountRepository) Touch(ctx context.Context, tx usecase.Transaction, userID int64) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[userID]; !ok {
		m.accounts[userID] = &domain.Account{UserID: userID}
	}
	return nil
}

func (m *MockAccountRepository) Get(ctx context.Context, userID int64) (*domain.Account, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[userID]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) CreditWallet(ctx context.Context, tx usecase.Transaction, userID, amount int64) error {
	if m.CreditWalletFunc != nil {
		return m.CreditWalletFunc(ctx, tx, userID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[userID]; ok {
		acc.Wallet += amount
	}
	return nil
}

func (m *MockAccountRepository) DebitWallet(ctx context.Context, tx usecase.Transaction, userID, amount int64) (bool, error) {
	if m.DebitWalletFunc != nil {
		return m.DebitWalletFunc(ctx, tx, userID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok || acc.Wallet < amount {
		return false, nil
	}
	acc.Wallet -= amount
	return true, nil
}

func (m *MockAccountRepository) CreditBank(ctx context.Context, tx usecase.Transaction, userID, amount int64) error {
	if m.CreditBankFunc != nil {
		return m.CreditBankFunc(ctx, tx, userID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[userID]; ok {
		acc.Bank += amount
	}
	return nil
}

func (m *MockAccountRepository) DebitBank(ctx context.Context, tx usecase.Transaction, userID, amount int64) (bool, error) {
	if m.DebitBankFunc != nil {
		return m.DebitBankFunc(ctx, tx, userID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok || acc.Bank < amount {
		return false, nil
	}
	acc.Bank -= amount
	return true, nil
}

func (m *MockAccountRepository) ListAboveTotal(ctx context.Context, threshold int64) ([]*domain.Account, error) {
	if m.ListAboveTotalFunc != nil {
		return m.ListAboveTotalFunc(ctx, threshold)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if acc.Total() > threshold {
			copied := *acc
			accounts = append(accounts, &copied)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].UserID < accounts[j].UserID })
	return accounts, nil
}

func (m *MockAccountRepository) TopByWallet(ctx context.Context, limit int) ([]*domain.Account, error) {
	if m.TopByWalletFunc != nil {
		return m.TopByWalletFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]*domain.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		copied := *acc
		accounts = append(accounts, &copied)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Wallet > accounts[j].Wallet })
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// MockEntryRepository is an in-memory EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry

	CreateFunc     func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
	ListByUserFunc func(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error)
	SumByUserFunc  func(ctx context.Context, userID int64) (int64, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{}
}

// Entries returns a copy of everything recorded so far.
func (m *MockEntryRepository) Entries() []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockEntryRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockEntryRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	if m.SumByUserFunc != nil {
		return m.SumByUserFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, e := range m.entries {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum, nil
}

// MockXPRepository is an in-memory XPRepository.
type MockXPRepository struct {
	mu      sync.RWMutex
	records map[domain.XPKey]int64

	GetFunc     func(ctx context.Context, key domain.XPKey) (*domain.XPRecord, error)
	AddBulkFunc func(ctx context.Context, deltas []domain.XPDelta) error
	TopFunc     func(ctx context.Context, scopeID int64, limit int) ([]*domain.XPRecord, error)
}

func NewMockXPRepository() *MockXPRepository {
	return &MockXPRepository{
		records: make(map[domain.XPKey]int64),
	}
}

// Seed installs a durable total directly.
func (m *MockXPRepository) Seed(key domain.XPKey, xp int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = xp
}

// Total reads the stored total for assertions.
func (m *MockXPRepository) Total(key domain.XPKey) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[key]
}

func (m *MockXPRepository) Get(ctx context.Context, key domain.XPKey) (*domain.XPRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	xp, ok := m.records[key]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &domain.XPRecord{UserID: key.UserID, ScopeID: key.ScopeID, XP: xp}, nil
}

func (m *MockXPRepository) AddBulk(ctx context.Context, deltas []domain.XPDelta) error {
	if m.AddBulkFunc != nil {
		return m.AddBulkFunc(ctx, deltas)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range deltas {
		m.records[domain.XPKey{UserID: d.UserID, ScopeID: d.ScopeID}] += d.Amount
	}
	return nil
}

func (m *MockXPRepository) Top(ctx context.Context, scopeID int64, limit int) ([]*domain.XPRecord, error) {
	if m.TopFunc != nil {
		return m.TopFunc(ctx, scopeID, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []*domain.XPRecord
	for key, xp := range m.records {
		if key.ScopeID == scopeID {
			records = append(records, &domain.XPRecord{UserID: key.UserID, ScopeID: key.ScopeID, XP: xp})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].XP > records[j].XP })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// MockStockRepository is an in-memory StockRepository.
type MockStockRepository struct {
	mu     sync.RWMutex
	stocks map[string]*domain.Stock

	CreateFunc       func(ctx context.Context, stock *domain.Stock) error
	GetFunc          func(ctx context.Context, symbol string) (*domain.Stock, error)
	ListFunc         func(ctx context.Context, includeDelisted bool) ([]*domain.Stock, error)
	UpdatePricesFunc func(ctx context.Context, updates []domain.PriceUpdate) error
	UpdateTradeFunc  func(ctx context.Context, tx usecase.Transaction, symbol string, price decimal.Decimal, sharesDelta int64) error
	SetDelistedFunc  func(ctx context.Context, tx usecase.Transaction, symbol string) error
}

func NewMockStockRepository() *MockStockRepository {
	return &MockStockRepository{
		stocks: make(map[string]*domain.Stock),
	}
}

// Seed installs a stock directly.
func (m *MockStockRepository) Seed(stock *domain.Stock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks[stock.Symbol] = stock
}

// Stored reads the persisted state of one symbol for assertions.
func (m *MockStockRepository) Stored(symbol string) *domain.Stock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.stocks[symbol]; ok {
		copied := *s
		return &copied
	}
	return nil
}

func (m *MockStockRepository) Create(ctx context.Context, stock *domain.Stock) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, stock)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stocks[stock.Symbol]; ok {
		return domain.ErrSymbolExists
	}
	copied := *stock
	m.stocks[stock.Symbol] = &copied
	return nil
}

func (m *MockStockRepository) Get(ctx context.Context, symbol string) (*domain.Stock, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, symbol)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stocks[symbol]
	if !ok {
		return nil, domain.ErrUnknownSymbol
	}
	copied := *s
	return &copied, nil
}

func (m *MockStockRepository) List(ctx context.Context, includeDelisted bool) ([]*domain.Stock, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, includeDelisted)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stocks []*domain.Stock
	for _, s := range m.stocks {
		if s.Delisted && !includeDelisted {
			continue
		}
		copied := *s
		stocks = append(stocks, &copied)
	}
	return stocks, nil
}

func (m *MockStockRepository) UpdatePrices(ctx context.Context, updates []domain.PriceUpdate) error {
	if m.UpdatePricesFunc != nil {
		return m.UpdatePricesFunc(ctx, updates)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		if s, ok := m.stocks[u.Symbol]; ok {
			s.PreviousPrice = u.PreviousPrice
			s.Price = u.Price
		}
	}
	return nil
}

func (m *MockStockRepository) UpdateTrade(ctx context.Context, tx usecase.Transaction, symbol string, price decimal.Decimal, sharesDelta int64) error {
	if m.UpdateTradeFunc != nil {
		return m.UpdateTradeFunc(ctx, tx, symbol, price, sharesDelta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stocks[symbol]; ok {
		s.PreviousPrice = s.Price
		s.Price = price
		s.TotalShares += sharesDelta
	}
	return nil
}

func (m *MockStockRepository) SetDelisted(ctx context.Context, tx usecase.Transaction, symbol string) error {
	if m.SetDelistedFunc != nil {
		return m.SetDelistedFunc(ctx, tx, symbol)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stocks[symbol]; ok {
		s.Delisted = true
	}
	return nil
}

// MockHoldingRepository is an in-memory HoldingRepository.
type MockHoldingRepository struct {
	mu    sync.RWMutex
	byKey map[holdingKey]*domain.Holding

	GetFunc          func(ctx context.Context, userID int64, symbol string) (*domain.Holding, error)
	GetForUpdateFunc func(ctx context.Context, tx usecase.Transaction, userID int64, symbol string) (*domain.Holding, error)
	UpsertFunc       func(ctx context.Context, tx usecase.Transaction, holding *domain.Holding) error
	RemoveFunc       func(ctx context.Context, tx usecase.Transaction, userID int64, symbol string) error
	ListByUserFunc   func(ctx context.Context, userID int64) ([]*domain.Holding, error)
	ListBySymbolFunc func(ctx context.Context, tx usecase.Transaction, symbol string) ([]*domain.Holding, error)
}

type holdingKey struct {
	userID int64
	symbol string
}

func NewMockHoldingRepository() *MockHoldingRepository {
	return &MockHoldingRepository{
		byKey: make(map[holdingKey]*domain.Holding),
	}
}

// Seed installs a holding directly.
func (m *MockHoldingRepository) Seed(h *domain.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *h
	m.byKey[holdingKey{h.UserID, h.Symbol}] = &copied
}

func (m *MockHoldingRepository) Get(ctx context.Context, userID int64, symbol string) (*domain.Holding, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, symbol)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.byKey[holdingKey{userID, symbol}]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	copied := *h
	return &copied, nil
}

func (m *MockHoldingRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, userID int64, symbol string) (*domain.Holding, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx, userID, symbol)
	}
	return m.Get(ctx, userID, symbol)
}

func (m *MockHoldingRepository) Upsert(ctx context.Context, tx usecase.Transaction, holding *domain.Holding) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, holding)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *holding
	m.byKey[holdingKey{holding.UserID, holding.Symbol}] = &copied
	return nil
}

func (m *MockHoldingRepository) Remove(ctx context.Context, tx usecase.Transaction, userID int64, symbol string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, tx, userID, symbol)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, holdingKey{userID, symbol})
	return nil
}

func (m *MockHoldingRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Holding, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Holding
	for key, h := range m.byKey {
		if key.userID == userID {
			copied := *h
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MockHoldingRepository) ListBySymbol(ctx context.Context, tx usecase.Transaction, symbol string) ([]*domain.Holding, error) {
	if m.ListBySymbolFunc != nil {
		return m.ListBySymbolFunc(ctx, tx, symbol)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Holding
	for key, h := range m.byKey {
		if key.symbol == symbol {
			copied := *h
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// MockTransaction is a no-op Transaction that records its outcome.
type MockTransaction struct {
	mu         sync.Mutex
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTransactionManager hands out MockTransactions and keeps them for
// later inspection.
type MockTransactionManager struct {
	mu           sync.Mutex
	Transactions []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Transactions = append(m.Transactions, tx)
	return tx, nil
}

// MockIDGenerator returns sequential IDs.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "01TEST0000000000000000" + string(rune('A'+m.counter%26))
}

// MockIdempotencyStore is an in-memory IdempotencyStore.
type MockIdempotencyStore struct {
	mu     sync.Mutex
	values map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		values: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.values[key]; ok {
		return true, existing, nil
	}
	m.values[key] = response
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = response
	return nil
}
