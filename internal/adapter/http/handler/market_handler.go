package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lowkeylabs/guildbank/internal/adapter/http/dto"
	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// MarketService defines the behavior needed by MarketHandler.
type MarketService interface {
	RecordActivity(activityKey string, amount int64)
	Quote(symbol string, shares int64, side domain.TradeSide) (domain.TradeQuote, error)
	Buy(ctx context.Context, userID int64, symbol string, shares int64) (*domain.TradeQuote, error)
	Sell(ctx context.Context, userID int64, symbol string, shares int64) (*domain.TradeQuote, error)
	Issue(ctx context.Context, input usecase.IssueInput) (*domain.Stock, error)
	Delist(ctx context.Context, symbol string) error
	GetStock(symbol string) (*domain.Stock, error)
	ListStocks(includeDelisted bool) []*domain.Stock
	ListHoldings(ctx context.Context, userID int64) ([]*domain.Holding, error)
}

// MarketHandler handles stock market HTTP requests.
type MarketHandler struct {
	marketUC MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketUC MarketService) *MarketHandler {
	return &MarketHandler{marketUC: marketUC}
}

// Activity records chat activity for the next tick.
func (h *MarketHandler) Activity(w http.ResponseWriter, r *http.Request) {
	var req dto.ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.ActivityKey == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "activity_key and positive amount required", "")
		return
	}

	h.marketUC.RecordActivity(req.ActivityKey, req.Amount)

	w.WriteHeader(http.StatusAccepted)
}

// List lists all stocks.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	includeDelisted := r.URL.Query().Get("include_delisted") == "true"

	writeJSON(w, http.StatusOK, dto.StocksFromDomain(h.marketUC.ListStocks(includeDelisted)))
}

// Get returns one stock.
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	stock, err := h.marketUC.GetStock(chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get stock", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.StockFromDomain(stock))
}

// Issue lists a new stock.
func (h *MarketHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req dto.IssueStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	stock, err := h.marketUC.Issue(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to issue stock", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.StockFromDomain(stock))
}

// Delist retires a stock and buys out every holder.
func (h *MarketHandler) Delist(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.marketUC.Delist(r.Context(), symbol); err != nil {
		writeError(w, mapDomainError(err), "failed to delist stock", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Quote prices an order without executing it.
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	side := domain.SideBuy
	if r.URL.Query().Get("side") == "sell" {
		side = domain.SideSell
	}

	shares := parseInt64Query(r, "shares", 1)

	quote, err := h.marketUC.Quote(symbol, shares, side)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to quote", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.QuoteFromDomain(symbol, quote))
}

// Buy executes a market buy.
func (h *MarketHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.marketUC.Buy)
}

// Sell executes a market sell.
func (h *MarketHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.marketUC.Sell)
}

func (h *MarketHandler) trade(w http.ResponseWriter, r *http.Request, exec func(context.Context, int64, string, int64) (*domain.TradeQuote, error)) {
	symbol := chi.URLParam(r, "symbol")

	var req dto.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	quote, err := exec(r.Context(), req.UserID, symbol, req.Shares)
	if err != nil {
		writeError(w, mapDomainError(err), "trade failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.QuoteFromDomain(symbol, *quote))
}

// Holdings lists a user's open positions.
func (h *MarketHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	holdings, err := h.marketUC.ListHoldings(r.Context(), userID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list holdings", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.HoldingsFromDomain(holdings))
}
