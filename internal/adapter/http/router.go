package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lowkeylabs/guildbank/internal/adapter/http/handler"
	"github.com/lowkeylabs/guildbank/internal/adapter/http/middleware"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	BalanceHandler   *handler.BalanceHandler
	XPHandler        *handler.XPHandler
	MarketHandler    *handler.MarketHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	Logger           zerolog.Logger
	RateLimit        float64
	RateBurst        int
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	if cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Limit)
	}

	// Health and observability endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/top", cfg.BalanceHandler.Top)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/balance", cfg.BalanceHandler.Get)
				r.Get("/entries", cfg.BalanceHandler.ListEntries)
				r.Get("/verify", cfg.BalanceHandler.Verify)
				r.Get("/holdings", cfg.MarketHandler.Holdings)
				r.Post("/credit", cfg.BalanceHandler.Credit)
				r.Post("/debit", cfg.BalanceHandler.Debit)
				r.Post("/deposit", cfg.BalanceHandler.Deposit)
				r.Post("/withdraw", cfg.BalanceHandler.Withdraw)
			})
		})

		// Gifts
		r.Post("/transfers", cfg.BalanceHandler.Transfer)

		// Experience
		r.Route("/xp", func(r chi.Router) {
			r.Post("/gain", cfg.XPHandler.Gain)
			r.Get("/{scopeID}/leaderboard", cfg.XPHandler.Leaderboard)
			r.Get("/{scopeID}/{userID}", cfg.XPHandler.Get)
		})

		// Market
		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", cfg.MarketHandler.List)
			r.Post("/", cfg.MarketHandler.Issue)
			r.Route("/{symbol}", func(r chi.Router) {
				r.Get("/", cfg.MarketHandler.Get)
				r.Get("/quote", cfg.MarketHandler.Quote)
				r.Post("/buy", cfg.MarketHandler.Buy)
				r.Post("/sell", cfg.MarketHandler.Sell)
				r.Delete("/", cfg.MarketHandler.Delist)
			})
		})

		r.Post("/activity", cfg.MarketHandler.Activity)
	})

	return r
}
