package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	httpAdapter "github.com/lowkeylabs/guildbank/internal/adapter/http"
	"github.com/lowkeylabs/guildbank/internal/adapter/http/handler"
	postgresRepo "github.com/lowkeylabs/guildbank/internal/adapter/repository/postgres"
	redisRepo "github.com/lowkeylabs/guildbank/internal/adapter/repository/redis"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/config"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/logger"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/metrics"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/postgres"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/redis"
	"github.com/lowkeylabs/guildbank/internal/scheduler"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "guildbank"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	migrationsPath := resolveMigrationsPath()
	if err := postgres.RunMigrations(cfg.DatabaseURL, migrationsPath, log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	xpRepo := postgresRepo.NewXPRepository(pool)
	stockRepo := postgresRepo.NewStockRepository(pool)
	holdingRepo := postgresRepo.NewHoldingRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	sharedCache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	m := metrics.New()

	// Use cases
	balanceUC := usecase.NewBalanceUseCase(txManager, accountRepo, entryRepo, idGen).
		WithRetrier(postgresRepo.NewRetrier(log)).
		WithMetrics(m)
	xpUC := usecase.NewXPUseCase(xpRepo, cfg.XPCacheSize).
		WithMetrics(m).
		WithLeaderboardCache(sharedCache, cfg.XPFlushInterval)
	marketUC := usecase.NewMarketUseCase(usecase.MarketConfig{
		GrowthRate:      cfg.GrowthRate,
		DecayRate:       cfg.MarketDecayRate,
		NoiseAmplitude:  cfg.NoiseAmplitude,
		EventChance:     cfg.EventChance,
		SurgeMultiplier: cfg.SurgeMultiplier,
		CrashMultiplier: cfg.CrashMultiplier,
		ImpactRate:      decimal.NewFromFloat(cfg.ImpactRate),
		PriceFloor:      decimal.NewFromFloat(cfg.PriceFloor),
		MaxTradeShares:  cfg.MaxTradeShares,
	}, txManager, accountRepo, entryRepo, stockRepo, holdingRepo, idGen, rand.New(rand.NewSource(time.Now().UnixNano()))).
		WithMetrics(m)
	decayUC := usecase.NewDecayUseCase(usecase.DecayConfig{
		Threshold: cfg.DecayThreshold,
		Rate:      cfg.DecayRate,
		Cap:       cfg.DecayCap,
	}, txManager, accountRepo, entryRepo, idGen).WithMetrics(m)

	listed, err := marketUC.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load market book")
	}
	log.Info().Int("symbols", listed).Msg("market book loaded")

	// Periodic jobs
	flushRunner := scheduler.New(scheduler.Config{
		Name:       "xp-flush",
		Interval:   cfg.XPFlushInterval,
		MaxRetries: 3,
		Logger:     log,
		Job: func(ctx context.Context) error {
			flushed, err := xpUC.Flush(ctx)
			if err != nil {
				return err
			}

			if flushed > 0 {
				log.Debug().Int("keys", flushed).Msg("xp buffer flushed")
			}

			return nil
		},
	})
	tickRunner := scheduler.New(scheduler.Config{
		Name:       "market-tick",
		Interval:   cfg.TickInterval,
		MaxRetries: 3,
		Logger:     log,
		Job:        marketUC.Tick,
	})
	decayRunner := scheduler.New(scheduler.Config{
		Name:       "wealth-decay",
		Interval:   cfg.DecayInterval,
		MaxRetries: 1,
		Logger:     log,
		Job: func(ctx context.Context) error {
			result, err := decayUC.Sweep(ctx)
			if err != nil {
				return err
			}

			log.Info().
				Int("swept", result.Swept).
				Int("skipped", result.Skipped).
				Int64("total", result.Total).
				Msg("decay sweep completed")

			return nil
		},
	})

	go flushRunner.Start(ctx)
	go tickRunner.Start(ctx)
	go decayRunner.Start(ctx)

	// Handlers
	balanceHandler := handler.NewBalanceHandler(balanceUC)
	xpHandler := handler.NewXPHandler(xpUC)
	marketHandler := handler.NewMarketHandler(marketUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		BalanceHandler:   balanceHandler,
		XPHandler:        xpHandler,
		MarketHandler:    marketHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Logger:           log,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Drain buffered gains before exit so nothing earned is lost.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()

	if flushed, err := xpUC.Flush(flushCtx); err != nil {
		log.Error().Err(err).Msg("final xp flush failed")
	} else if flushed > 0 {
		log.Info().Int("keys", flushed).Msg("final xp flush completed")
	}

	log.Info().Msg("server stopped")
}

// resolveMigrationsPath finds the migrations directory relative to the
// working directory, falling back to the container layout.
func resolveMigrationsPath() string {
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"internal/infrastructure/postgres/migrations",
		"/app/migrations",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return candidates[0]
}
