// Package scheduler runs the periodic jobs of the economy: XP buffer
// flushes, market ticks, and decay sweeps.
package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Runner executes a job on a fixed interval until its context is
// cancelled. A failing run is retried with exponential backoff before
// the runner gives up on that cycle and waits for the next tick.
type Runner struct {
	name       string
	interval   time.Duration
	maxRetries uint64
	job        Job
	logger     zerolog.Logger
}

// Config for a Runner.
type Config struct {
	Name       string
	Interval   time.Duration
	MaxRetries uint64
	Job        Job
	Logger     zerolog.Logger
}

// New creates a new Runner.
func New(cfg Config) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	return &Runner{
		name:       cfg.Name,
		interval:   cfg.Interval,
		maxRetries: cfg.MaxRetries,
		job:        cfg.Job,
		logger:     cfg.Logger.With().Str("job", cfg.Name).Logger(),
	}
}

// Start runs the job loop until the context is cancelled. The first run
// waits one full interval so startup work can settle.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("scheduler started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	started := time.Now()

	operation := func() error {
		return r.job(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = r.interval / 2

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.maxRetries), ctx)

	notify := func(err error, next time.Duration) {
		r.logger.Warn().Err(err).Dur("retry_in", next).Msg("job failed, retrying")
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctx.Err() != nil {
			return
		}

		r.logger.Error().Err(err).Msg("job failed after retries")

		return
	}

	r.logger.Debug().Dur("elapsed", time.Since(started)).Msg("job completed")
}
