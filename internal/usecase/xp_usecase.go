package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lowkeylabs/guildbank/internal/cache"
	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/metrics"
)

// XPUseCase accumulates experience gains in memory and flushes them to
// storage in periodic bulk writes. Reads combine the durable total with
// whatever is still buffered, so a snapshot never lags behind a gain
// that was just recorded.
type XPUseCase struct {
	xpRepo XPRepository

	// mu guards pending and flushGen.
	mu       sync.Mutex
	pending  map[domain.XPKey]int64
	flushGen uint64

	totals *cache.LRU[domain.XPKey, int64]

	metrics *metrics.Metrics

	lbCache Cache
	lbTTL   time.Duration
}

// NewXPUseCase creates a new XPUseCase with a level cache of the given
// capacity.
func NewXPUseCase(xpRepo XPRepository, cacheSize int) *XPUseCase {
	return &XPUseCase{
		xpRepo:  xpRepo,
		pending: make(map[domain.XPKey]int64),
		totals:  cache.NewLRU[domain.XPKey, int64](cacheSize),
	}
}

// WithMetrics attaches Prometheus instrumentation.
func (uc *XPUseCase) WithMetrics(m *metrics.Metrics) *XPUseCase {
	uc.metrics = m
	return uc
}

// WithLeaderboardCache caches leaderboard reads in the shared cache.
// Entries expire after ttl, so results lag durable totals by at most
// that long.
func (uc *XPUseCase) WithLeaderboardCache(c Cache, ttl time.Duration) *XPUseCase {
	uc.lbCache = c
	uc.lbTTL = ttl

	return uc
}

// RecordGain buffers an experience gain. Non-positive amounts are
// ignored.
func (uc *XPUseCase) RecordGain(key domain.XPKey, amount int64) {
	if amount <= 0 {
		return
	}

	uc.mu.Lock()
	uc.pending[key] += amount
	uc.mu.Unlock()

	if uc.metrics != nil {
		uc.metrics.XPGainsBuffered.Inc()
	}
}

// PendingCount returns the number of buffered keys awaiting a flush.
func (uc *XPUseCase) PendingCount() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return len(uc.pending)
}

// Flush writes all buffered gains to storage in one bulk upsert and
// returns how many keys were flushed. On write failure the buffered
// amounts are merged back so no gain is lost; gains recorded during the
// write land in the fresh buffer and survive either way.
func (uc *XPUseCase) Flush(ctx context.Context) (int, error) {
	uc.mu.Lock()
	batch := uc.pending
	uc.pending = make(map[domain.XPKey]int64)
	uc.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	deltas := make([]domain.XPDelta, 0, len(batch))
	for key, amount := range batch {
		deltas = append(deltas, domain.XPDelta{
			UserID:  key.UserID,
			ScopeID: key.ScopeID,
			Amount:  amount,
		})
	}

	if err := uc.xpRepo.AddBulk(ctx, deltas); err != nil {
		uc.mu.Lock()
		for key, amount := range batch {
			uc.pending[key] += amount
		}
		uc.mu.Unlock()

		if uc.metrics != nil {
			uc.metrics.XPFlushFailures.Inc()
		}

		return 0, err
	}

	// Invalidate flushed keys rather than advancing cached totals in
	// place: a read-through that raced the bulk write may already hold
	// the post-flush value, and adding the batch on top of that would
	// inflate the cache. Bumping the generation first stops any
	// in-flight read-through from re-inserting its pre-flush total.
	uc.mu.Lock()
	uc.flushGen++
	uc.mu.Unlock()

	for key := range batch {
		uc.totals.Remove(key)
	}

	if uc.metrics != nil {
		uc.metrics.XPFlushes.Inc()
		uc.metrics.XPFlushSize.Observe(float64(len(deltas)))
	}

	return len(deltas), nil
}

// Snapshot returns the current level statistics for a key, counting
// buffered gains that have not been flushed yet.
func (uc *XPUseCase) Snapshot(ctx context.Context, key domain.XPKey) (domain.LevelStats, error) {
	total, ok := uc.totals.Get(key)
	if !ok {
		uc.mu.Lock()
		gen := uc.flushGen
		uc.mu.Unlock()

		record, err := uc.xpRepo.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, domain.ErrAccountNotFound) {
				return domain.LevelStats{}, err
			}

			record = &domain.XPRecord{UserID: key.UserID, ScopeID: key.ScopeID}
		}

		total = record.XP

		// Cache the read only if no flush completed since it started;
		// otherwise it may predate the flush and would pin a stale total.
		uc.mu.Lock()
		if uc.flushGen == gen {
			uc.totals.Put(key, total)
		}
		uc.mu.Unlock()
	}

	uc.mu.Lock()
	buffered := uc.pending[key]
	uc.mu.Unlock()

	return domain.CalculateLevelStats(total + buffered), nil
}

// Leaderboard lists the top durable totals in a scope. Buffered gains
// are not reflected until the next flush.
func (uc *XPUseCase) Leaderboard(ctx context.Context, scopeID int64, limit int) ([]*domain.XPRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	if limit > 100 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("xp:leaderboard:%d:%d", scopeID, limit)

	if uc.lbCache != nil {
		if cached, err := uc.lbCache.Get(ctx, cacheKey); err == nil {
			var records []*domain.XPRecord
			if err := json.Unmarshal([]byte(cached), &records); err == nil {
				return records, nil
			}
		}
	}

	records, err := uc.xpRepo.Top(ctx, scopeID, limit)
	if err != nil {
		return nil, err
	}

	if uc.lbCache != nil {
		if encoded, err := json.Marshal(records); err == nil {
			// A failed write just means the next read hits storage again.
			_ = uc.lbCache.Set(ctx, cacheKey, string(encoded), uc.lbTTL)
		}
	}

	return records, nil
}
