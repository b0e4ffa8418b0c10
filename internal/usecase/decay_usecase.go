package usecase

import (
	"context"
	"time"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/metrics"
)

// DecayConfig holds the wealth decay tuning knobs.
type DecayConfig struct {
	// Threshold is the combined wallet+bank total above which decay applies.
	Threshold int64
	// Rate is the fraction of the excess removed per sweep.
	Rate float64
	// Cap bounds the amount removed from one account in one sweep.
	Cap int64
}

// DecayUseCase periodically removes a slice of the largest fortunes. The
// sweep debits only the wallet, and only through the conditional update,
// so an account that spends concurrently is skipped rather than
// overdrawn.
type DecayUseCase struct {
	cfg         DecayConfig
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewDecayUseCase creates a new DecayUseCase.
func NewDecayUseCase(
	cfg DecayConfig,
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
) *DecayUseCase {
	return &DecayUseCase{
		cfg:         cfg,
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
	}
}

// WithMetrics attaches Prometheus instrumentation.
func (uc *DecayUseCase) WithMetrics(m *metrics.Metrics) *DecayUseCase {
	uc.metrics = m
	return uc
}

// SweepResult summarizes one decay pass.
type SweepResult struct {
	Swept   int
	Skipped int
	Total   int64
}

// Sweep decays every account whose total exceeds the threshold. Each
// account gets its own transaction; a failed or contended debit skips
// that account and the sweep continues.
func (uc *DecayUseCase) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	accounts, err := uc.accountRepo.ListAboveTotal(ctx, uc.cfg.Threshold)
	if err != nil {
		return result, err
	}

	for _, account := range accounts {
		amount := uc.decayAmount(account.Total())
		if amount <= 0 {
			continue
		}

		ok, err := uc.decayOne(ctx, account.UserID, amount)
		if err != nil {
			return result, err
		}

		if !ok {
			result.Skipped++
			continue
		}

		result.Swept++
		result.Total += amount
	}

	if uc.metrics != nil {
		uc.metrics.DecaySweeps.Inc()
		uc.metrics.DecayedTotal.Add(float64(result.Total))
	}

	return result, nil
}

// decayAmount removes a fraction of the excess over the threshold,
// bounded by the per-sweep cap.
func (uc *DecayUseCase) decayAmount(total int64) int64 {
	excess := total - uc.cfg.Threshold
	if excess <= 0 {
		return 0
	}

	amount := int64(float64(excess) * uc.cfg.Rate)
	if uc.cfg.Cap > 0 && amount > uc.cfg.Cap {
		amount = uc.cfg.Cap
	}

	return amount
}

func (uc *DecayUseCase) decayOne(ctx context.Context, userID, amount int64) (bool, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// The wallet may have shrunk since the listing read. The conditional
	// debit catches the race; the account is picked up again next sweep.
	ok, err := uc.accountRepo.DebitWallet(ctx, tx, userID, amount)
	if err != nil {
		return false, err
	}

	if !ok {
		return false, nil
	}

	if err := uc.entryRepo.Create(ctx, tx, &domain.LedgerEntry{
		ID:        uc.idGen.Generate(),
		UserID:    userID,
		Amount:    -amount,
		Category:  domain.CategoryDecay,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	return true, nil
}
