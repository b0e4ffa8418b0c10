package integration

import (
	"context"
	"testing"

	"github.com/lowkeylabs/guildbank/internal/adapter/repository/postgres"
	"github.com/lowkeylabs/guildbank/internal/usecase"
	"github.com/lowkeylabs/guildbank/tests/testutil"
)

func TestDecaySweep(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	accountRepo := postgres.NewAccountRepository(testDB.Pool)
	entryRepo := postgres.NewEntryRepository(testDB.Pool)
	txManager := postgres.NewTxManager(testDB.Pool)
	idGen := postgres.NewULIDGenerator()

	decayUC := usecase.NewDecayUseCase(usecase.DecayConfig{
		Threshold: 10000,
		Rate:      0.10,
		Cap:       500,
	}, txManager, accountRepo, entryRepo, idGen)

	t.Run("sweeps the excess and stays replayable", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		// 12000 total, 2000 over the threshold, 10% = 200 decayed.
		testDB.CreateTestAccount(ctx, 1, 12000, 0)
		// 30000 over the threshold would decay 3000, bounded by the cap.
		testDB.CreateTestAccount(ctx, 2, 40000, 0)
		// Under the threshold, untouched.
		testDB.CreateTestAccount(ctx, 3, 5000, 0)

		result, err := decayUC.Sweep(ctx)
		if err != nil {
			t.Fatalf("sweep failed: %v", err)
		}

		if result.Swept != 2 {
			t.Errorf("expected 2 accounts swept, got %d", result.Swept)
		}

		if result.Total != 700 {
			t.Errorf("expected 700 decayed in total, got %d", result.Total)
		}

		if got := testDB.WalletBalance(ctx, 1); got != 11800 {
			t.Errorf("expected wallet 11800, got %d", got)
		}

		if got := testDB.WalletBalance(ctx, 2); got != 39500 {
			t.Errorf("expected wallet 39500, got %d", got)
		}

		if got := testDB.WalletBalance(ctx, 3); got != 5000 {
			t.Errorf("expected wallet 5000 untouched, got %d", got)
		}

		balanceUC, _ := newBalanceUseCase(testDB)
		for _, userID := range []int64{1, 2} {
			balanced, wallet, replayed, err := balanceUC.VerifyLedger(ctx, userID)
			if err != nil {
				t.Fatalf("verify failed for %d: %v", userID, err)
			}

			if !balanced {
				t.Errorf("expected ledger balanced for %d, wallet=%d replayed=%d", userID, wallet, replayed)
			}
		}
	})

	t.Run("bank counts toward the threshold but only the wallet is debited", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		// Wallet 1000 + bank 11000 = 12000 total, decay 200 from the wallet.
		testDB.CreateTestAccount(ctx, 4, 1000, 11000)

		result, err := decayUC.Sweep(ctx)
		if err != nil {
			t.Fatalf("sweep failed: %v", err)
		}

		if result.Swept != 1 {
			t.Errorf("expected 1 account swept, got %d", result.Swept)
		}

		if got := testDB.WalletBalance(ctx, 4); got != 800 {
			t.Errorf("expected wallet 800, got %d", got)
		}
	})
}
