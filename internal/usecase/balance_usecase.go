package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/infrastructure/metrics"
)

// BalanceUseCase handles wallet and bank business logic. Every mutation
// writes the balance change and its ledger entry in one transaction, and
// debits go through a conditional update so a wallet can never be driven
// negative even under concurrent spends.
type BalanceUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
) *BalanceUseCase {
	return &BalanceUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
	}
}

// WithRetrier re-runs transfers on transient database errors. Opposing
// transfers lock the two account rows in opposite orders, so one of a
// deadlocked pair is aborted and needs a second attempt.
func (uc *BalanceUseCase) WithRetrier(retrier Retrier) *BalanceUseCase {
	uc.retrier = retrier
	return uc
}

// WithMetrics attaches Prometheus instrumentation.
func (uc *BalanceUseCase) WithMetrics(m *metrics.Metrics) *BalanceUseCase {
	uc.metrics = m
	return uc
}

func (uc *BalanceUseCase) retry(ctx context.Context, operation func() error) error {
	if uc.retrier == nil {
		return operation()
	}

	return uc.retrier.Retry(ctx, operation)
}

// CreditInput represents input for an administrative award.
type CreditInput struct {
	Metadata map[string]any
	Reason   string
	UserID   int64
	Amount   int64
}

// Credit adds funds to a user's wallet.
func (uc *BalanceUseCase) Credit(ctx context.Context, input CreditInput) error {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.creditWallet(ctx, tx, input.UserID, input.Amount, domain.CategoryAward, input.Reason, nil, input.Metadata); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DebitInput represents input for an administrative removal.
type DebitInput struct {
	Metadata map[string]any
	Reason   string
	UserID   int64
	Amount   int64
}

// Debit removes funds from a user's wallet. Returns
// domain.ErrInsufficientFunds when the wallet does not cover the amount.
func (uc *BalanceUseCase) Debit(ctx context.Context, input DebitInput) error {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.debitWallet(ctx, tx, input.UserID, input.Amount, domain.CategoryTake, input.Reason, nil, input.Metadata); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// TransferInput represents input for a user-to-user gift.
type TransferInput struct {
	Metadata   map[string]any
	Reason     string
	FromUserID int64
	ToUserID   int64
	Amount     int64
}

// Transfer moves funds between two users' wallets. The sender's debit is
// conditional, so a race between two gifts from the same wallet fails
// cleanly instead of overdrawing.
func (uc *BalanceUseCase) Transfer(ctx context.Context, input TransferInput) error {
	if input.FromUserID == input.ToUserID {
		return domain.ErrSameAccount
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return err
	}

	err := uc.retry(ctx, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := uc.debitWallet(ctx, tx, input.FromUserID, input.Amount, domain.CategoryGift, input.Reason, &input.ToUserID, input.Metadata); err != nil {
			return err
		}

		if err := uc.creditWallet(ctx, tx, input.ToUserID, input.Amount, domain.CategoryGift, input.Reason, &input.FromUserID, input.Metadata); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.TransferAmount.Observe(float64(input.Amount))
	}

	return nil
}

// Deposit moves funds from the wallet into the bank. The ledger tracks
// wallet movements, so a deposit is recorded as a negative entry.
func (uc *BalanceUseCase) Deposit(ctx context.Context, userID, amount int64) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Touch(ctx, tx, userID); err != nil {
		return err
	}

	ok, err := uc.accountRepo.DebitWallet(ctx, tx, userID, amount)
	if err != nil {
		return err
	}

	if !ok {
		return domain.ErrInsufficientFunds
	}

	if err := uc.accountRepo.CreditBank(ctx, tx, userID, amount); err != nil {
		return err
	}

	if err := uc.createEntry(ctx, tx, userID, -amount, domain.CategoryBankDeposit, "", nil, nil); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Withdraw moves funds from the bank back into the wallet.
func (uc *BalanceUseCase) Withdraw(ctx context.Context, userID, amount int64) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Touch(ctx, tx, userID); err != nil {
		return err
	}

	ok, err := uc.accountRepo.DebitBank(ctx, tx, userID, amount)
	if err != nil {
		return err
	}

	if !ok {
		return domain.ErrInsufficientFunds
	}

	if err := uc.accountRepo.CreditWallet(ctx, tx, userID, amount); err != nil {
		return err
	}

	if err := uc.createEntry(ctx, tx, userID, amount, domain.CategoryBankWithdraw, "", nil, nil); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetBalance retrieves a user's balances. Unknown users read as empty
// accounts rather than errors.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, userID int64) (*domain.Account, error) {
	account, err := uc.accountRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return &domain.Account{UserID: userID}, nil
		}

		return nil, err
	}

	return account, nil
}

// ListEntriesInput represents input for listing ledger entries.
type ListEntriesInput struct {
	UserID int64
	Limit  int
	Offset int
}

// ListEntries lists a user's ledger entries, newest first.
func (uc *BalanceUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	if input.Limit > 100 {
		input.Limit = 100
	}

	return uc.entryRepo.ListByUser(ctx, input.UserID, input.Limit, input.Offset)
}

// ReplayBalance recomputes a user's wallet balance from the ledger alone.
func (uc *BalanceUseCase) ReplayBalance(ctx context.Context, userID int64) (int64, error) {
	return uc.entryRepo.SumByUser(ctx, userID)
}

// VerifyLedger checks that the stored wallet balance matches the sum of
// the user's ledger entries.
func (uc *BalanceUseCase) VerifyLedger(ctx context.Context, userID int64) (bool, int64, int64, error) {
	account, err := uc.GetBalance(ctx, userID)
	if err != nil {
		return false, 0, 0, err
	}

	replayed, err := uc.entryRepo.SumByUser(ctx, userID)
	if err != nil {
		return false, 0, 0, err
	}

	return account.Wallet == replayed, account.Wallet, replayed, nil
}

// TopWallets lists the richest wallets.
func (uc *BalanceUseCase) TopWallets(ctx context.Context, limit int) ([]*domain.Account, error) {
	if limit <= 0 {
		limit = 10
	}

	if limit > 100 {
		limit = 100
	}

	return uc.accountRepo.TopByWallet(ctx, limit)
}

func (uc *BalanceUseCase) creditWallet(ctx context.Context, tx Transaction, userID, amount int64, category, reason string, otherID *int64, metadata map[string]any) error {
	if err := uc.accountRepo.Touch(ctx, tx, userID); err != nil {
		return err
	}

	if err := uc.accountRepo.CreditWallet(ctx, tx, userID, amount); err != nil {
		return err
	}

	return uc.createEntry(ctx, tx, userID, amount, category, reason, otherID, metadata)
}

func (uc *BalanceUseCase) debitWallet(ctx context.Context, tx Transaction, userID, amount int64, category, reason string, otherID *int64, metadata map[string]any) error {
	if err := uc.accountRepo.Touch(ctx, tx, userID); err != nil {
		return err
	}

	ok, err := uc.accountRepo.DebitWallet(ctx, tx, userID, amount)
	if err != nil {
		return err
	}

	if !ok {
		if uc.metrics != nil {
			uc.metrics.DebitDenials.Inc()
		}

		return domain.ErrInsufficientFunds
	}

	return uc.createEntry(ctx, tx, userID, -amount, category, reason, otherID, metadata)
}

func (uc *BalanceUseCase) createEntry(ctx context.Context, tx Transaction, userID, amount int64, category, reason string, otherID *int64, metadata map[string]any) error {
	if err := uc.entryRepo.Create(ctx, tx, &domain.LedgerEntry{
		ID:        uc.idGen.Generate(),
		UserID:    userID,
		Amount:    amount,
		Category:  category,
		Reason:    reason,
		OtherID:   otherID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.LedgerEntries.WithLabelValues(category).Inc()
	}

	return nil
}
