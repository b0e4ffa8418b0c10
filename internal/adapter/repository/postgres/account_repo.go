package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Touch creates the account row with zero balances if it does not exist.
func (r *AccountRepository) Touch(ctx context.Context, tx usecase.Transaction, userID int64) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO accounts (user_id, wallet, bank, created_at, updated_at)
		VALUES ($1, 0, 0, now(), now())
		ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)

	return err
}

// Get retrieves an account by user ID.
func (r *AccountRepository) Get(ctx context.Context, userID int64) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, wallet, bank, created_at, updated_at
		FROM accounts
		WHERE user_id = $1`,
		userID,
	)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// CreditWallet adds to the wallet unconditionally.
func (r *AccountRepository) CreditWallet(ctx context.Context, tx usecase.Transaction, userID, amount int64) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE accounts
		SET wallet = wallet + $2, updated_at = now()
		WHERE user_id = $1`,
		userID, amount,
	)

	return err
}

// DebitWallet subtracts from the wallet only when it covers the amount.
// The balance check and the write are one statement, so concurrent
// debits cannot overdraw.
func (r *AccountRepository) DebitWallet(ctx context.Context, tx usecase.Transaction, userID, amount int64) (bool, error) {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE accounts
		SET wallet = wallet - $2, updated_at = now()
		WHERE user_id = $1 AND wallet >= $2`,
		userID, amount,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// CreditBank adds to the bank unconditionally.
func (r *AccountRepository) CreditBank(ctx context.Context, tx usecase.Transaction, userID, amount int64) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE accounts
		SET bank = bank + $2, updated_at = now()
		WHERE user_id = $1`,
		userID, amount,
	)

	return err
}

// DebitBank subtracts from the bank only when it covers the amount.
func (r *AccountRepository) DebitBank(ctx context.Context, tx usecase.Transaction, userID, amount int64) (bool, error) {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE accounts
		SET bank = bank - $2, updated_at = now()
		WHERE user_id = $1 AND bank >= $2`,
		userID, amount,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// ListAboveTotal lists accounts whose combined balance exceeds the
// threshold, richest first.
func (r *AccountRepository) ListAboveTotal(ctx context.Context, threshold int64) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, wallet, bank, created_at, updated_at
		FROM accounts
		WHERE wallet + bank > $1
		ORDER BY wallet + bank DESC`,
		threshold,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// TopByWallet lists the largest wallets.
func (r *AccountRepository) TopByWallet(ctx context.Context, limit int) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, wallet, bank, created_at, updated_at
		FROM accounts
		ORDER BY wallet DESC, user_id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account              domain.Account
		createdAt, updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(&account.UserID, &account.Wallet, &account.Bank, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time

	return &account, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	var accounts []*domain.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// Type conversion helpers shared by the repositories in this package.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
