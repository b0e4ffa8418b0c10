package domain

import "time"

// Account holds the two balances of a single user. The wallet is the
// liquid balance; the bank is a secondary store with the same atomicity
// rules. Accounts are created lazily on first reference and are never
// deleted, only zeroed.
type Account struct {
	UserID    int64
	Wallet    int64
	Bank      int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns wallet + bank, the value used by the decay sweep
// threshold check.
func (a *Account) Total() int64 {
	return a.Wallet + a.Bank
}
