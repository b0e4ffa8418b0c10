package domain

import "regexp"

var symbolRE = regexp.MustCompile(`^[A-Z]{1,8}$`)

// ValidateAmount rejects non-positive quantities before any mutation.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	return nil
}

// ValidateShares rejects non-positive share counts and orders above the
// per-trade limit that bounds slippage impact.
func ValidateShares(shares, maxPerTrade int64) error {
	if shares <= 0 {
		return ErrInvalidAmount
	}

	if shares > maxPerTrade {
		return ErrTradeLimitExceeded
	}

	return nil
}

// ValidateSymbol checks the ticker format used by issued stocks.
func ValidateSymbol(symbol string) error {
	if !symbolRE.MatchString(symbol) {
		return ErrInvalidSymbol
	}

	return nil
}
