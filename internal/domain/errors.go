package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrSameAccount       = errors.New("cannot transfer to same account")

	// Market errors
	ErrUnknownSymbol      = errors.New("unknown stock symbol")
	ErrSymbolExists       = errors.New("stock symbol already issued")
	ErrSymbolDelisted     = errors.New("stock is delisted")
	ErrInvalidSymbol      = errors.New("symbol must be 1-8 uppercase letters")
	ErrTradeLimitExceeded = errors.New("share count exceeds per-trade limit")
	ErrInsufficientShares = errors.New("insufficient shares held")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
)
