package models

import "errors"

// Sentinel errors shared across clients and services. Checked with errors.Is
// so wrapped variants keep their classification.
var (
	// ErrConnection means the price provider was unreachable or returned a
	// payload that could not be decoded. The affected request aborts; caches
	// are left untouched.
	ErrConnection = errors.New("price provider connection error")

	// ErrEmptyPortfolio means the user holds no non-USD positions. A terminal
	// empty-result state, not a failure.
	ErrEmptyPortfolio = errors.New("portfolio has no non-USD positions")

	// ErrInvalidTicker means a ticker resolves as neither crypto nor stock.
	// Its contribution to NAV is zeroed and the build continues.
	ErrInvalidTicker = errors.New("ticker not found as crypto or stock")

	// ErrMissingAPIKey means the historical-price credential is absent.
	// Treated like ErrInvalidTicker for the affected ticker.
	ErrMissingAPIKey = errors.New("historical price API key is empty")

	// ErrCacheMiss means no usable cached NAV series exists for the user.
	ErrCacheMiss = errors.New("nav cache entry not found")

	// ErrZeroPosition means a cost basis was requested for a zero open
	// position. Callers special-case USD and fully-closed tickers.
	ErrZeroPosition = errors.New("cost basis undefined for zero open position")
)
