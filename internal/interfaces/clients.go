// Package interfaces defines service contracts for Navio
package interfaces

import (
	"context"

	"github.com/mfreitas/navio/internal/models"
)

// SpotPriceClient provides batched live quotes. One call covers every ticker
// in the portfolio, quoted in the reporting fiat plus BTC.
type SpotPriceClient interface {
	// SpotPrices retrieves live quotes for the given tickers. Unreachable
	// provider or malformed payload yields models.ErrConnection.
	SpotPrices(ctx context.Context, tickers []string, fx string) (models.SpotQuotes, error)
}

// HistoricalPriceClient provides daily close series. Implementations own a
// per-ticker memo valid for the current calendar day.
type HistoricalPriceClient interface {
	// HistoricalDaily retrieves the full daily close history for a ticker,
	// trying crypto resolution first and falling back to stock. Errors are
	// classified as models.ErrConnection, models.ErrInvalidTicker, or
	// models.ErrMissingAPIKey.
	HistoricalDaily(ctx context.Context, ticker string) (*models.PriceSeries, error)
}
