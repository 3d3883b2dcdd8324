// Package interfaces defines service contracts for Navio
package interfaces

import (
	"context"

	"github.com/mfreitas/navio/internal/models"
)

// StorageManager coordinates the storage backends.
type StorageManager interface {
	TradeStore() TradeStore
	NAVCache() NAVCacheStore

	// DataPath returns the base data directory path.
	DataPath() string

	// WriteRaw writes arbitrary binary data to a subdirectory atomically.
	// Key is sanitized for safe filenames (e.g. "alice-nav.png").
	WriteRaw(subdir, key string, data []byte) error

	// Lifecycle
	Close() error
}

// TradeStore is the external transaction ledger: append-only trade records
// keyed by user, returned in insertion order.
type TradeStore interface {
	// ListTrades returns the user's trades in recorded order.
	ListTrades(ctx context.Context, userID string) ([]*models.Trade, error)

	// SaveTrades appends trades to the user's ledger.
	SaveTrades(ctx context.Context, userID string, trades []*models.Trade) error

	// DeleteTrades removes all trades for an account, returning the count.
	DeleteTrades(ctx context.Context, userID string) (int, error)
}

// NAVCacheStore memoizes computed NAV series per user. Put must be atomic:
// a concurrent Get never observes a partially-written entry.
type NAVCacheStore interface {
	// Get returns the cached series for a user, or models.ErrCacheMiss.
	// A corrupt entry degrades to a miss rather than an error.
	Get(ctx context.Context, userID string) (*models.NAVSeries, error)

	// Put replaces the user's cache entry atomically.
	Put(ctx context.Context, series *models.NAVSeries) error

	// Invalidate discards the user's cache entry if present.
	Invalidate(ctx context.Context, userID string) error
}
