// Package interfaces defines service contracts for Navio
package interfaces

import (
	"context"

	"github.com/mfreitas/navio/internal/models"
)

// PositionService consolidates a user's ledger into a live portfolio table.
type PositionService interface {
	// Consolidate builds the per-ticker table and pie-chart slices. Returns
	// models.ErrEmptyPortfolio when only USD remains after grouping, and
	// models.ErrConnection when the spot provider fails.
	Consolidate(ctx context.Context, userID, fx string, hideDust bool) (*models.PositionTable, []models.PieSlice, error)
}

// BuildOptions configures a NAV build.
type BuildOptions struct {
	// Force discards any cached series before recomputing.
	Force bool

	// Filter, when set, restricts the transaction set before computation.
	// A filtered build bypasses the freshness cache and is never persisted.
	Filter func(*models.Trade) bool
}

// NAVService reconstructs the daily NAV series and its derived views.
type NAVService interface {
	// Build returns the daily NAV series for a user, serving a cached copy
	// when it is inside the renewal window.
	Build(ctx context.Context, userID string, opts BuildOptions) (*models.NAVSeries, error)

	// Heatmap aggregates a series into monthly/annual return statistics.
	// Returns models.ErrEmptyPortfolio for an empty series.
	Heatmap(series *models.NAVSeries) (*models.Heatmap, error)
}
