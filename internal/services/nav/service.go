// Package nav reconstructs the daily portfolio valuation series and its
// derived views: Dietz returns, the NAV index, the monthly returns heatmap
// and chart payloads.
package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
	"github.com/mfreitas/navio/internal/models"
)

// Service implements interfaces.NAVService.
type Service struct {
	storage    interfaces.StorageManager
	historical interfaces.HistoricalPriceClient
	spot       interfaces.SpotPriceClient
	engine     common.EngineConfig
	logger     *common.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new NAV service
func NewService(storage interfaces.StorageManager, historical interfaces.HistoricalPriceClient, spot interfaces.SpotPriceClient, engine common.EngineConfig, logger *common.Logger) *Service {
	return &Service{
		storage:    storage,
		historical: historical,
		spot:       spot,
		engine:     engine,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// userLock returns the per-user build mutex, so at most one goroutine
// recomputes and persists a given user's series at a time.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Build returns the user's daily NAV series. A cached series inside the
// renewal window is served as-is. Force discards the cache first. A
// filtered build always recomputes and is never persisted.
func (s *Service) Build(ctx context.Context, userID string, opts interfaces.BuildOptions) (*models.NAVSeries, error) {
	filtered := opts.Filter != nil

	if !filtered && !opts.Force {
		if series, err := s.storage.NAVCache().Get(ctx, userID); err == nil {
			if common.IsFresh(series.GeneratedAt, s.engine.GetRenewNAV()) {
				s.logger.Debug().Str("user", userID).Time("generated", series.GeneratedAt).Msg("NAV series served from cache")
				return series, nil
			}
		} else if !errors.Is(err, models.ErrCacheMiss) {
			return nil, err
		}
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if opts.Force && !filtered {
		if err := s.storage.NAVCache().Invalidate(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to invalidate nav cache: %w", err)
		}
	}

	trades, err := s.storage.TradeStore().ListTrades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	if filtered {
		kept := trades[:0]
		for _, t := range trades {
			if opts.Filter(t) {
				kept = append(kept, t)
			}
		}
		trades = kept
	}

	start := time.Now()
	series, err := s.buildSeries(ctx, userID, trades)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user", userID).
		Int("rows", len(series.Rows)).
		Bool("degraded", models.Degraded(series.Outcomes)).
		Dur("elapsed", time.Since(start)).
		Msg("NAV series computed")

	if !filtered {
		if err := s.storage.NAVCache().Put(ctx, series); err != nil {
			// A cache write failure degrades to uncached operation.
			s.logger.Warn().Err(err).Str("user", userID).Msg("Failed to cache NAV series")
		}
	}

	return series, nil
}

// Compile-time check
var _ interfaces.NAVService = (*Service)(nil)
