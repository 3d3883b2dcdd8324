// Package position consolidates a user's trade ledger into a live
// portfolio table priced by the spot provider.
package position

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
	"github.com/mfreitas/navio/internal/models"
	"github.com/mfreitas/navio/internal/services/costbasis"
)

// Service implements interfaces.PositionService.
type Service struct {
	storage interfaces.StorageManager
	spot    interfaces.SpotPriceClient
	engine  common.EngineConfig
	logger  *common.Logger
}

// NewService creates a new position service
func NewService(storage interfaces.StorageManager, spot interfaces.SpotPriceClient, engine common.EngineConfig, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		spot:    spot,
		engine:  engine,
		logger:  logger,
	}
}

// group is one ticker's ledger aggregate before pricing.
type group struct {
	ticker   string
	quantity float64
	cashFlow float64
	fees     float64
	count    int
	trades   []*models.Trade
}

// Consolidate groups the user's trades per ticker, prices every open
// position with one batched spot request, and derives allocations, dust
// flags, breakevens and the FIFO/LIFO cost matrix.
func (s *Service) Consolidate(ctx context.Context, userID, fx string, hideDust bool) (*models.PositionTable, []models.PieSlice, error) {
	if fx == "" {
		fx = s.engine.BaseFiat
	}

	trades, err := s.storage.TradeStore().ListTrades(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list trades: %w", err)
	}

	groups := groupByTicker(trades)

	// The reporting fiat itself is not a position.
	tickers := make([]string, 0, len(groups))
	for _, g := range groups {
		if strings.EqualFold(g.ticker, fx) {
			continue
		}
		if g.quantity == 0 {
			// Fully closed: nothing to price or allocate.
			continue
		}
		tickers = append(tickers, g.ticker)
	}
	if len(tickers) == 0 {
		return nil, nil, models.ErrEmptyPortfolio
	}
	sort.Strings(tickers)

	quotes, err := s.spot.SpotPrices(ctx, tickers, fx)
	if err != nil {
		return nil, nil, fmt.Errorf("spot quote failed: %w", err)
	}

	refresh := time.Now().UTC()
	positions := make([]models.Position, 0, len(tickers))
	for _, ticker := range tickers {
		g := groups[ticker]
		p := models.Position{
			Ticker:        ticker,
			Quantity:      g.quantity,
			CashFlowValue: g.cashFlow,
			TotalFees:     g.fees,
			TradeCount:    g.count,
			LastUpdate:    refresh,
		}
		if q, ok := quotes[ticker]; ok {
			p.USDPrice = q.USDPrice
			p.BTCPrice = q.BTCPrice
			p.ChangePct24h = q.ChangePct24h
			p.LastUpdate = q.LastUpdate
		} else {
			s.logger.Warn().Str("ticker", ticker).Msg("No spot quote, position priced at zero")
		}
		p.USDPosition = p.Quantity * p.USDPrice
		p.BTCPosition = p.Quantity * p.BTCPrice
		p.ChangeUSD24h = p.USDPosition * p.ChangePct24h / 100
		p.PnLGrossUSD = p.USDPosition - p.CashFlowValue
		p.PnLNetUSD = p.PnLGrossUSD - p.TotalFees

		s.fillCostMatrix(&p, g.trades)
		positions = append(positions, p)
	}

	totals := sumTotals(positions, refresh)
	applyAllocations(positions, totals)

	for i := range positions {
		p := &positions[i]
		p.IsDust = p.USDAllocation < s.engine.DustThreshold
		if !p.IsDust && p.Quantity != 0 {
			p.Breakeven = p.USDPrice - p.PnLNetUSD/p.Quantity
		}
	}

	if hideDust {
		kept := positions[:0]
		for _, p := range positions {
			if !p.IsDust {
				kept = append(kept, p)
			}
		}
		positions = kept
	}

	slices := make([]models.PieSlice, 0, len(positions))
	for _, p := range positions {
		slices = append(slices, models.PieSlice{Name: p.Ticker, Y: p.USDAllocation * 100})
	}

	s.logger.Debug().Str("user", userID).Int("positions", len(positions)).Float64("usd_value", totals.USDPosition).Msg("Portfolio consolidated")

	return &models.PositionTable{Positions: positions, Totals: totals}, slices, nil
}

// fillCostMatrix attaches the FIFO/LIFO decomposition and splits the net
// P&L into its unrealized and realized parts per method.
func (s *Service) fillCostMatrix(p *models.Position, trades []*models.Trade) {
	matrix, err := costbasis.Compute(trades, p.Quantity)
	if err != nil {
		// A zero open position never reaches here; anything else means a
		// malformed ledger row for this ticker.
		s.logger.Warn().Err(err).Str("ticker", p.Ticker).Msg("Cost basis unavailable")
		return
	}

	for _, cb := range []*models.CostBasis{&matrix.FIFO, &matrix.LIFO} {
		cb.UnrealizedPnL = (p.USDPrice - cb.AverageCost) * p.Quantity
		cb.RealizedPnL = p.PnLNetUSD - cb.UnrealizedPnL
		if p.Quantity != 0 {
			cb.UnrealizedBreakeven = p.USDPrice - cb.UnrealizedPnL/p.Quantity
		}
	}
	p.CostMatrix = *matrix
}

func groupByTicker(trades []*models.Trade) map[string]*group {
	groups := make(map[string]*group)
	for _, t := range trades {
		ticker := strings.ToUpper(strings.TrimSpace(t.Ticker))
		g, ok := groups[ticker]
		if !ok {
			g = &group{ticker: ticker}
			groups[ticker] = g
		}
		g.quantity += t.SignedQuantity()
		g.cashFlow += t.SignedCashValue()
		g.fees += t.Fees
		g.count++
		g.trades = append(g.trades, t)
	}
	return groups
}

func sumTotals(positions []models.Position, refresh time.Time) models.PositionTotals {
	totals := models.PositionTotals{RefreshTime: refresh}
	for _, p := range positions {
		totals.CashFlowValue += p.CashFlowValue
		totals.TradeFees += p.TotalFees
		totals.TradeCount += p.TradeCount
		totals.USDPosition += p.USDPosition
		totals.BTCPosition += p.BTCPosition
		totals.ChangeUSD24h += p.ChangeUSD24h
		totals.PnLGrossUSD += p.PnLGrossUSD
		totals.PnLNetUSD += p.PnLNetUSD
	}
	if prev := totals.USDPosition - totals.ChangeUSD24h; prev != 0 {
		totals.ChangePct24h = totals.ChangeUSD24h / prev * 100
	}
	return totals
}

// applyAllocations sets each row's share of the total USD and BTC value.
func applyAllocations(positions []models.Position, totals models.PositionTotals) {
	for i := range positions {
		p := &positions[i]
		if totals.USDPosition != 0 {
			p.USDAllocation = p.USDPosition / totals.USDPosition
		}
		if totals.BTCPosition != 0 {
			p.BTCAllocation = p.BTCPosition / totals.BTCPosition
		}
	}
}

// Compile-time check
var _ interfaces.PositionService = (*Service)(nil)
