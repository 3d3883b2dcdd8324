package nav

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mfreitas/navio/internal/models"
)

// tickerLedger accumulates one ticker's daily deltas before pricing.
type tickerLedger struct {
	ticker     string
	deltas     map[int64]float64 // unix day -> net traded quantity
	cashFlows  map[int64]float64 // unix day -> net signed cash
	firstTrade time.Time
}

// buildSeries reconstructs the full daily series from the first trade to
// today. Each ticker contributes a forward-filled close-price column; a
// ticker whose history cannot be fetched contributes zero and is reported
// in the series outcomes instead of failing the build.
func (s *Service) buildSeries(ctx context.Context, userID string, trades []*models.Trade) (*models.NAVSeries, error) {
	ledgers := collectLedgers(trades, s.engine.BaseFiat)
	if len(ledgers) == 0 {
		return nil, models.ErrEmptyPortfolio
	}

	first := time.Time{}
	for _, l := range ledgers {
		if first.IsZero() || l.firstTrade.Before(first) {
			first = l.firstTrade
		}
	}

	// One day before the first trade anchors the series at a zero-value,
	// zero-return row.
	start := day(first).AddDate(0, 0, -1)
	end := day(time.Now().UTC())
	days := dateRange(start, end)

	tickers := make([]string, 0, len(ledgers))
	for t := range ledgers {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	prices := make(map[string][]float64, len(tickers))
	outcomes := make([]models.TickerOutcome, 0, len(tickers))
	for _, ticker := range tickers {
		column, outcome, err := s.priceColumn(ctx, ticker, days)
		if err != nil {
			return nil, err
		}
		prices[ticker] = column
		outcomes = append(outcomes, outcome)
	}

	s.overwriteFinalDay(ctx, outcomes, prices)

	series := &models.NAVSeries{
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
		Rows:        make([]models.NAVRow, len(days)),
		Outcomes:    outcomes,
	}

	positions := make(map[string]float64, len(tickers))
	nav := 100.0
	prevValue := 0.0
	cumCashFlow := 0.0

	for i, d := range days {
		row := models.NAVRow{
			Date:   d,
			Assets: make(map[string]models.AssetDaily, len(tickers)),
		}
		key := d.Unix()

		for _, ticker := range tickers {
			l := ledgers[ticker]
			delta := l.deltas[key]
			positions[ticker] += delta

			asset := models.AssetDaily{
				Price:         prices[ticker][i],
				QuantityDelta: delta,
				Position:      positions[ticker],
			}
			asset.USDValue = roundCents(asset.Price * asset.Position)
			row.Assets[ticker] = asset
			row.PortfolioValue += asset.USDValue
			row.CashFlow += l.cashFlows[key]
		}

		if row.PortfolioValue != 0 {
			for ticker, asset := range row.Assets {
				asset.AllocationPct = asset.USDValue / row.PortfolioValue
				row.Assets[ticker] = asset
			}
		}

		// Modified Dietz day return, suppressed while the portfolio is
		// below the minimum size so dust-era noise cannot distort the
		// index.
		if i > 0 && row.PortfolioValue > s.engine.MinNAVSize {
			denom := prevValue + math.Abs(row.CashFlow)
			if denom != 0 {
				row.DietzReturn = (row.PortfolioValue - prevValue - row.CashFlow) / denom
			}
		}

		nav *= 1 + row.DietzReturn
		row.NAVIndex = nav
		cumCashFlow += row.CashFlow
		row.CumulativeCashFlow = cumCashFlow
		prevValue = row.PortfolioValue

		series.Rows[i] = row
	}

	return series, nil
}

// priceColumn resolves a ticker's daily close for every series day,
// carrying the last known close forward across gaps. Days before the first
// known close price at zero. An unknown ticker or missing API key degrades
// the ticker to a zero column with a reported outcome; a connectivity
// fault aborts the whole build so a half-priced series is never produced.
func (s *Service) priceColumn(ctx context.Context, ticker string, days []time.Time) ([]float64, models.TickerOutcome, error) {
	column := make([]float64, len(days))
	outcome := models.TickerOutcome{Ticker: ticker, Status: models.OutcomeOK}

	history, err := s.historical.HistoricalDaily(ctx, ticker)
	if err != nil {
		outcome.Status = classify(err)
		if outcome.Status == models.OutcomeConnection {
			return nil, outcome, fmt.Errorf("historical prices for %s: %w", ticker, errors.Join(models.ErrConnection, err))
		}
		outcome.Detail = err.Error()
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Historical prices unavailable, ticker valued at zero")
		return column, outcome, nil
	}

	last := 0.0
	for i, d := range days {
		if close, ok := history.CloseOn(d); ok {
			last = close
		}
		column[i] = last
	}
	return column, outcome, nil
}

// overwriteFinalDay replaces the last day's close with the live quote so
// today's row reflects the market now rather than yesterday's close. Only
// tickers whose history resolved are quoted; a degraded ticker stays at
// zero. On quote failure the forward-filled close stands.
func (s *Service) overwriteFinalDay(ctx context.Context, outcomes []models.TickerOutcome, prices map[string][]float64) {
	tickers := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == models.OutcomeOK {
			tickers = append(tickers, o.Ticker)
		}
	}
	if len(tickers) == 0 {
		return
	}

	quotes, err := s.spot.SpotPrices(ctx, tickers, s.engine.BaseFiat)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Spot quote failed, final day keeps prior close")
		return
	}
	for _, ticker := range tickers {
		column := prices[ticker]
		if len(column) == 0 {
			continue
		}
		if q, ok := quotes[ticker]; ok && q.USDPrice > 0 {
			column[len(column)-1] = q.USDPrice
		}
	}
}

func classify(err error) models.OutcomeStatus {
	switch {
	case errors.Is(err, models.ErrMissingAPIKey):
		return models.OutcomeMissingAPIKey
	case errors.Is(err, models.ErrInvalidTicker):
		return models.OutcomeInvalidTicker
	default:
		return models.OutcomeConnection
	}
}

// collectLedgers groups trades per ticker into daily quantity deltas and
// cash flows. The reporting fiat is cash, not an asset, and is skipped.
func collectLedgers(trades []*models.Trade, fiat string) map[string]*tickerLedger {
	ledgers := make(map[string]*tickerLedger)
	for _, t := range trades {
		ticker := strings.ToUpper(strings.TrimSpace(t.Ticker))
		if strings.EqualFold(ticker, fiat) {
			continue
		}
		l, ok := ledgers[ticker]
		if !ok {
			l = &tickerLedger{
				ticker:     ticker,
				deltas:     make(map[int64]float64),
				cashFlows:  make(map[int64]float64),
				firstTrade: t.Date,
			}
			ledgers[ticker] = l
		}
		if t.Date.Before(l.firstTrade) {
			l.firstTrade = t.Date
		}
		key := t.Day().Unix()
		l.deltas[key] += t.SignedQuantity()
		l.cashFlows[key] += t.SignedCashValue()
	}
	return ledgers
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateRange(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
