package models

import "time"

// AssetDaily is one asset's slice of a daily NAV row.
type AssetDaily struct {
	Price         float64 `json:"price"`
	QuantityDelta float64 `json:"quantity_delta"` // net traded quantity this day
	Position      float64 `json:"position"`       // cumulative position at end of day
	USDValue      float64 `json:"usd_value"`      // price * position, rounded to cents
	AllocationPct float64 `json:"allocation_pct"` // fraction of portfolio value, 0 when portfolio is 0
}

// NAVRow is one calendar day of the reconstructed portfolio series. Rows for
// past dates are immutable once computed.
type NAVRow struct {
	Date               time.Time             `json:"date"`
	Assets             map[string]AssetDaily `json:"assets"`
	PortfolioValue     float64               `json:"portfolio_value"`
	CashFlow           float64               `json:"cash_flow"`    // net signed trade cash this day
	DietzReturn        float64               `json:"dietz_return"` // 0 below the minimum-size threshold
	NAVIndex           float64               `json:"nav_index"`    // cumprod(1+r) * 100
	CumulativeCashFlow float64               `json:"cumulative_cash_flow"`
}

// OutcomeStatus classifies how a ticker fared during a NAV build.
type OutcomeStatus string

const (
	OutcomeOK            OutcomeStatus = "ok"
	OutcomeInvalidTicker OutcomeStatus = "invalid_ticker"
	OutcomeMissingAPIKey OutcomeStatus = "missing_api_key"
	OutcomeConnection    OutcomeStatus = "connection_error"
)

// TickerOutcome reports per-ticker success or degradation of a NAV build, so
// callers can detect partial results deterministically instead of scraping
// logs.
type TickerOutcome struct {
	Ticker string        `json:"ticker"`
	Status OutcomeStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

// Degraded reports whether any ticker failed to contribute to the series.
func Degraded(outcomes []TickerOutcome) bool {
	for _, o := range outcomes {
		if o.Status != OutcomeOK {
			return true
		}
	}
	return false
}

// NAVSeries is the full daily valuation series for one user.
type NAVSeries struct {
	UserID      string          `json:"user_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Rows        []NAVRow        `json:"rows"`
	Outcomes    []TickerOutcome `json:"outcomes,omitempty"`
}

// Last returns the most recent row, or nil for an empty series.
func (s *NAVSeries) Last() *NAVRow {
	if len(s.Rows) == 0 {
		return nil
	}
	return &s.Rows[len(s.Rows)-1]
}

// MatchedLot records one lot consumed by a closing trade.
type MatchedLot struct {
	LotID             string  `json:"id"`
	HoldingPeriodDays int     `json:"holding_period"`
	RemainingToClose  float64 `json:"cumquant"` // close quantity still unmatched after this lot
}

// Unwind is the realized-P&L detail for one closing trade, keyed by the
// closing trade's reference id in the matcher output.
type Unwind struct {
	Method      string       `json:"method"`
	Date        time.Time    `json:"date"`
	UnwindValue float64      `json:"unwind_value"` // |quantity * price| of the closing trade
	MatchedCash float64      `json:"match_value"`  // pro-rated cash of consumed lots
	RealizedPnL float64      `json:"realpnl"`      // unwind value - matched cash
	Lots        []MatchedLot `json:"lots"`
}

// HeatmapRow is one calendar year of monthly compounded returns. Months with
// no data hold exactly zero.
type HeatmapRow struct {
	Year   int         `json:"year"`
	Months [12]float64 `json:"months"`
	EOY    float64     `json:"eoy"`
}

// YearStats summarises one heatmap year. Exactly-zero months are treated as
// missing and excluded from min/max/means.
type YearStats struct {
	Year      int     `json:"year"`
	Max       float64 `json:"max"`
	Min       float64 `json:"min"`
	Positives int     `json:"positives"`
	Negatives int     `json:"negatives"`
	PosMean   float64 `json:"pos_mean"`
	NegMean   float64 `json:"neg_mean"`
	Mean      float64 `json:"mean"`
}

// Heatmap is the monthly returns grid with per-year statistics.
type Heatmap struct {
	Rows    []HeatmapRow `json:"rows"`
	Stats   []YearStats  `json:"stats"`
	Years   []int        `json:"years"`
	Columns []string     `json:"columns"` // month labels plus trailing "eoy"
}
