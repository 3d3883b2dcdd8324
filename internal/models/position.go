package models

import "time"

// CostBasis is the cost decomposition of one ticker under one lot-matching
// convention.
type CostBasis struct {
	MatchedCash         float64 `json:"matched_cash"` // pro-rated cash of surviving lots
	Quantity            float64 `json:"quantity"`     // equals the ticker's open position
	LotCount            int     `json:"lot_count"`
	AverageCost         float64 `json:"average_cost"` // matched_cash / quantity
	UnrealizedPnL       float64 `json:"unrealized_pnl"`
	RealizedPnL         float64 `json:"realized_pnl"`
	UnrealizedBreakeven float64 `json:"unrealized_breakeven"`
}

// CostMatrix holds both lot-matching variants for a ticker.
type CostMatrix struct {
	FIFO CostBasis `json:"fifo"`
	LIFO CostBasis `json:"lifo"`
}

// Position is one consolidated per-ticker row of the portfolio table.
type Position struct {
	Ticker        string     `json:"ticker"`
	Quantity      float64    `json:"quantity"`
	USDPrice      float64    `json:"usd_price"`
	BTCPrice      float64    `json:"btc_price"`
	USDPosition   float64    `json:"usd_position"`
	BTCPosition   float64    `json:"btc_position"`
	ChangePct24h  float64    `json:"chg_pct_24h"`
	ChangeUSD24h  float64    `json:"chg_usd_24h"`
	USDAllocation float64    `json:"usd_allocation"` // fraction of portfolio, USD basis
	BTCAllocation float64    `json:"btc_allocation"` // fraction of portfolio, BTC basis
	IsDust        bool       `json:"is_dust"`        // allocation strictly below the dust threshold
	CashFlowValue float64    `json:"cash_flow_value"`
	TotalFees     float64    `json:"total_fees"`
	TradeCount    int        `json:"trade_count"`
	Breakeven     float64    `json:"breakeven"` // current price - net pnl per unit; 0 for dust rows
	PnLGrossUSD   float64    `json:"total_pnl_gross_usd"`
	PnLNetUSD     float64    `json:"total_pnl_net_usd"`
	CostMatrix    CostMatrix `json:"cost_matrix"`
	LastUpdate    time.Time  `json:"last_update"` // quote timestamp from the provider
}

// PositionTotals aggregates the portfolio-level columns of the table.
type PositionTotals struct {
	CashFlowValue float64   `json:"cash_flow_value"`
	TradeFees     float64   `json:"trade_fees"`
	TradeCount    int       `json:"trade_count"`
	USDPosition   float64   `json:"usd_position"`
	BTCPosition   float64   `json:"btc_position"`
	ChangeUSD24h  float64   `json:"chg_usd_24h"`
	ChangePct24h  float64   `json:"chg_pct_24h"`
	PnLGrossUSD   float64   `json:"total_pnl_gross_usd"`
	PnLNetUSD     float64   `json:"total_pnl_net_usd"`
	RefreshTime   time.Time `json:"refresh_time"`
}

// PositionTable is the consolidated portfolio snapshot, rebuilt per request.
type PositionTable struct {
	Positions []Position     `json:"positions"`
	Totals    PositionTotals `json:"totals"`
}

// Find returns the row for a ticker, or nil.
func (t *PositionTable) Find(ticker string) *Position {
	for i := range t.Positions {
		if t.Positions[i].Ticker == ticker {
			return &t.Positions[i]
		}
	}
	return nil
}

// PieSlice is one allocation slice for the portfolio pie chart. Y is the
// allocation percentage (0-100).
type PieSlice struct {
	Name string  `json:"name"`
	Y    float64 `json:"y"`
}
