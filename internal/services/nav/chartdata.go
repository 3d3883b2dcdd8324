package nav

import "github.com/mfreitas/navio/internal/models"

// ChartPoint is one [epoch-milliseconds, value] pair, the shape charting
// front-ends consume directly.
type ChartPoint [2]float64

// ChartData is the NAV series flattened into plottable point arrays.
type ChartData struct {
	NAV                []ChartPoint `json:"nav"`
	PortfolioValue     []ChartPoint `json:"portfolio_value"`
	CumulativeCashFlow []ChartPoint `json:"cumulative_cash_flow"`
	AccumulatedPnL     []ChartPoint `json:"accumulated_pnl"`
}

// BuildChartData converts a NAV series into epoch-millisecond keyed point
// arrays. Accumulated P&L is the portfolio value net of everything paid in.
func BuildChartData(series *models.NAVSeries) *ChartData {
	if series == nil {
		return &ChartData{}
	}

	data := &ChartData{
		NAV:                make([]ChartPoint, 0, len(series.Rows)),
		PortfolioValue:     make([]ChartPoint, 0, len(series.Rows)),
		CumulativeCashFlow: make([]ChartPoint, 0, len(series.Rows)),
		AccumulatedPnL:     make([]ChartPoint, 0, len(series.Rows)),
	}

	for _, row := range series.Rows {
		ms := float64(row.Date.UnixMilli())
		data.NAV = append(data.NAV, ChartPoint{ms, row.NAVIndex})
		data.PortfolioValue = append(data.PortfolioValue, ChartPoint{ms, row.PortfolioValue})
		data.CumulativeCashFlow = append(data.CumulativeCashFlow, ChartPoint{ms, row.CumulativeCashFlow})
		data.AccumulatedPnL = append(data.AccumulatedPnL, ChartPoint{ms, row.PortfolioValue - row.CumulativeCashFlow})
	}

	return data
}
