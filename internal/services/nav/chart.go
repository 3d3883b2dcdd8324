package nav

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mfreitas/navio/internal/models"
)

// RenderNAVChart renders the NAV index series as a PNG line chart.
// Returns raw PNG bytes.
func RenderNAVChart(series *models.NAVSeries) ([]byte, error) {
	if series == nil || len(series.Rows) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", seriesLen(series))
	}

	xValues := make([]time.Time, len(series.Rows))
	navY := make([]float64, len(series.Rows))
	for i, row := range series.Rows {
		xValues[i] = row.Date
		navY[i] = row.NAVIndex
	}

	navSeries := chart.TimeSeries{
		Name: "NAV",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: navY,
	}

	// A flat reference line at the 100 starting index.
	baseY := make([]float64, len(series.Rows))
	for i := range baseY {
		baseY[i] = 100
	}
	baseSeries := chart.TimeSeries{
		Name: "Start",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: baseY,
	}

	graph := chart.Chart{
		Title:  "Portfolio NAV",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			navSeries,
			baseSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

func seriesLen(series *models.NAVSeries) int {
	if series == nil {
		return 0
	}
	return len(series.Rows)
}
