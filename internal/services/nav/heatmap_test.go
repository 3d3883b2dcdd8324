package nav

import (
	"errors"
	"testing"
	"time"

	"github.com/mfreitas/navio/internal/models"
)

// navRowsFrom builds a series with one row per given (date, nav) pair.
func navRowsFrom(points [][2]interface{}) *models.NAVSeries {
	series := &models.NAVSeries{}
	for _, p := range points {
		series.Rows = append(series.Rows, models.NAVRow{
			Date:     p[0].(time.Time),
			NAVIndex: p[1].(float64),
		})
	}
	return series
}

func TestHeatmap_EmptySeries(t *testing.T) {
	svc, _ := newTestService(t, &stubHistorical{}, &stubSpot{})

	_, err := svc.Heatmap(&models.NAVSeries{})
	if !errors.Is(err, models.ErrEmptyPortfolio) {
		t.Fatalf("empty series = %v, want ErrEmptyPortfolio", err)
	}
	if _, err := svc.Heatmap(nil); !errors.Is(err, models.ErrEmptyPortfolio) {
		t.Fatalf("nil series = %v, want ErrEmptyPortfolio", err)
	}
}

func TestHeatmap_MonthlyCompounding(t *testing.T) {
	svc, _ := newTestService(t, &stubHistorical{}, &stubSpot{})

	d := func(y int, m time.Month, day int) time.Time {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
	// Feb compounds two daily moves into +10%; Mar is flat; Apr loses 5%.
	series := navRowsFrom([][2]interface{}{
		{d(2024, time.January, 31), 100.0},
		{d(2024, time.February, 15), 105.0},
		{d(2024, time.February, 29), 110.0},
		{d(2024, time.March, 31), 110.0},
		{d(2024, time.April, 30), 104.5},
	})

	heatmap, err := svc.Heatmap(series)
	if err != nil {
		t.Fatalf("Heatmap: %v", err)
	}
	if len(heatmap.Rows) != 1 || heatmap.Rows[0].Year != 2024 {
		t.Fatalf("rows = %+v, want one 2024 row", heatmap.Rows)
	}
	row := heatmap.Rows[0]

	if !approxEqual(row.Months[1], 0.10, 1e-9) {
		t.Errorf("Feb = %.6f, want 0.10", row.Months[1])
	}
	if row.Months[2] != 0 {
		t.Errorf("Mar = %.6f, want exactly 0", row.Months[2])
	}
	if !approxEqual(row.Months[3], -0.05, 1e-9) {
		t.Errorf("Apr = %.6f, want -0.05", row.Months[3])
	}
	// EOY compounds the observed months: 1.10 * 1.00 * 0.95 - 1.
	if !approxEqual(row.EOY, 1.10*0.95-1, 1e-9) {
		t.Errorf("EOY = %.6f, want %.6f", row.EOY, 1.10*0.95-1)
	}

	// Stats exclude the exactly-zero March.
	stats := heatmap.Stats[0]
	if stats.Positives != 1 || stats.Negatives != 1 {
		t.Errorf("pos/neg = %d/%d, want 1/1", stats.Positives, stats.Negatives)
	}
	if !approxEqual(stats.Max, 0.10, 1e-9) || !approxEqual(stats.Min, -0.05, 1e-9) {
		t.Errorf("max/min = %.4f/%.4f, want 0.10/-0.05", stats.Max, stats.Min)
	}
	if !approxEqual(stats.Mean, (0.10-0.05)/2, 1e-9) {
		t.Errorf("mean = %.6f, want %.6f", stats.Mean, (0.10-0.05)/2)
	}
	if !approxEqual(stats.PosMean, 0.10, 1e-9) || !approxEqual(stats.NegMean, -0.05, 1e-9) {
		t.Errorf("pos/neg mean = %.4f/%.4f", stats.PosMean, stats.NegMean)
	}

	if len(heatmap.Columns) != 13 || heatmap.Columns[12] != "eoy" {
		t.Errorf("columns = %v, want 12 months plus eoy", heatmap.Columns)
	}
}

func TestHeatmap_MultipleYearsSorted(t *testing.T) {
	svc, _ := newTestService(t, &stubHistorical{}, &stubSpot{})

	d := func(y int, m time.Month, day int) time.Time {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
	series := navRowsFrom([][2]interface{}{
		{d(2023, time.December, 31), 100.0},
		{d(2024, time.January, 31), 120.0},
		{d(2024, time.December, 31), 120.0},
		{d(2025, time.January, 31), 150.0},
	})

	heatmap, err := svc.Heatmap(series)
	if err != nil {
		t.Fatalf("Heatmap: %v", err)
	}
	if len(heatmap.Years) != 2 || heatmap.Years[0] != 2024 || heatmap.Years[1] != 2025 {
		t.Fatalf("years = %v, want [2024 2025]", heatmap.Years)
	}
	if !approxEqual(heatmap.Rows[0].Months[0], 0.20, 1e-9) {
		t.Errorf("Jan 2024 = %.4f, want 0.20", heatmap.Rows[0].Months[0])
	}
	if !approxEqual(heatmap.Rows[1].Months[0], 0.25, 1e-9) {
		t.Errorf("Jan 2025 = %.4f, want 0.25", heatmap.Rows[1].Months[0])
	}
}
