package nav

import (
	"sort"
	"time"

	"github.com/mfreitas/navio/internal/models"
)

var monthColumns = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "eoy",
}

// Heatmap compounds the daily NAV returns into a year-by-month grid with
// per-year statistics. A month with no data holds exactly zero, and
// exactly-zero months are excluded from the statistics.
func (s *Service) Heatmap(series *models.NAVSeries) (*models.Heatmap, error) {
	if series == nil || len(series.Rows) == 0 {
		return nil, models.ErrEmptyPortfolio
	}

	type monthKey struct {
		year  int
		month time.Month
	}

	// Compound daily NAV percentage changes per calendar month. The NAV
	// index already carries the Dietz returns, so consecutive-row ratios
	// are the daily returns.
	factors := make(map[monthKey]float64)
	for i := 1; i < len(series.Rows); i++ {
		prev, cur := series.Rows[i-1], series.Rows[i]
		if prev.NAVIndex == 0 {
			continue
		}
		key := monthKey{cur.Date.Year(), cur.Date.Month()}
		f, ok := factors[key]
		if !ok {
			f = 1
		}
		factors[key] = f * (cur.NAVIndex / prev.NAVIndex)
	}

	yearSet := make(map[int]bool)
	for key := range factors {
		yearSet[key.year] = true
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	heatmap := &models.Heatmap{
		Years:   years,
		Columns: monthColumns,
	}

	for _, year := range years {
		row := models.HeatmapRow{Year: year}
		stats := models.YearStats{Year: year}

		eoyFactor := 1.0
		var observed []float64
		for m := time.January; m <= time.December; m++ {
			f, ok := factors[monthKey{year, m}]
			if !ok {
				continue
			}
			ret := f - 1
			row.Months[int(m)-1] = ret
			eoyFactor *= f
			if ret != 0 {
				observed = append(observed, ret)
			}
		}
		row.EOY = eoyFactor - 1

		if len(observed) > 0 {
			stats.Max = observed[0]
			stats.Min = observed[0]
			var sum, posSum, negSum float64
			for _, r := range observed {
				if r > stats.Max {
					stats.Max = r
				}
				if r < stats.Min {
					stats.Min = r
				}
				sum += r
				if r > 0 {
					stats.Positives++
					posSum += r
				} else {
					stats.Negatives++
					negSum += r
				}
			}
			stats.Mean = sum / float64(len(observed))
			if stats.Positives > 0 {
				stats.PosMean = posSum / float64(stats.Positives)
			}
			if stats.Negatives > 0 {
				stats.NegMean = negSum / float64(stats.Negatives)
			}
		}

		heatmap.Rows = append(heatmap.Rows, row)
		heatmap.Stats = append(heatmap.Stats, stats)
	}

	return heatmap, nil
}
