// Package costbasis computes FIFO/LIFO cost decomposition and realized-P&L
// lot matching for a single ticker's trade history.
package costbasis

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mfreitas/navio/internal/models"
)

// Method selects the lot-matching convention.
type Method string

const (
	FIFO Method = "FIFO"
	LIFO Method = "LIFO"
)

// lot is one surviving cost-basis row in the engine's working set.
type lot struct {
	refID    string
	date     int64 // unix seconds, for ordering
	quantity decimal.Decimal
	cash     decimal.Decimal
}

// Compute derives the FIFO and LIFO cost decomposition for one ticker.
// trades must all belong to the same user and ticker; openPosition is the
// ticker's current signed open quantity summed over the full ledger.
//
// Returns models.ErrZeroPosition when openPosition is zero; callers
// special-case the USD ticker and fully-closed positions to a zero matrix.
func Compute(trades []*models.Trade, openPosition float64) (*models.CostMatrix, error) {
	if openPosition == 0 {
		return nil, models.ErrZeroPosition
	}

	// Surviving lots are the trades on the same side as the open position:
	// Buys for a long book, Sells for a short book. The filter matches the
	// operation exactly, so Deposits and Withdraws (quantity moves with no
	// cost information) can never leak into the lot set. A position funded
	// purely by deposits therefore carries a zero cost basis.
	side := models.OperationBuy
	if openPosition < 0 {
		side = models.OperationSell
	}

	lots := make([]lot, 0, len(trades))
	for _, t := range trades {
		if t.Operation != side {
			continue
		}
		q := decimal.NewFromFloat(t.Quantity).Abs()
		if q.IsZero() {
			return nil, fmt.Errorf("trade %s has zero quantity", t.ReferenceID)
		}
		lots = append(lots, lot{
			refID:    t.ReferenceID,
			date:     t.Date.Unix(),
			quantity: q,
			cash:     decimal.NewFromFloat(t.CashValue).Abs(),
		})
	}

	open := decimal.NewFromFloat(openPosition).Abs()

	matrix := &models.CostMatrix{
		FIFO: matchSide(lots, open, openPosition, FIFO),
		LIFO: matchSide(lots, open, openPosition, LIFO),
	}
	return matrix, nil
}

// matchSide consumes lots in method order until the open position is
// covered, pro-rating each lot's cash by the quantity actually used.
func matchSide(lots []lot, open decimal.Decimal, signedOpen float64, method Method) models.CostBasis {
	ordered := make([]lot, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if method == LIFO {
			return ordered[i].date > ordered[j].date
		}
		return ordered[i].date < ordered[j].date
	})

	matched := decimal.Zero
	prevCum := decimal.Zero
	cum := decimal.Zero
	count := 0

	for _, l := range ordered {
		cum = cum.Add(l.quantity)
		if cum.GreaterThan(open) {
			cum = open // cap: lots beyond the open position are excluded
		}
		consumed := cum.Sub(prevCum)
		if consumed.IsZero() {
			// Duplicate cumulative quantity: the position was already
			// covered by earlier lots.
			break
		}
		matched = matched.Add(l.cash.Mul(consumed).Div(l.quantity))
		count++
		prevCum = cum
	}

	matchedF, _ := matched.Float64()
	avg := 0.0
	if !open.IsZero() {
		avgDec := matched.Div(open)
		avg, _ = avgDec.Float64()
	}

	return models.CostBasis{
		MatchedCash: matchedF,
		Quantity:    signedOpen,
		LotCount:    count,
		AverageCost: avg,
	}
}
