package costbasis

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mfreitas/navio/internal/models"
)

// openLot is a position-building trade waiting to be unwound. Partial
// consumption reduces quantity and cash pro-rata, in place.
type openLot struct {
	refID    string
	date     int64
	day      int64 // unix day for holding-period arithmetic
	quantity decimal.Decimal
	cash     decimal.Decimal
}

// consume takes up to want quantity from the lot, returning the quantity
// actually taken and its pro-rated cash.
func (l *openLot) consume(want decimal.Decimal) (taken, cash decimal.Decimal) {
	if l.quantity.LessThanOrEqual(want) {
		taken, cash = l.quantity, l.cash
		l.quantity, l.cash = decimal.Zero, decimal.Zero
		return taken, cash
	}
	taken = want
	cash = l.cash.Mul(want).Div(l.quantity)
	l.quantity = l.quantity.Sub(want)
	l.cash = l.cash.Sub(cash)
	return taken, cash
}

// lotQueue holds open lots ordered oldest-first. FIFO consumes from the
// front, LIFO from the back.
type lotQueue struct {
	lots   []*openLot
	method Method
}

func (q *lotQueue) push(l *openLot) {
	q.lots = append(q.lots, l)
	sort.SliceStable(q.lots, func(i, j int) bool {
		return q.lots[i].date < q.lots[j].date
	})
}

func (q *lotQueue) peek() *openLot {
	if len(q.lots) == 0 {
		return nil
	}
	if q.method == LIFO {
		return q.lots[len(q.lots)-1]
	}
	return q.lots[0]
}

func (q *lotQueue) dropExhausted() {
	kept := q.lots[:0]
	for _, l := range q.lots {
		if l.quantity.IsPositive() {
			kept = append(kept, l)
		}
	}
	q.lots = kept
}

// MatchLots walks a ticker's trades in recorded order and, for each trade
// that reduces the running position, matches it against the queue of prior
// position-side lots. The result maps each closing trade's reference id to
// the lots it consumed, the matched cash flow, and the realized P&L.
//
// When a closing trade is larger than every accumulated lot, the queue is
// exhausted, the position flips, and the remainder becomes a new lot in the
// closing trade's direction dated at the closing trade.
func MatchLots(trades []*models.Trade, method Method) (map[string]*models.Unwind, error) {
	queue := &lotQueue{method: method}
	out := make(map[string]*models.Unwind)

	currentPos := decimal.Zero

	for _, t := range trades {
		// Deposits and withdraws move quantity with no price attached, so
		// they can neither seed a lot nor realize P&L.
		if t.Operation != models.OperationBuy && t.Operation != models.OperationSell {
			continue
		}
		signed := decimal.NewFromFloat(t.SignedQuantity())
		if signed.IsZero() {
			continue
		}

		// Flat book, or trading with the position's direction: the trade
		// only builds the position.
		if currentPos.IsZero() || currentPos.Sign() == signed.Sign() {
			currentPos = currentPos.Add(signed)
			queue.push(&openLot{
				refID:    t.ReferenceID,
				date:     t.Date.Unix(),
				day:      t.Day().Unix(),
				quantity: signed.Abs(),
				cash:     decimal.NewFromFloat(t.CashValue).Abs(),
			})
			continue
		}

		// Opposing trade: unwind prior lots until its quantity is spent.
		remaining := signed.Abs()
		closeDay := t.Day().Unix()
		price := decimal.NewFromFloat(t.Price)

		unwind := &models.Unwind{
			Method: string(method),
			Date:   t.Date,
		}
		matchedCash := decimal.Zero
		matchedQty := decimal.Zero
		currentPos = currentPos.Add(signed)

		for remaining.IsPositive() {
			head := queue.peek()
			if head == nil {
				// Position flip: the book reverses into the closing
				// trade's direction. The leftover becomes a fresh lot so
				// later opposing trades can unwind against it.
				currentPos = remaining
				if signed.IsNegative() {
					currentPos = remaining.Neg()
				}
				flipCash := decimal.NewFromFloat(t.CashValue).Abs().Mul(remaining).Div(signed.Abs())
				queue.push(&openLot{
					refID:    t.ReferenceID,
					date:     t.Date.Unix(),
					day:      closeDay,
					quantity: remaining,
					cash:     flipCash,
				})
				break
			}

			taken, cash := head.consume(remaining)
			remaining = remaining.Sub(taken)
			matchedQty = matchedQty.Add(taken)
			matchedCash = matchedCash.Add(cash)

			unwind.Lots = append(unwind.Lots, models.MatchedLot{
				LotID:             head.refID,
				HoldingPeriodDays: int((closeDay - head.day) / 86400),
				RemainingToClose:  mustFloat(remaining),
			})
			queue.dropExhausted()
		}

		unwindValue := matchedQty.Mul(price).Abs()
		realized := unwindValue.Sub(matchedCash)
		if signed.IsPositive() {
			// A buy closing a short book: the matched sell cash is the
			// proceeds and the buy value is the cost.
			realized = realized.Neg()
		}
		unwind.UnwindValue = mustFloat(unwindValue)
		unwind.MatchedCash = mustFloat(matchedCash)
		unwind.RealizedPnL = mustFloat(realized)
		out[t.ReferenceID] = unwind
	}

	return out, nil
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
