package costbasis

import (
	"testing"

	"github.com/mfreitas/navio/internal/models"
)

func TestMatchLots_SimpleClose(t *testing.T) {
	// Buy 10 for $100 on day 1, sell 10 for $200 on day 5.
	// The sell consumes the whole lot: matched cash $100, unwind value
	// $200, realized P&L $100, held 4 days.
	trades := []*models.Trade{buy(1, 10, 100), sell(5, 10, 200)}

	unwinds, err := MatchLots(trades, FIFO)
	if err != nil {
		t.Fatalf("MatchLots: %v", err)
	}
	u := unwinds[trades[1].ReferenceID]
	if u == nil {
		t.Fatal("no unwind recorded for the sell")
	}
	if !approxEqual(u.MatchedCash, 100, 1e-9) {
		t.Errorf("matched cash = %.4f, want 100", u.MatchedCash)
	}
	if !approxEqual(u.UnwindValue, 200, 1e-9) {
		t.Errorf("unwind value = %.4f, want 200", u.UnwindValue)
	}
	if !approxEqual(u.RealizedPnL, 100, 1e-9) {
		t.Errorf("realized pnl = %.4f, want 100", u.RealizedPnL)
	}
	if len(u.Lots) != 1 {
		t.Fatalf("matched lots = %d, want 1", len(u.Lots))
	}
	if u.Lots[0].HoldingPeriodDays != 4 {
		t.Errorf("holding period = %d days, want 4", u.Lots[0].HoldingPeriodDays)
	}
	if u.Lots[0].LotID != trades[0].ReferenceID {
		t.Errorf("lot id = %s, want %s", u.Lots[0].LotID, trades[0].ReferenceID)
	}
}

func TestMatchLots_FIFOvsLIFO(t *testing.T) {
	// Buy 10 @ $10, buy 10 @ $20, sell 5 @ $30.
	// FIFO consumes the $10 lot: matched cash $50, realized $100.
	// LIFO consumes the $20 lot: matched cash $100, realized $50.
	trades := []*models.Trade{buy(1, 10, 100), buy(2, 10, 200), sell(3, 5, 150)}

	fifo, err := MatchLots(trades, FIFO)
	if err != nil {
		t.Fatalf("MatchLots FIFO: %v", err)
	}
	lifo, err := MatchLots(trades, LIFO)
	if err != nil {
		t.Fatalf("MatchLots LIFO: %v", err)
	}

	uf := fifo[trades[2].ReferenceID]
	if !approxEqual(uf.MatchedCash, 50, 1e-9) || !approxEqual(uf.RealizedPnL, 100, 1e-9) {
		t.Errorf("FIFO matched/realized = %.2f/%.2f, want 50/100", uf.MatchedCash, uf.RealizedPnL)
	}
	if uf.Lots[0].LotID != trades[0].ReferenceID {
		t.Errorf("FIFO consumed lot %s, want oldest %s", uf.Lots[0].LotID, trades[0].ReferenceID)
	}

	ul := lifo[trades[2].ReferenceID]
	if !approxEqual(ul.MatchedCash, 100, 1e-9) || !approxEqual(ul.RealizedPnL, 50, 1e-9) {
		t.Errorf("LIFO matched/realized = %.2f/%.2f, want 100/50", ul.MatchedCash, ul.RealizedPnL)
	}
	if ul.Lots[0].LotID != trades[1].ReferenceID {
		t.Errorf("LIFO consumed lot %s, want newest %s", ul.Lots[0].LotID, trades[1].ReferenceID)
	}
}

func TestMatchLots_PartialConsumptionProRatesCash(t *testing.T) {
	// Buy 10 for $100. Sell 4, then sell 6, both at $15.
	// First sell matches 4/10 of the lot ($40), leaving 6 units and $60.
	// Second sell matches the remaining $60.
	trades := []*models.Trade{buy(1, 10, 100), sell(2, 4, 60), sell(3, 6, 90)}

	unwinds, err := MatchLots(trades, FIFO)
	if err != nil {
		t.Fatalf("MatchLots: %v", err)
	}
	u1 := unwinds[trades[1].ReferenceID]
	if !approxEqual(u1.MatchedCash, 40, 1e-9) {
		t.Errorf("first sell matched cash = %.4f, want 40", u1.MatchedCash)
	}
	if !approxEqual(u1.RealizedPnL, 20, 1e-9) {
		t.Errorf("first sell realized = %.4f, want 20", u1.RealizedPnL)
	}

	u2 := unwinds[trades[2].ReferenceID]
	if !approxEqual(u2.MatchedCash, 60, 1e-9) {
		t.Errorf("second sell matched cash = %.4f, want 60", u2.MatchedCash)
	}
	if !approxEqual(u2.RealizedPnL, 30, 1e-9) {
		t.Errorf("second sell realized = %.4f, want 30", u2.RealizedPnL)
	}
}

func TestMatchLots_PositionFlip(t *testing.T) {
	// Buy 10 @ $10, buy 10 @ $12, sell 30 @ $15.
	// The sell consumes both lots (20 units, $220 cash) and flips the book
	// short by 10. Realized P&L covers only the matched 20 units:
	// 20*15 - 220 = $80. The leftover 10 becomes a new sell-side lot.
	trades := []*models.Trade{buy(1, 10, 100), buy(2, 10, 120), sell(3, 30, 450)}

	unwinds, err := MatchLots(trades, FIFO)
	if err != nil {
		t.Fatalf("MatchLots: %v", err)
	}
	u := unwinds[trades[2].ReferenceID]
	if u == nil {
		t.Fatal("no unwind recorded for the flipping sell")
	}
	if len(u.Lots) != 2 {
		t.Fatalf("matched lots = %d, want 2", len(u.Lots))
	}
	if !approxEqual(u.MatchedCash, 220, 1e-9) {
		t.Errorf("matched cash = %.4f, want 220", u.MatchedCash)
	}
	if !approxEqual(u.UnwindValue, 300, 1e-9) {
		t.Errorf("unwind value = %.4f, want 300 (20 matched units at $15)", u.UnwindValue)
	}
	if !approxEqual(u.RealizedPnL, 80, 1e-9) {
		t.Errorf("realized pnl = %.4f, want 80", u.RealizedPnL)
	}

	// A later buy of 10 closes the flipped short. Its cost basis is the
	// remainder of the sell: 10 units of the $450 sale = $150 proceeds.
	// Buy back at $11 ($110): realized = 150 - 110 = $40.
	closing := buy(5, 10, 110)
	closing.ReferenceID = "t9"
	trades = append(trades, closing)

	unwinds, err = MatchLots(trades, FIFO)
	if err != nil {
		t.Fatalf("MatchLots after cover: %v", err)
	}
	uc := unwinds[closing.ReferenceID]
	if uc == nil {
		t.Fatal("no unwind recorded for the covering buy")
	}
	if !approxEqual(uc.MatchedCash, 150, 1e-9) {
		t.Errorf("cover matched cash = %.4f, want 150", uc.MatchedCash)
	}
	if !approxEqual(uc.RealizedPnL, 40, 1e-9) {
		t.Errorf("cover realized = %.4f, want 40", uc.RealizedPnL)
	}
	if uc.Lots[0].LotID != trades[2].ReferenceID {
		t.Errorf("cover consumed lot %s, want the flip remainder %s", uc.Lots[0].LotID, trades[2].ReferenceID)
	}
}

func TestMatchLots_RemainingToCloseDecreases(t *testing.T) {
	// Sell 15 against lots of 10 and 10: the first matched row leaves 5
	// still to close, the second leaves 0.
	trades := []*models.Trade{buy(1, 10, 100), buy(2, 10, 120), sell(3, 15, 300)}

	unwinds, err := MatchLots(trades, FIFO)
	if err != nil {
		t.Fatalf("MatchLots: %v", err)
	}
	u := unwinds[trades[2].ReferenceID]
	if len(u.Lots) != 2 {
		t.Fatalf("matched lots = %d, want 2", len(u.Lots))
	}
	if !approxEqual(u.Lots[0].RemainingToClose, 5, 1e-9) {
		t.Errorf("first remaining = %.4f, want 5", u.Lots[0].RemainingToClose)
	}
	if !approxEqual(u.Lots[1].RemainingToClose, 0, 1e-9) {
		t.Errorf("second remaining = %.4f, want 0", u.Lots[1].RemainingToClose)
	}
}

func TestMatchLots_BuysOnlyProduceNoUnwinds(t *testing.T) {
	trades := []*models.Trade{buy(1, 10, 100), buy(2, 5, 60)}

	unwinds, err := MatchLots(trades, FIFO)
	if err != nil {
		t.Fatalf("MatchLots: %v", err)
	}
	if len(unwinds) != 0 {
		t.Errorf("unwinds = %d, want 0", len(unwinds))
	}
}
