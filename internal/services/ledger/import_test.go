package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/models"
	"github.com/mfreitas/navio/internal/storage"
)

const sampleCSV = `date,ticker,operation,quantity,price,cash_value,fees
2024-01-01,BTC,buy,1,40000,40000,10
2024-02-01,btc,SELL,0.5,50000,25000,5
2024-03-01,ETH,B,10,2000,,
`

func TestParseCSV(t *testing.T) {
	trades, err := ParseCSV("alice", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("trades = %d, want 3", len(trades))
	}

	first := trades[0]
	if first.Ticker != "BTC" || first.Operation != models.OperationBuy {
		t.Errorf("first = %s/%s, want BTC/B", first.Ticker, first.Operation)
	}
	if first.Quantity != 1 || first.CashValue != 40000 || first.Fees != 10 {
		t.Errorf("first = %+v", first)
	}
	if first.Date.Year() != 2024 || first.Date.Month() != 1 {
		t.Errorf("first date = %v", first.Date)
	}

	if trades[1].Operation != models.OperationSell {
		t.Errorf("second op = %s, want S", trades[1].Operation)
	}

	// Missing cash_value derives from quantity * price.
	if trades[2].CashValue != 20000 {
		t.Errorf("derived cash = %.2f, want 20000", trades[2].CashValue)
	}

	// Every row gets a distinct reference id.
	seen := map[string]bool{}
	for _, tr := range trades {
		if tr.ReferenceID == "" || seen[tr.ReferenceID] {
			t.Errorf("reference id %q not unique", tr.ReferenceID)
		}
		seen[tr.ReferenceID] = true
	}
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := ParseCSV("alice", strings.NewReader("date,ticker,quantity\n2024-01-01,BTC,1\n"))
	if err == nil || !strings.Contains(err.Error(), "operation") {
		t.Fatalf("missing column = %v, want header error", err)
	}
}

func TestParseCSV_BadRowReportsLine(t *testing.T) {
	csv := "date,ticker,operation,quantity,price\n2024-01-01,BTC,buy,one,40000\n"
	_, err := ParseCSV("alice", strings.NewReader(csv))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("bad row = %v, want line-numbered error", err)
	}
}

func TestImportCSV_WritesLedger(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = t.TempDir()
	mgr, err := storage.NewManager(common.NewSilentLogger(), cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	im := NewImporter(mgr, common.NewSilentLogger())
	n, err := im.ImportCSV(context.Background(), "alice", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if n != 3 {
		t.Errorf("imported = %d, want 3", n)
	}

	trades, err := mgr.TradeStore().ListTrades(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 3 {
		t.Errorf("stored trades = %d, want 3", len(trades))
	}
}
