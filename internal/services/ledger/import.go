// Package ledger imports external trade records into the transaction store.
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
	"github.com/mfreitas/navio/internal/models"
)

// csv columns, by header name
const (
	colDate      = "date"
	colTicker    = "ticker"
	colOperation = "operation"
	colQuantity  = "quantity"
	colPrice     = "price"
	colCash      = "cash_value"
	colFees      = "fees"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// Importer parses trade CSVs and appends them to a user's ledger.
type Importer struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewImporter creates a new ledger importer
func NewImporter(storage interfaces.StorageManager, logger *common.Logger) *Importer {
	return &Importer{storage: storage, logger: logger}
}

// ImportCSV reads a trade CSV and appends every row to the user's ledger.
// Each imported trade receives a fresh reference id. Returns the number of
// trades written.
//
// Expected header: date,ticker,operation,quantity,price[,cash_value][,fees].
// A missing cash_value is derived as quantity * price.
func (im *Importer) ImportCSV(ctx context.Context, userID string, r io.Reader) (int, error) {
	trades, err := ParseCSV(userID, r)
	if err != nil {
		return 0, err
	}
	if len(trades) == 0 {
		return 0, nil
	}
	if err := im.storage.TradeStore().SaveTrades(ctx, userID, trades); err != nil {
		return 0, fmt.Errorf("failed to save imported trades: %w", err)
	}
	im.logger.Info().Str("user", userID).Int("trades", len(trades)).Msg("Ledger imported")
	return len(trades), nil
}

// ParseCSV parses trade rows without touching storage.
func ParseCSV(userID string, r io.Reader) ([]*models.Trade, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colDate, colTicker, colOperation, colQuantity, colPrice} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header missing required column '%s'", required)
		}
	}

	var trades []*models.Trade
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line+1, err)
		}
		line++

		trade, err := parseRow(userID, record, cols)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func parseRow(userID string, record []string, cols map[string]int) (*models.Trade, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := parseDate(field(colDate))
	if err != nil {
		return nil, err
	}

	op, err := models.ParseOperation(field(colOperation))
	if err != nil {
		return nil, err
	}

	quantity, err := strconv.ParseFloat(field(colQuantity), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity '%s'", field(colQuantity))
	}

	price, err := strconv.ParseFloat(field(colPrice), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price '%s'", field(colPrice))
	}

	cash := quantity * price
	if v := field(colCash); v != "" {
		cash, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cash_value '%s'", v)
		}
	}

	fees := 0.0
	if v := field(colFees); v != "" {
		fees, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fees '%s'", v)
		}
	}

	return &models.Trade{
		UserID:      userID,
		ReferenceID: uuid.NewString(),
		Ticker:      strings.ToUpper(field(colTicker)),
		Operation:   op,
		Quantity:    quantity,
		CashValue:   cash,
		Fees:        fees,
		Price:       price,
		Date:        date,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date '%s'", s)
}
