package models

import (
	"sort"
	"time"
)

// SpotQuote is one ticker's live quote in the reporting fiat plus BTC.
type SpotQuote struct {
	Ticker       string    `json:"ticker"`
	USDPrice     float64   `json:"usd_price"`
	ChangePct24h float64   `json:"chg_pct_24h"`
	LastUpdate   time.Time `json:"last_update"`
	BTCPrice     float64   `json:"btc_price"`
}

// SpotQuotes maps ticker to its live quote.
type SpotQuotes map[string]SpotQuote

// SeriesKind classifies how a historical series was resolved.
type SeriesKind string

const (
	SeriesKindCrypto SeriesKind = "crypto"
	SeriesKindStock  SeriesKind = "stock"
)

// DailyClose is one end-of-day close price.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a ticker's historical daily close series, oldest first.
type PriceSeries struct {
	Ticker      string       `json:"ticker"`
	Kind        SeriesKind   `json:"kind"`
	Closes      []DailyClose `json:"closes"`
	RetrievedAt time.Time    `json:"retrieved_at"`
}

// Sort orders the closes ascending by date.
func (s *PriceSeries) Sort() {
	sort.Slice(s.Closes, func(i, j int) bool {
		return s.Closes[i].Date.Before(s.Closes[j].Date)
	})
}

// CloseOn returns the close for an exact calendar day, if present.
func (s *PriceSeries) CloseOn(day time.Time) (float64, bool) {
	y, m, d := day.Date()
	for i := range s.Closes {
		cy, cm, cd := s.Closes[i].Date.Date()
		if cy == y && cm == m && cd == d {
			return s.Closes[i].Close, true
		}
	}
	return 0, false
}
