package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mfreitas/navio/internal/models"
)

const cryptoPayload = `{
	"Time Series (Digital Currency Daily)": {
		"2024-01-02": {"4a. close (USD)": "45000.00"},
		"2024-01-01": {"4a. close (USD)": "44000.00"}
	}
}`

const stockPayload = `{
	"Time Series (Daily)": {
		"2024-01-02": {"4. close": "191.50"},
		"2024-01-01": {"4. close": "190.00"}
	}
}`

func TestHistoricalDaily_MissingAPIKey(t *testing.T) {
	client := NewClient("")
	_, err := client.HistoricalDaily(context.Background(), "BTC")
	if !errors.Is(err, models.ErrMissingAPIKey) {
		t.Fatalf("empty key = %v, want ErrMissingAPIKey", err)
	}
}

func TestHistoricalDaily_CryptoSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "DIGITAL_CURRENCY_DAILY" {
			t.Errorf("function = %s, want DIGITAL_CURRENCY_DAILY", got)
		}
		w.Write([]byte(cryptoPayload))
	}))
	defer server.Close()

	client := NewClient("demo", WithBaseURL(server.URL))
	series, err := client.HistoricalDaily(context.Background(), "btc")
	if err != nil {
		t.Fatalf("HistoricalDaily: %v", err)
	}
	if series.Kind != models.SeriesKindCrypto {
		t.Errorf("kind = %s, want crypto", series.Kind)
	}
	if series.Ticker != "BTC" {
		t.Errorf("ticker = %s, want BTC (upcased)", series.Ticker)
	}
	if len(series.Closes) != 2 {
		t.Fatalf("closes = %d, want 2", len(series.Closes))
	}
	// Sorted oldest first.
	if !series.Closes[0].Date.Before(series.Closes[1].Date) {
		t.Error("closes not sorted ascending")
	}
	if series.Closes[0].Close != 44000 {
		t.Errorf("first close = %.2f, want 44000", series.Closes[0].Close)
	}
}

func TestHistoricalDaily_StockFallback(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("function") == "DIGITAL_CURRENCY_DAILY" {
			// Unknown crypto symbol: no series key in the payload.
			w.Write([]byte(`{"Error Message": "Invalid API call"}`))
			return
		}
		w.Write([]byte(stockPayload))
	}))
	defer server.Close()

	client := NewClient("demo", WithBaseURL(server.URL))
	series, err := client.HistoricalDaily(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("HistoricalDaily: %v", err)
	}
	if series.Kind != models.SeriesKindStock {
		t.Errorf("kind = %s, want stock", series.Kind)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("API calls = %d, want crypto then stock", calls)
	}
}

func TestHistoricalDaily_InvalidTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call"}`))
	}))
	defer server.Close()

	client := NewClient("demo", WithBaseURL(server.URL))
	_, err := client.HistoricalDaily(context.Background(), "NOTREAL")
	if !errors.Is(err, models.ErrInvalidTicker) {
		t.Fatalf("unknown ticker = %v, want ErrInvalidTicker", err)
	}
}

func TestHistoricalDaily_ConnectionError(t *testing.T) {
	client := NewClient("demo", WithBaseURL("http://127.0.0.1:1"))
	_, err := client.HistoricalDaily(context.Background(), "BTC")
	if !errors.Is(err, models.ErrConnection) {
		t.Fatalf("refused connection = %v, want ErrConnection", err)
	}
}

func TestHistoricalDaily_ServerErrorIsConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("demo", WithBaseURL(server.URL), WithCachePath(t.TempDir()))
	_, err := client.HistoricalDaily(context.Background(), "BTC")
	if !errors.Is(err, models.ErrConnection) {
		t.Fatalf("http 502 = %v, want ErrConnection", err)
	}
}

func TestHistoricalDaily_SameDayMemo(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(cryptoPayload))
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient("demo", WithBaseURL(server.URL), WithCachePath(dir))

	first, err := client.HistoricalDaily(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := client.HistoricalDaily(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("API calls = %d, want 1 (second served from memo)", calls)
	}
	if len(second.Closes) != len(first.Closes) {
		t.Errorf("memo closes = %d, want %d", len(second.Closes), len(first.Closes))
	}
}

func TestHistoricalDaily_StaleMemoRefetched(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(cryptoPayload))
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient("demo", WithBaseURL(server.URL), WithCachePath(dir))

	if _, err := client.HistoricalDaily(context.Background(), "BTC"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Age the memo to yesterday so the calendar-day check rejects it.
	stale := &models.PriceSeries{
		Ticker:      "BTC",
		Kind:        models.SeriesKindCrypto,
		Closes:      []models.DailyClose{{Date: time.Now().UTC(), Close: 1}},
		RetrievedAt: time.Now().UTC().AddDate(0, 0, -1),
	}
	client.writeMemo("BTC", stale)

	if _, err := client.HistoricalDaily(context.Background(), "BTC"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("API calls = %d, want 2 (stale memo ignored)", calls)
	}
}
