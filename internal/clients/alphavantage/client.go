// Package alphavantage provides a client for the Alpha Vantage daily
// history API with a per-day on-disk memo.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
	"github.com/mfreitas/navio/internal/models"
)

const (
	DefaultBaseURL   = "https://www.alphavantage.co/query"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	cryptoSeriesKey = "Time Series (Digital Currency Daily)"
	stockSeriesKey  = "Time Series (Daily)"
)

// Client implements the HistoricalPriceClient interface. A ticker is
// resolved as a digital currency first and as a stock symbol when the
// crypto endpoint knows nothing about it.
type Client struct {
	baseURL    string
	apiKey     string
	cachePath  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCachePath enables the on-disk memo under the given directory
func WithCachePath(path string) ClientOption {
	return func(c *Client) {
		c.cachePath = path
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Alpha Vantage API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// HistoricalDaily returns the full daily close history for ticker. Daily
// history only moves once per day, so a memo retrieved earlier the same
// calendar day is returned without touching the network.
func (c *Client) HistoricalDaily(ctx context.Context, ticker string) (*models.PriceSeries, error) {
	if c.apiKey == "" {
		return nil, models.ErrMissingAPIKey
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, models.ErrInvalidTicker
	}

	if series := c.readMemo(ticker); series != nil {
		c.logger.Debug().Str("ticker", ticker).Msg("Historical series served from memo")
		return series, nil
	}

	series, err := c.fetchCrypto(ctx, ticker)
	if errors.Is(err, models.ErrInvalidTicker) {
		series, err = c.fetchStock(ctx, ticker)
	}
	if err != nil {
		return nil, err
	}

	series.Sort()
	c.writeMemo(ticker, series)
	return series, nil
}

func (c *Client) fetchCrypto(ctx context.Context, ticker string) (*models.PriceSeries, error) {
	params := url.Values{}
	params.Set("function", "DIGITAL_CURRENCY_DAILY")
	params.Set("symbol", ticker)
	params.Set("market", "USD")

	payload, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload[cryptoSeriesKey]
	if !ok {
		return nil, models.ErrInvalidTicker
	}
	return c.parseSeries(ticker, models.SeriesKindCrypto, raw, []string{"4a. close (USD)", "4. close"})
}

func (c *Client) fetchStock(ctx context.Context, ticker string) (*models.PriceSeries, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	params.Set("symbol", ticker)
	params.Set("outputsize", "full")

	payload, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload[stockSeriesKey]
	if !ok {
		return nil, models.ErrInvalidTicker
	}
	return c.parseSeries(ticker, models.SeriesKindStock, raw, []string{"4. close"})
}

// query performs a rate-limited GET and returns the decoded top-level
// object so callers can probe for their series key.
func (c *Client) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("function", params.Get("function")).Str("symbol", params.Get("symbol")).Msg("Alpha Vantage API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(models.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   params.Get("function"),
		}
		// Server-side failures are a provider outage, not a caller fault.
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, errors.Join(models.ErrConnection, apiErr)
		}
		return nil, apiErr
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", models.ErrConnection)
	}
	return payload, nil
}

func (c *Client) parseSeries(ticker string, kind models.SeriesKind, raw json.RawMessage, closeFields []string) (*models.PriceSeries, error) {
	var days map[string]map[string]string
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("failed to decode time series: %w", models.ErrConnection)
	}

	series := &models.PriceSeries{
		Ticker:      ticker,
		Kind:        kind,
		Closes:      make([]models.DailyClose, 0, len(days)),
		RetrievedAt: time.Now().UTC(),
	}

	for dateStr, fields := range days {
		date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			continue
		}
		for _, field := range closeFields {
			value, ok := fields[field]
			if !ok {
				continue
			}
			close, err := strconv.ParseFloat(value, 64)
			if err != nil {
				break
			}
			series.Closes = append(series.Closes, models.DailyClose{Date: date, Close: close})
			break
		}
	}

	if len(series.Closes) == 0 {
		return nil, models.ErrInvalidTicker
	}
	return series, nil
}

func (c *Client) memoFile(ticker string) string {
	return filepath.Join(c.cachePath, strings.ToLower(ticker)+".json")
}

func (c *Client) readMemo(ticker string) *models.PriceSeries {
	if c.cachePath == "" {
		return nil
	}
	data, err := os.ReadFile(c.memoFile(ticker))
	if err != nil {
		return nil
	}
	var series models.PriceSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil
	}
	if !common.SameCalendarDay(series.RetrievedAt, time.Now().UTC()) {
		return nil
	}
	return &series
}

func (c *Client) writeMemo(ticker string, series *models.PriceSeries) {
	if c.cachePath == "" {
		return
	}
	if err := os.MkdirAll(c.cachePath, 0o755); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create historical memo directory")
		return
	}

	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return
	}

	target := c.memoFile(ticker)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to write historical memo")
		return
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to replace historical memo")
	}
}

// Compile-time check
var _ interfaces.HistoricalPriceClient = (*Client)(nil)
