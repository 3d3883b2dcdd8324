// Package cryptocompare provides a client for the CryptoCompare price API
package cryptocompare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
	"github.com/mfreitas/navio/internal/models"
)

const (
	DefaultBaseURL   = "https://min-api.cryptocompare.com/data"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the SpotPriceClient interface against the
// CryptoCompare pricemultifull endpoint.
type Client struct {
	baseURL    string
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

// NewClient creates a new CryptoCompare client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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
	return fmt.Sprintf("CryptoCompare API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// rawQuote mirrors one fsym/tsym cell of the pricemultifull RAW block.
type rawQuote struct {
	Price           float64 `json:"PRICE"`
	ChangePct24Hour float64 `json:"CHANGEPCT24HOUR"`
	Change24Hour    float64 `json:"CHANGE24HOUR"`
	LastUpdate      int64   `json:"LASTUPDATE"`
}

type multiFullResponse struct {
	Raw      map[string]map[string]rawQuote `json:"RAW"`
	Response string                         `json:"Response"`
	Message  string                         `json:"Message"`
}

// SpotPrices fetches the current quote for every ticker in a single
// batched request, priced in fx and in BTC. Tickers absent from the
// response are simply missing from the result map.
func (c *Client) SpotPrices(ctx context.Context, tickers []string, fx string) (models.SpotQuotes, error) {
	if len(tickers) == 0 {
		return models.SpotQuotes{}, nil
	}
	if fx == "" {
		fx = "USD"
	}

	params := url.Values{}
	params.Set("fsyms", strings.ToUpper(strings.Join(tickers, ",")))
	params.Set("tsyms", fx+",BTC")

	var payload multiFullResponse
	if err := c.get(ctx, "/pricemultifull", params, &payload); err != nil {
		return nil, err
	}

	// CryptoCompare reports request-level failures with a 200 status and
	// an error envelope instead of the RAW block.
	if payload.Raw == nil {
		if payload.Message != "" {
			c.logger.Warn().Str("message", payload.Message).Msg("CryptoCompare rejected quote request")
		}
		return nil, fmt.Errorf("pricemultifull returned no quotes: %w", models.ErrConnection)
	}

	quotes := make(models.SpotQuotes, len(payload.Raw))
	now := time.Now().UTC()
	for ticker, byFiat := range payload.Raw {
		cell, ok := byFiat[fx]
		if !ok {
			continue
		}
		q := models.SpotQuote{
			Ticker:       ticker,
			USDPrice:     cell.Price,
			ChangePct24h: cell.ChangePct24Hour,
			LastUpdate:   now,
		}
		if btcCell, ok := byFiat["BTC"]; ok {
			q.BTCPrice = btcCell.Price
		}
		if cell.LastUpdate > 0 {
			q.LastUpdate = time.Unix(cell.LastUpdate, 0).UTC()
		}
		quotes[ticker] = q
	}

	c.logger.Debug().Int("requested", len(tickers)).Int("quoted", len(quotes)).Msg("Spot quotes retrieved")
	return quotes, nil
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CryptoCompare API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(models.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
		// Server-side failures are a provider outage, not a caller fault.
		if resp.StatusCode >= http.StatusInternalServerError {
			return errors.Join(models.ErrConnection, apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", models.ErrConnection)
	}

	return nil
}

// Compile-time check
var _ interfaces.SpotPriceClient = (*Client)(nil)
