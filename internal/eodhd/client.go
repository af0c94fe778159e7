package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// 429 responses asking for a longer pause than this are returned to the caller
	maxRetryWait = 5 * time.Second
	// body bytes kept in APIError messages
	maxErrorBody = 512
)

// Client is an EODHD API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	retries    int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRetries sets how many short 429 pauses are retried before giving up.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retries:    1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON issues a GET and decodes the JSON body into T. Short Retry-After
// pauses on 429 are honoured in place; longer ones surface as RateLimitError.
func getJSON[T any](ctx context.Context, c *Client, path string, params url.Values) (T, error) {
	var zero T

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_token", c.apiKey)
	query.Set("fmt", "json")
	reqURL := c.baseURL + path + "?" + query.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limiter wait for %s: %w", path, err)
		}

		resp, err := c.do(ctx, reqURL, path)
		if err != nil {
			return zero, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			if attempt >= c.retries || wait > maxRetryWait {
				return zero, &RateLimitError{RetryAfter: wait}
			}
			if c.logger != nil {
				c.logger.Warn().Str("endpoint", path).Dur("wait", wait).Msg("EODHD rate limited, retrying")
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		result, err := decode[T](resp, path)
		resp.Body.Close()
		return result, err
	}
}

func (c *Client) do(ctx context.Context, reqURL, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", common.UserAgent())

	if c.logger != nil {
		c.logger.Debug().Str("endpoint", path).Msg("EODHD API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("EODHD request %s failed: %w", path, err)
	}
	return resp, nil
}

func decode[T any](resp *http.Response, path string) (T, error) {
	var result T
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return result, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return result, nil
}

// retryAfter reads a Retry-After seconds header, one minute when absent
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}

// GetEOD retrieves end-of-day bars for a symbol in TICKER.EXCHANGE form
// ("600519.SHG", "0700.HK", "AAPL.US"). Dates are parsed into EODData.Date.
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...QueryOption) (EODResponse, error) {
	p := &queryParams{Period: "d", Order: "a"}
	for _, opt := range opts {
		opt(p)
	}

	params := url.Values{}
	if !p.From.IsZero() {
		params.Set("from", p.From.Format("2006-01-02"))
	}
	if !p.To.IsZero() {
		params.Set("to", p.To.Format("2006-01-02"))
	}
	if p.Period != "" {
		params.Set("period", p.Period)
	}
	if p.Order != "" {
		params.Set("order", p.Order)
	}

	result, err := getJSON[EODResponse](ctx, c, "/eod/"+symbol, params)
	if err != nil {
		return nil, err
	}
	for i := range result {
		if t, err := time.Parse("2006-01-02", result[i].DateStr); err == nil {
			result[i].Date = t
		}
	}
	return result, nil
}

// GetFundamentals retrieves the fundamentals document for a symbol.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*FundamentalsResponse, error) {
	result, err := getJSON[FundamentalsResponse](ctx, c, "/fundamentals/"+symbol, nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRealTimeQuote retrieves the delayed quote for a symbol.
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*RealTimeQuote, error) {
	result, err := getJSON[RealTimeQuote](ctx, c, "/real-time/"+symbol, nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
