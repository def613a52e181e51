package solaredge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	gobreaker "github.com/sony/gobreaker/v2"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/metrics"
)

const (
	breakerName     = "solaredge-api"
	maxErrorBodyLen = 500
)

// Options configures a Client.
type Options struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	HTTPProxy         string
	MaxConcurrent     int
	DailyLimit        int
	RequestsPerSecond float64
	Retry             RetryPolicy
	SiteCacheTTL      time.Duration
	Metrics           *metrics.Collector
}

// OptionsFromConfig maps the api section of the configuration.
func OptionsFromConfig(cfg *config.APIConfig, m *metrics.Collector) Options {
	return Options{
		APIKey:            cfg.Key,
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.Timeout,
		HTTPProxy:         cfg.HTTPProxy,
		MaxConcurrent:     cfg.MaxConcurrent,
		DailyLimit:        cfg.DailyLimit,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Retry: RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryDelay,
			MaxDelay:   cfg.MaxRetryDelay,
		},
		SiteCacheTTL: cfg.SiteCacheTTL,
		Metrics:      m,
	}
}

// Client is the single point of contact with the monitoring API.
// Every request goes through the rate limiter, the retry policy and a circuit breaker.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *RateLimiter
	retry   RetryPolicy
	breaker *gobreaker.CircuitBreaker[[]byte]
	cache   *cache.Cache
	metrics *metrics.Collector
}

// NewClient creates a new API client.
func NewClient(opts Options) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if opts.HTTPProxy != "" {
		proxyURL, err := url.Parse(opts.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. API client will not use a proxy.", opts.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.SiteCacheTTL <= 0 {
		opts.SiteCacheTTL = 5 * time.Minute
	}
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = DefaultDailyLimit
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		limiter: NewRateLimiter(opts.MaxConcurrent, opts.DailyLimit, opts.RequestsPerSecond),
		retry:   opts.Retry,
		cache:   cache.New(opts.SiteCacheTTL, 2*opts.SiteCacheTTL),
		metrics: opts.Metrics,
	}
	c.breaker = newBreaker(opts.Metrics)
	c.metrics.SetBreakerState(breakerName, 0)
	c.metrics.SetRateLimitRemaining(c.limiter.RemainingRequests())
	return c
}

// Limiter exposes the rate limiter for quota reporting.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

func newBreaker(m *metrics.Collector) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Client errors and quota rejections say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
			m.SetBreakerState(name, breakerStateValue(to))
		},
	})
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// get issues a GET request for path and decodes the JSON body into out.
// endpoint is a low-cardinality name used for metrics and logs.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		var body []byte
		err := c.retry.Do(ctx, func() error {
			b, err := c.do(ctx, endpoint, path, params)
			body = b
			return err
		}, func(attempt int, err error, wait time.Duration) {
			c.metrics.RecordRetry(endpoint)
			log.Printf("Retrying %s after attempt %d/%d in %s: %v", endpoint, attempt, c.retry.MaxRetries+1, wait, err)
		})
		return body, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &APIError{Message: fmt.Sprintf("%s: circuit breaker rejected request", endpoint), Err: err}
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// do performs one rate-limited HTTP round trip and classifies the response.
func (c *Client) do(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", c.apiKey)
	target := c.baseURL + path + "?" + query.Encode()

	var body []byte
	err := c.limiter.Do(ctx, func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.metrics.RecordAPIRequest(endpoint, "error", time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &APIError{Message: fmt.Sprintf("%s request failed: %s", endpoint, redact(err.Error(), c.apiKey)), Err: err}
		}
		defer resp.Body.Close()
		c.metrics.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{Message: readBodyForError(resp.Body)}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: readBodyForError(resp.Body)}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("failed to read %s response body", endpoint), Err: err}
		}
		return nil
	})
	c.metrics.SetRateLimitRemaining(c.limiter.RemainingRequests())
	return body, err
}

func readBodyForError(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBodyLen))
	if err != nil {
		return "failed to read error body"
	}
	return strings.TrimSpace(string(b))
}

// redact keeps the api key out of transport error messages, which embed the request URL.
func redact(msg, key string) string {
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, key, "***")
}
