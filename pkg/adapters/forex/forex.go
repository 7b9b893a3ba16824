/*
Package forex implements ports.QuoteProvider against the Frankfurter API
(https://www.frankfurter.app), a free service publishing ECB reference rates.

Rates are cached per currency pair for a short TTL and concurrent lookups of
the same pair share a single upstream request.
*/
package forex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public Frankfurter endpoint.
const DefaultBaseURL = "https://api.frankfurter.app"

// DefaultCacheTTL bounds how stale a cached rate may be. Reference rates change once a day.
const DefaultCacheTTL = 10 * time.Minute

type cachedRate struct {
	rate    float64
	fetched time.Time
}

// Client is a Frankfurter QuoteProvider.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cachedRate
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at another Frankfurter deployment.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the HTTP client (and so the timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithCacheTTL sets the rate cache TTL. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Frankfurter client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		ttl:     DefaultCacheTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
		cache:   make(map[string]cachedRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type latestResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// Quote converts amount from base to target.
func (c *Client) Quote(ctx context.Context, base, target string, amount float64) (domain.Quote, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	target = strings.ToUpper(strings.TrimSpace(target))
	if amount <= 0 {
		return domain.Quote{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount)
	}
	if len(base) != 3 || len(target) != 3 {
		return domain.Quote{}, fmt.Errorf("%w: %s/%s", domain.ErrUnsupportedCurrency, base, target)
	}

	rate := 1.0
	if base != target {
		var err error
		rate, err = c.rate(ctx, base, target)
		if err != nil {
			return domain.Quote{}, err
		}
	}

	return domain.Quote{
		Base:            base,
		Target:          target,
		Amount:          amount,
		Rate:            rate,
		ConvertedAmount: domain.Round2(rate * amount),
	}, nil
}

func (c *Client) rate(ctx context.Context, base, target string) (float64, error) {
	key := base + "/" + target

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok && c.ttl > 0 && c.now().Sub(cached.fetched) < c.ttl {
		return cached.rate, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		rate, err := c.fetch(ctx, base, target)
		if err != nil {
			return 0.0, err
		}
		c.mu.Lock()
		c.cache[key] = cachedRate{rate: rate, fetched: c.now()}
		c.mu.Unlock()
		return rate, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (c *Client) fetch(ctx context.Context, base, target string) (float64, error) {
	q := url.Values{}
	q.Set("from", base)
	q.Set("to", target)
	endpoint := c.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("quote fetched",
		"pair", base+"/"+target,
		"status", resp.StatusCode,
		"duration", c.now().Sub(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		return 0, fmt.Errorf("%w: %s/%s", domain.ErrUnsupportedCurrency, base, target)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("quote api returned %s", resp.Status)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode quote response: %w", err)
	}
	rate, ok := body.Rates[target]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %s/%s", domain.ErrUnsupportedCurrency, base, target)
	}
	return rate, nil
}

// IsUnsupported reports whether err means the pair is unknown.
func IsUnsupported(err error) bool {
	return errors.Is(err, domain.ErrUnsupportedCurrency)
}
