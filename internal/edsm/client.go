package edsm

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/skelsey/galmarket/internal/model"
)

// DefaultBaseURL is the public EDSM endpoint.
const DefaultBaseURL = "https://www.edsm.net"

// Client provides access to the EDSM REST API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
	preroll      int     // extra request intervals slept after a 429
	pacing       float64 // fraction of the request interval slept after success

	sphereCache *expirable.LRU[string, []model.System]
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new EDSM API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:   baseURL,
		userAgent: "galmarket/" + "dev",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
		preroll:      50,
		pacing:       0.8,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sphereCache == nil {
		c.sphereCache = expirable.NewLRU[string, []model.System](256, nil, 10*time.Minute)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithThrottle tunes the rate-limit behavior: preroll is the number of
// extra request intervals slept after a 429, pacing the fraction of the
// interval slept after every success.
func WithThrottle(preroll int, pacing float64) ClientOption {
	return func(c *Client) {
		c.preroll = preroll
		c.pacing = pacing
	}
}

// WithSphereCache sizes the sphere-query memoization cache.
func WithSphereCache(size int, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.sphereCache = expirable.NewLRU[string, []model.System](size, nil, ttl)
	}
}
