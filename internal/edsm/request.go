package edsm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skelsey/galmarket/internal/metrics"
)

// UpstreamError represents a failed response from the data provider.
// It carries the last request URL and body for diagnostics.
type UpstreamError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("edsm upstream error %d: %s (%s)", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *UpstreamError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// rateInfo holds the provider's rate-limit response metadata.
type rateInfo struct {
	limit      int // X-Rate-Limit-Limit
	remaining  int // X-Rate-Limit-Remaining
	reset      int // X-Rate-Limit-Reset (seconds)
	retryAfter int // Retry-After (seconds), 429 responses only
}

// parseRateInfo reads throttle headers, falling back to the provider's
// documented ceiling when absent.
func parseRateInfo(h http.Header) rateInfo {
	return rateInfo{
		limit:      headerInt(h, "X-Rate-Limit-Limit", 720),
		remaining:  headerInt(h, "X-Rate-Limit-Remaining", 720),
		reset:      headerInt(h, "X-Rate-Limit-Reset", 0),
		retryAfter: headerInt(h, "Retry-After", 0),
	}
}

func headerInt(h http.Header, name string, fallback int) int {
	v := h.Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// interval is the amortized time budget per request in the current window.
func (r rateInfo) interval() time.Duration {
	if r.limit <= 0 {
		return 0
	}
	return time.Duration(float64(r.reset) / float64(r.limit) * float64(time.Second))
}

func (r rateInfo) retryAfterDuration() time.Duration {
	return time.Duration(r.retryAfter) * time.Second
}

// doRequest performs a single GET and returns the body plus rate metadata.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, rateInfo, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, rateInfo{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, rateInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	ri := parseRateInfo(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ri, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, ri, &UpstreamError{
			StatusCode: resp.StatusCode,
			URL:        fullURL,
			Body:       body,
		}
	}

	return body, ri, nil
}

// doWithRetry performs a request under the throttle policy: pacing sleeps
// after success, Retry-After plus preroll intervals after a 429, jittered
// exponential backoff on other transient failures (5xx responses and
// transport errors such as timeouts), all within the bounded attempt budget.
func (c *Client) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		body, ri, err := c.doRequest(ctx, path, query)
		if err == nil {
			metrics.FetchRequests.WithLabelValues("ok").Inc()
			// Stay under the amortized budget even without a token bucket.
			if pace := time.Duration(float64(ri.interval()) * c.pacing); pace > 0 {
				if err := sleepCtx(ctx, pace); err != nil {
					return nil, err
				}
			}
			return body, nil
		}

		lastErr = err

		var upstream *UpstreamError
		if errors.As(err, &upstream) && !upstream.IsRetryable() {
			metrics.FetchRequests.WithLabelValues("failed").Inc()
			return nil, err
		}
		// Transport failures (per-request timeouts, connection resets) are
		// transient unless the caller's own context is finished.
		if upstream == nil && ctx.Err() != nil {
			metrics.FetchRequests.WithLabelValues("failed").Inc()
			return nil, err
		}

		if attempt == c.maxRetries {
			break
		}

		var wait time.Duration
		if upstream != nil && upstream.StatusCode == http.StatusTooManyRequests {
			// Sleep long enough to bank a few prerolled requests.
			wait = ri.retryAfterDuration() + time.Duration(c.preroll)*ri.interval()
			metrics.FetchRequests.WithLabelValues("rate_limited").Inc()
			c.logger.Warn("rate limited",
				"path", path,
				"retry_after", ri.retryAfterDuration(),
				"wait", wait,
			)
		} else {
			// Jitter: backoff * (0.5 to 1.5)
			wait = backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			backoff *= 2
			metrics.FetchRequests.WithLabelValues("retryable").Inc()
			c.logger.Debug("retrying request",
				"attempt", attempt+1,
				"backoff", wait,
				"path", path,
			)
		}

		metrics.FetchRetrySleep.Add(wait.Seconds())
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}

	metrics.FetchRequests.WithLabelValues("failed").Inc()
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
