// Package providers fetches raw schedule, field, odds, rating and weather
// records from upstream feeds. Every failure is reported as a *Failure so
// callers can drop the source and carry on with the rest.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 15 * time.Second
	userAgent        = "golf-picks/1.0"
	maxPreviewLength = 500
)

// Options configures a provider client. Zero values pick sane defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second, <= 0 disables throttling
	HTTPClient *http.Client
}

// httpClient is shared by every provider: one throttled GET with a hard
// per-call deadline and no retries.
type httpClient struct {
	source  string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logrus.Logger
}

func newHTTPClient(source string, opts Options, logger *logrus.Logger) *httpClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	return &httpClient{
		source:  source,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
		logger:  orStandardLogger(logger),
	}
}

func orStandardLogger(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// getJSON fetches url and decodes a 2xx body into target.
func (c *httpClient) getJSON(ctx context.Context, url string, target interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return c.fail(FailureTimeout, 0, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.fail(FailureHTTP, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return c.fail(FailureTimeout, 0, err)
		}
		return c.fail(FailureHTTP, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return c.fail(FailureTimeout, resp.StatusCode, err)
		}
		return c.fail(FailureHTTP, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.WithFields(logrus.Fields{
		"source":      c.source,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"bytes":       len(body),
	}).Debug("Provider response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(FailureHTTP, resp.StatusCode, errors.New(statusMessage(resp.StatusCode)))
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > maxPreviewLength {
			preview = preview[:maxPreviewLength] + "..."
		}
		c.logger.WithFields(logrus.Fields{
			"source":           c.source,
			"response_preview": preview,
		}).Debug("Undecodable provider payload")
		return c.fail(FailureMalformed, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *httpClient) fail(kind FailureKind, status int, err error) *Failure {
	f := &Failure{Source: c.source, Kind: kind, Status: status, Err: err}
	c.logger.WithFields(logrus.Fields{
		"source": c.source,
		"kind":   kind.String(),
		"status": status,
	}).WithError(err).Warn("Provider fetch failed")
	return f
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "invalid API key"
	case http.StatusForbidden:
		return "access forbidden - check subscription"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	default:
		return fmt.Sprintf("API request failed with status %d", status)
	}
}
