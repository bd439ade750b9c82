// Package embedding holds the HTTP plumbing shared by the embedding adapters.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// Retry defaults.
const (
	DefaultMaxRetries = 3
	baseDelay         = 200 * time.Millisecond
	maxDelay          = 5 * time.Second
)

// Client sends embedding requests with pacing and retries.
type Client struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	Provider   string

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client. A requestsPerSecond of zero means unlimited.
func NewClient(provider string, timeout time.Duration, requestsPerSecond float64, maxRetries int) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(limit, 1),
		MaxRetries: maxRetries,
		Provider:   provider,
		sleep:      sleepCtx,
	}
}

// Do sends the request built by newReq and returns the body of the first
// 200 response. Transport failures, 429 and 5xx responses are retried with
// capped exponential backoff; other statuses fail immediately.
func (c *Client) Do(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		delay := RetryDelay(attempt)
		body, status, retryAfter, err := c.send(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: send request: %w", domain.ErrEmbeddingUnavailable, err)
		case status == http.StatusOK:
			return body, nil
		case retryable(status):
			lastErr = fmt.Errorf("%w: %s error (status %d): %s",
				domain.ErrEmbeddingUnavailable, c.Provider, status, strings.TrimSpace(string(body)))
			if retryAfter > 0 {
				delay = retryAfter
			}
		default:
			return nil, fmt.Errorf("%s error (status %d): %s", c.Provider, status, strings.TrimSpace(string(body)))
		}

		if attempt == c.MaxRetries {
			break
		}
		logger.Debug("%s embedding attempt %d failed, retrying in %s: %v", c.Provider, attempt+1, delay, lastErr)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) send(req *http.Request) ([]byte, int, time.Duration, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read response: %w", err)
	}

	var retryAfter time.Duration
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			retryAfter = min(time.Duration(secs)*time.Second, maxDelay)
		}
	}
	return body, resp.StatusCode, retryAfter, nil
}

// RetryDelay returns the backoff before the retry following attempt.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		return maxDelay
	}
	d := baseDelay << attempt
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsUnavailable reports whether err means the provider could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable)
}
