package github

import (
	"context"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/complyqa/internal/logger"
)

const (
	// DefaultRPS paces requests to about 4300 an hour, under the 5000/hour
	// authenticated quota.
	DefaultRPS = 1.2

	// quotaReserve is the number of requests left when fetches pause until
	// the quota resets.
	quotaReserve = 100
)

// throttle paces requests and pauses when the reported quota runs low.
type throttle struct {
	pace *rate.Limiter

	mu    sync.Mutex
	quota gh.Rate
}

// newThrottle creates a throttle. A non-positive rps uses DefaultRPS.
func newThrottle(rps float64) *throttle {
	if rps <= 0 {
		rps = DefaultRPS
	}
	return &throttle{
		pace:  rate.NewLimiter(rate.Limit(rps), 1),
		quota: gh.Rate{Limit: 5000, Remaining: 5000},
	}
}

// wait blocks until the next request may be sent.
func (t *throttle) wait(ctx context.Context) error {
	if err := t.pace.Wait(ctx); err != nil {
		return err
	}

	q := t.snapshot()
	if q.Remaining >= quotaReserve || q.Reset.IsZero() || !time.Now().Before(q.Reset.Time) {
		return nil
	}

	pause := time.Until(q.Reset.Time)
	logger.Warn("GitHub quota low (%d of %d left), pausing %s", q.Remaining, q.Limit, pause.Round(time.Second))
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// observe records the quota GitHub reported on a response.
// Responses without rate headers are ignored.
func (t *throttle) observe(r gh.Rate) {
	if r.Limit == 0 {
		return
	}
	t.mu.Lock()
	t.quota = r
	t.mu.Unlock()
}

func (t *throttle) snapshot() gh.Rate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quota
}
