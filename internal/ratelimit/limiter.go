// Package ratelimit throttles GitHub API usage: a minimum delay between
// calls plus a quota check that stops work before the API starts returning
// errors.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joescharf/nightfix/internal/output"
)

// LowQuotaThreshold is the remaining-call count below which callers are
// warned that they are about to run dry.
const LowQuotaThreshold = 10

// resetSlack pads the reported reset time, since the API's clock and ours
// rarely agree to the second.
const resetSlack = 5 * time.Second

// ExhaustedError signals that the API quota is spent and work must pause
// until the reset.
type ExhaustedError struct {
	WaitSeconds float64
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("API rate limit exhausted, retry in %.0fs", e.WaitSeconds)
}

// Quota is a point-in-time snapshot of remaining API budget.
type Quota struct {
	Remaining int
	Reset     time.Time
}

// QuotaChecker reports the current API quota. Implementations that cannot
// determine the quota should return an error, which the limiter treats as
// "unknown, proceed".
type QuotaChecker interface {
	Quota(ctx context.Context) (Quota, error)
}

// Limiter enforces a minimum delay between calls and refuses to proceed on
// an exhausted quota. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	lastCall time.Time

	minDelay time.Duration
	quota    QuotaChecker
	ui       *output.UI
}

// New creates a Limiter. quota may be nil to disable quota checks; ui may be
// nil.
func New(minDelay time.Duration, quota QuotaChecker, ui *output.UI) *Limiter {
	if ui == nil {
		ui = output.New()
	}
	return &Limiter{minDelay: minDelay, quota: quota, ui: ui}
}

// Throttle blocks until at least the minimum delay has passed since the
// previous call, then consults the quota. It returns *ExhaustedError when
// the quota is spent and ctx.Err() if the context is cancelled while
// waiting. Quota lookup failures are swallowed; a limiter that cannot see
// the quota should not halt the run.
func (l *Limiter) Throttle(ctx context.Context) error {
	l.mu.Lock()
	wait := l.minDelay - time.Since(l.lastCall)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			l.mu.Unlock()
			return ctx.Err()
		}
	}
	l.lastCall = time.Now()
	l.mu.Unlock()

	if l.quota == nil {
		return nil
	}
	q, err := l.quota.Quota(ctx)
	if err != nil {
		l.ui.VerboseLog("quota check failed: %v", err)
		return nil
	}
	waitSecs := time.Until(q.Reset).Seconds() + resetSlack.Seconds()
	if q.Remaining <= 0 {
		return &ExhaustedError{WaitSeconds: waitSecs}
	}
	if q.Remaining < LowQuotaThreshold {
		l.ui.Warning("API quota low: %d calls remaining, resets in %.0fs", q.Remaining, waitSecs)
	}
	return nil
}

// WaitForReset sleeps for d or until the context is cancelled, returning
// true if the full wait elapsed.
func (l *Limiter) WaitForReset(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
