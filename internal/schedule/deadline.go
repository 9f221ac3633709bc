// Package schedule owns the clock: the per-cycle deadline, the daily job
// timers, and the heartbeat file that proves the agent is alive.
package schedule

import (
	"fmt"
	"sync"
	"time"
)

// DeadlineEnforcer turns a wall-clock time of day ("06:00") into a concrete
// deadline for each review cycle. The deadline instant is computed once when
// the cycle starts, so a cycle that begins at 23:50 gets tomorrow's 06:00
// and a cycle that begins at 05:00 gets today's.
type DeadlineEnforcer struct {
	hour, minute int
	loc          *time.Location

	mu       sync.Mutex
	deadline time.Time

	now func() time.Time // injectable for tests
}

// NewDeadlineEnforcer parses an HH:MM wall-clock deadline in loc.
func NewDeadlineEnforcer(clock string, loc *time.Location) (*DeadlineEnforcer, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &DeadlineEnforcer{
		hour:   hour,
		minute: minute,
		loc:    loc,
		now:    time.Now,
	}, nil
}

// MarkReviewStarted fixes the deadline for the cycle beginning now: the next
// occurrence of the configured wall-clock time.
func (d *DeadlineEnforcer) MarkReviewStarted() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	anchor := d.now().In(d.loc)
	deadline := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !deadline.After(anchor) {
		deadline = deadline.AddDate(0, 0, 1)
	}
	d.deadline = deadline
	return deadline
}

// IsPastDeadline reports whether the current cycle's deadline has passed. It
// is false before MarkReviewStarted is called.
func (d *DeadlineEnforcer) IsPastDeadline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deadline.IsZero() {
		return false
	}
	return !d.now().Before(d.deadline)
}

// TimeRemaining returns the time left before the deadline, zero at or past
// it, and zero before any cycle has started.
func (d *DeadlineEnforcer) TimeRemaining() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deadline.IsZero() {
		return 0
	}
	remaining := d.deadline.Sub(d.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// parseClock parses "HH:MM" in 24-hour form.
func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
