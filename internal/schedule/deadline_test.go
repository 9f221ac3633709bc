package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnforcerAt(t *testing.T, clock string, now time.Time) *DeadlineEnforcer {
	t.Helper()
	d, err := NewDeadlineEnforcer(clock, time.UTC)
	require.NoError(t, err)
	d.now = func() time.Time { return now }
	return d
}

func TestDeadlineCrossesMidnight(t *testing.T) {
	// Cycle starts at 23:50; the 06:00 deadline is tomorrow morning.
	start := time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)
	d := newEnforcerAt(t, "06:00", start)

	deadline := d.MarkReviewStarted()
	assert.Equal(t, time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC), deadline)
	assert.False(t, d.IsPastDeadline())
	assert.Equal(t, 6*time.Hour+10*time.Minute, d.TimeRemaining())
}

func TestDeadlineSameDay(t *testing.T) {
	// Cycle starts at 02:00; the 06:00 deadline is this morning.
	start := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	d := newEnforcerAt(t, "06:00", start)

	deadline := d.MarkReviewStarted()
	assert.Equal(t, time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), deadline)
}

func TestDeadlineFixedAtCycleStart(t *testing.T) {
	// Once marked, crossing the wall-clock time flips IsPastDeadline even
	// though the same wall-clock time exists again tomorrow.
	start := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	d := newEnforcerAt(t, "06:00", start)
	d.MarkReviewStarted()

	d.now = func() time.Time { return time.Date(2026, 3, 10, 6, 0, 1, 0, time.UTC) }
	assert.True(t, d.IsPastDeadline())
	assert.Equal(t, time.Duration(0), d.TimeRemaining())
}

func TestDeadlineBeforeAnyCycle(t *testing.T) {
	d := newEnforcerAt(t, "06:00", time.Now())
	assert.False(t, d.IsPastDeadline())
	assert.Equal(t, time.Duration(0), d.TimeRemaining())
}

func TestNewDeadlineEnforcerRejectsBadClock(t *testing.T) {
	_, err := NewDeadlineEnforcer("6am", time.UTC)
	assert.Error(t, err)
	_, err = NewDeadlineEnforcer("25:00", time.UTC)
	assert.Error(t, err)
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		nextOccurrence(now, 14, 30))
	assert.Equal(t,
		time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC),
		nextOccurrence(now, 2, 0))
	// Exactly now rolls to tomorrow.
	assert.Equal(t,
		time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
		nextOccurrence(now, 12, 0))
}

func TestHeartbeatRoundTrip(t *testing.T) {
	path := t.TempDir() + "/state/heartbeat"
	require.NoError(t, WriteHeartbeat(path))

	age, err := CheckHeartbeat(path)
	require.NoError(t, err)
	assert.Less(t, age, time.Minute)
}

func TestCheckHeartbeatMissing(t *testing.T) {
	_, err := CheckHeartbeat(t.TempDir() + "/nope")
	assert.Error(t, err)
}
