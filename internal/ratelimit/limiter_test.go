package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuota struct {
	q   Quota
	err error
}

func (s stubQuota) Quota(context.Context) (Quota, error) { return s.q, s.err }

func TestThrottleEnforcesMinDelay(t *testing.T) {
	l := New(100*time.Millisecond, nil, nil)
	ctx := context.Background()

	require.NoError(t, l.Throttle(ctx))
	start := time.Now()
	require.NoError(t, l.Throttle(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestThrottleFirstCallDoesNotWait(t *testing.T) {
	l := New(5*time.Second, nil, nil)
	start := time.Now()
	require.NoError(t, l.Throttle(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestThrottleReturnsExhaustedError(t *testing.T) {
	l := New(0, stubQuota{q: Quota{Remaining: 0, Reset: time.Now().Add(time.Minute)}}, nil)

	err := l.Throttle(context.Background())
	require.Error(t, err)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Greater(t, exhausted.WaitSeconds, 60.0)
}

func TestThrottleSwallowsQuotaErrors(t *testing.T) {
	l := New(0, stubQuota{err: errors.New("gh unavailable")}, nil)
	assert.NoError(t, l.Throttle(context.Background()))
}

func TestThrottleCancelledWhileWaiting(t *testing.T) {
	l := New(5*time.Second, nil, nil)
	require.NoError(t, l.Throttle(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Throttle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForReset(t *testing.T) {
	l := New(0, nil, nil)
	assert.True(t, l.WaitForReset(context.Background(), 10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, l.WaitForReset(ctx, time.Minute))
}
