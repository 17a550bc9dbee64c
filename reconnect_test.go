package streamplay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReconnectController_RecordFailureCountsUpToMax(t *testing.T) {
	c := newReconnectController()
	c.setMaxAttempts(3)

	n, max, exhausted := c.recordFailure()
	require.Equal(t, 1, n)
	require.Equal(t, 3, max)
	require.False(t, exhausted)

	c.recordFailure()
	n, _, exhausted = c.recordFailure()
	require.Equal(t, 3, n)
	require.False(t, exhausted)

	n, _, exhausted = c.recordFailure()
	require.Equal(t, 4, n)
	require.True(t, exhausted)
}

func TestReconnectController_ResetClearsAttemptCount(t *testing.T) {
	c := newReconnectController()
	c.setMaxAttempts(2)
	c.recordFailure()
	c.reset()

	n, _, exhausted := c.recordFailure()
	require.Equal(t, 1, n)
	require.False(t, exhausted)
}

func TestReconnectController_NegativeSettersClampToZero(t *testing.T) {
	c := newReconnectController()
	c.setMaxAttempts(-5)
	c.setDelayMs(-100)

	_, max, exhausted := c.recordFailure()
	require.Equal(t, 0, max)
	require.True(t, exhausted)
	require.Equal(t, time.Duration(0), c.delay())
}

func TestReconnectController_SleepReturnsEarlyOnStop(t *testing.T) {
	c := newReconnectController()
	c.setDelayMs(5000)

	running := runningFlag()
	stopRequested := runningFlag()
	stopRequested.Store(false)

	done := make(chan struct{})
	go func() {
		c.sleep(running, stopRequested)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	stopRequested.Store(true)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleep did not observe stopRequested within a reasonable time")
	}
}
