package streamplay

import (
	"sync/atomic"
	"time"
)

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectDelayMs     = 2000
)

// reconnectController embeds the attempt-count/delay state machine that
// wraps the demux read loop. Both knobs are atomic so the Player's setters
// can be called from any thread while a session is live; the new value
// takes effect on the next retry decision.
//
// The attempt/backoff bookkeeping mirrors the restart loop of a typical
// process-supervisor Manager (attempt counting, a reset on success,
// with the demuxer logging each retry/exhaustion), adapted from
// process-restart semantics to a read-loop's open/reconnect semantics.
type reconnectController struct {
	maxAttempts atomic.Int64
	delayMs     atomic.Int64
	attempt     atomic.Int64
}

func newReconnectController() *reconnectController {
	c := &reconnectController{}
	c.maxAttempts.Store(defaultMaxReconnectAttempts)
	c.delayMs.Store(defaultReconnectDelayMs)
	return c
}

// setMaxAttempts clamps negatives to 0 and stores atomically.
func (c *reconnectController) setMaxAttempts(n int) {
	if n < 0 {
		n = 0
	}
	c.maxAttempts.Store(int64(n))
}

// setDelayMs clamps negatives to 0 and stores atomically.
func (c *reconnectController) setDelayMs(ms int) {
	if ms < 0 {
		ms = 0
	}
	c.delayMs.Store(int64(ms))
}

// reset is called after a successful open.
func (c *reconnectController) reset() {
	c.attempt.Store(0)
}

// recordFailure increments the attempt counter and reports whether the
// retry budget is exhausted, along with the attempt number just recorded
// and the configured max. max_attempts retries are allowed (attempts 1
// through max_attempts all retry); the attempt that follows the last
// allowed retry is the one that reports exhausted.
func (c *reconnectController) recordFailure() (attemptNumber int, max int, exhausted bool) {
	n := c.attempt.Add(1)
	m := c.maxAttempts.Load()
	return int(n), int(m), n > m
}

// delay returns the currently configured inter-attempt delay.
func (c *reconnectController) delay() time.Duration {
	return time.Duration(c.delayMs.Load()) * time.Millisecond
}

// sleep waits for the controller's delay in small chunks so a stop request
// (running flipping false) is observed promptly. Returns early if running
// goes false or stopRequested goes true before the full delay elapses.
func (c *reconnectController) sleep(running, stopRequested *atomic.Bool) {
	const chunk = 20 * time.Millisecond
	remaining := c.delay()
	for remaining > 0 {
		if !running.Load() || stopRequested.Load() {
			return
		}
		step := chunk
		if step > remaining {
			step = remaining
		}
		time.Sleep(step)
		remaining -= step
	}
}
