package streamplay

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erparts/reisen"
	"github.com/stretchr/testify/require"
)

// fakeStatusSink/fakeStatsSink record every callback so tests can assert on
// the sequence of transitions without racing the Player's internal
// goroutines.
type fakeStatusSink struct {
	mu       sync.Mutex
	statuses []Status
}

func (f *fakeStatusSink) OnStatus(status Status, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *fakeStatusSink) last() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return StatusIdle
	}
	return f.statuses[len(f.statuses)-1]
}

func (f *fakeStatusSink) seen(s Status) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (f *fakeStatusSink) count(s Status) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, st := range f.statuses {
		if st == s {
			n++
		}
	}
	return n
}

// errInputStream never succeeds: InputStream.Open always fails, so the
// demuxer's openSession returns before decoderContext.openStream — this lets
// reconnect/retry/shutdown behavior be exercised without a real decode
// backend, which needs a live codec this package can't fake cheaply.
type errInputStream struct {
	openCalls atomic.Int64
}

func (s *errInputStream) Open(interrupted *atomic.Bool) error {
	s.openCalls.Add(1)
	return errors.New("connection refused")
}
func (s *errInputStream) Streams() []StreamDescriptor          { return nil }
func (s *errInputStream) VideoFrameDuration() time.Duration    { return 0 }
func (s *errInputStream) AudioFrameDuration() time.Duration    { return 0 }
func (s *errInputStream) RoutePacket(*atomic.Bool) (StreamKind, bool, int, error) {
	return 0, false, 0, errEndOfStream
}
func (s *errInputStream) VideoDecoder() *reisen.VideoStream { return nil }
func (s *errInputStream) AudioDecoder() *reisen.AudioStream { return nil }
func (s *errInputStream) Close()                            {}

func newTestPlayer(statusSink StatusSink, newInput func(string) (InputStream, error)) *Player {
	cfg := NewConfig(
		WithReconnectMaxAttempts(2),
		WithReconnectDelayMs(10),
		WithVideoQueueCapacity(4),
		WithAudioQueueCapacity(4),
		WithStatsInterval(10*time.Millisecond),
		WithAudioPumpInterval(10*time.Millisecond),
	)
	return NewPlayer(nil, statusSink, nil, nil, cfg, newInput)
}

func TestPlayer_EmptyURLReturnsError(t *testing.T) {
	p := newTestPlayer(nil, func(string) (InputStream, error) { return nil, errors.New("unused") })
	defer p.Close()

	err := p.Start("")
	require.ErrorIs(t, err, ErrEmptyURL)
	require.False(t, p.IsRunning())
}

func TestPlayer_RetryExhaustionStopsSession(t *testing.T) {
	status := &fakeStatusSink{}
	fake := &errInputStream{}
	p := newTestPlayer(status, func(string) (InputStream, error) { return fake, nil })
	defer p.Close()

	require.NoError(t, p.Start("rtsp://example.invalid/stream"))

	require.Eventually(t, func() bool {
		return status.last() == StatusStopped
	}, 2*time.Second, 10*time.Millisecond, "player never reached StatusStopped after exhausting retries")

	require.False(t, p.IsRunning())
	require.True(t, status.seen(StatusConnecting))
	require.True(t, status.seen(StatusReconnecting))
	// max_attempts=2 must retry exactly twice (attempts 1 and 2) before the
	// terminal error on attempt 3, and "Stopped" must be emitted exactly
	// once regardless of whether exhaustion or Stop() triggered it.
	require.Equal(t, 2, status.count(StatusReconnecting))
	require.Equal(t, int64(3), fake.openCalls.Load())
	require.Equal(t, 1, status.count(StatusStopped))
}

func TestPlayer_StopIsIdempotentWhenIdle(t *testing.T) {
	p := newTestPlayer(nil, func(string) (InputStream, error) { return nil, errors.New("unused") })
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Stop()
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("concurrent Stop() calls on an idle Player deadlocked")
	}
}

func TestPlayer_StartReplacesInFlightSession(t *testing.T) {
	status := &fakeStatusSink{}
	fakeA := &errInputStream{}
	newInput := func(string) (InputStream, error) { return fakeA, nil }

	// A long reconnect delay keeps the first session parked in its backoff
	// sleep, exercising stopAndWait's CAS-linearized handoff to the second
	// Start call rather than a clean exit.
	cfg := NewConfig(
		WithReconnectMaxAttempts(50),
		WithReconnectDelayMs(5000),
		WithVideoQueueCapacity(4),
		WithAudioQueueCapacity(4),
	)
	p := NewPlayer(nil, status, nil, nil, cfg, newInput)
	defer p.Close()

	require.NoError(t, p.Start("rtsp://first.invalid/stream"))
	require.Eventually(t, func() bool {
		return status.seen(StatusReconnecting)
	}, time.Second, 5*time.Millisecond)

	fakeB := &errInputStream{}
	started := make(chan struct{})
	go func() {
		_ = p.Start("rtsp://second.invalid/stream")
		close(started)
	}()
	_ = fakeB

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("second Start never returned: stopAndWait likely deadlocked against the parked reconnect sleep")
	}
	require.True(t, p.IsRunning())
}
