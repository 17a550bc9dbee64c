// Package ebitenaudio adapts streamplay's push-style AudioSink onto
// ebitengine's pull-style audio.Player, the way a video-with-audio
// controller wires a reisen.AudioStream into an audio.Player via an
// io.Reader.
package ebitenaudio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// playerBufferSize mirrors a typical desktop player constant: 200ms is
// comfortable on desktop targets without introducing excessive audio
// latency.
const playerBufferSize time.Duration = 200 * time.Millisecond

// maxBufferedSeconds bounds how much decoded PCM Sink holds between Write
// calls and the player's Read pulls, so a render-side stall doesn't grow
// latency without bound; Write drops the oldest bytes once exceeded.
const maxBufferedSeconds = 1

var ErrNoAudioContext = errors.New("ebitenaudio: no current audio context")

// Sink implements streamplay.AudioSink (by structural typing: PreferredFormat/
// Write/Close) backed by an ebitengine audio.Player. Call New once per
// session, after the current ebitengine audio.Context has been created at
// the negotiated sample rate.
type Sink struct {
	mu       sync.Mutex
	buf      []byte
	maxBytes int

	rate     int
	channels int
	volume   float64
	muted    bool

	player *audio.Player
}

// New builds a Sink against the process-wide ebitengine audio context,
// which must already exist and be configured at sampleRate (ebitengine
// supports exactly one sample rate per context, so reconnects at a
// different rate require the caller to create a fresh context and Sink).
func New(sampleRate, channels int) (*Sink, error) {
	ctx := audio.CurrentContext()
	if ctx == nil {
		return nil, ErrNoAudioContext
	}
	if ctx.SampleRate() != sampleRate {
		return nil, fmt.Errorf("ebitenaudio: context sample rate %d does not match stream rate %d", ctx.SampleRate(), sampleRate)
	}

	s := &Sink{
		rate:     sampleRate,
		channels: channels,
		volume:   1.0,
		maxBytes: sampleRate * channels * 2 * maxBufferedSeconds,
	}

	player, err := ctx.NewPlayer(s)
	if err != nil {
		return nil, err
	}
	player.SetBufferSize(playerBufferSize)
	player.SetVolume(s.volume)
	s.player = player
	player.Play()
	return s, nil
}

// PreferredFormat reports the format New was constructed with.
func (s *Sink) PreferredFormat() (sampleRate, channels int) {
	return s.rate, s.channels
}

// Write appends decoded PCM to the internal buffer the player's Read drains.
// It never blocks: under sustained overflow it drops the oldest bytes,
// trading a brief audible glitch for bounded latency.
func (s *Sink) Write(pcm []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if total := len(s.buf) + len(pcm); total > s.maxBytes {
		overflow := total - s.maxBytes
		if overflow >= len(s.buf) {
			s.buf = s.buf[:0]
		} else {
			s.buf = s.buf[overflow:]
		}
	}
	s.buf = append(s.buf, pcm...)
	return len(pcm), nil
}

// Read implements io.Reader for audio.Context.NewPlayer's pull loop. A
// starved buffer serves silence rather than blocking, since ebitengine's
// mixer thread must never stall on us.
func (s *Sink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// SetVolume sets playback volume in [0, 1]; has no audible effect while
// muted, but is remembered for when SetMuted(false) is called.
func (s *Sink) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
	if s.player != nil && !s.muted {
		s.player.SetVolume(volume)
	}
}

func (s *Sink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetMuted silences output without discarding the configured volume.
func (s *Sink) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	if s.player == nil {
		return
	}
	if muted {
		s.player.SetVolume(0)
	} else {
		s.player.SetVolume(s.volume)
	}
}

func (s *Sink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Close pauses and releases the underlying audio.Player. streamplay.Player
// calls it from its owner goroutine, the same goroutine that calls Write.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	s.player.Pause()
	err := s.player.Close()
	s.player = nil
	return err
}
