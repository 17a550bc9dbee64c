package streamplay

import "time"

// StreamDescriptor summarizes one stream of the input as reported after
// opening, used by sinks to size buffers and configure playback hardware.
type StreamDescriptor struct {
	Kind StreamKind

	// Video fields.
	Width, Height int
	FrameRate     float64

	// Audio fields.
	SampleRate int
	Channels   int
}

// DecodedVideoFrame is one decoded, scaled picture handed to a FrameSink.
// PTS is the frame's presentation timestamp relative to stream start.
type DecodedVideoFrame struct {
	Width, Height int
	// RGBA holds Width*Height*4 bytes, row-major, no padding.
	RGBA []byte
	PTS  time.Duration
}

// DecodedAudioBuffer is one decoded, resampled chunk of interleaved 16-bit
// PCM handed to the audio write pump.
type DecodedAudioBuffer struct {
	PCM        []byte
	SampleRate int
	Channels   int
	PTS        time.Duration
}

// FrameSink receives decoded video frames from the video decoder stage. The
// Player calls OnFrame from the video decoder stage's goroutine; sinks that
// touch shared UI state must do their own synchronization.
type FrameSink interface {
	OnFrame(frame DecodedVideoFrame)
}

// AudioSink receives decoded, resampled audio from the write pump and
// reports the device's native format so the audio decoder stage knows what
// to resample into. Write returns the number of bytes actually consumed;
// a short write means the device's internal buffer is full and the pump
// requeues the remainder.
type AudioSink interface {
	// PreferredFormat reports the sample rate and channel count the sink
	// wants PCM delivered in. Called once per session, before decoding
	// starts.
	PreferredFormat() (sampleRate, channels int)
	Write(pcm []byte) (int, error)
	// Close releases the sink's device resources. The Player always calls
	// this from its owner goroutine (the one NewPlayer starts), the same
	// goroutine that drives Write.
	Close() error
}

// Status values reported to a StatusSink.
type Status uint8

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusPlaying
	StatusConnectionLost
	StatusReconnecting
	StatusStopped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusPlaying:
		return "playing"
	case StatusConnectionLost:
		return "connection lost"
	case StatusReconnecting:
		return "reconnecting"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusSink is notified on every session state transition. err carries the
// precipitating failure for StatusConnectionLost and StatusFailed, and the
// current/max attempt count for StatusReconnecting; it is nil for every
// other status.
type StatusSink interface {
	OnStatus(status Status, err error)
}

// PlayerStats is a point-in-time snapshot published roughly every
// StatsInterval (see Config).
type PlayerStats struct {
	VideoQueueSize   int
	AudioQueueSize   int
	VideoDropped     uint64
	AudioDropped     uint64
	BitrateBps       float64
	JitterMs         float64
	ReconnectAttempt int
}

// StatsSink receives periodic PlayerStats snapshots.
type StatsSink interface {
	OnStats(stats PlayerStats)
}
