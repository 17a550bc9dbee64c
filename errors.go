package streamplay

import "errors"

// These are sentinel values, not exception types: callers match with
// errors.Is, and most are recoverable locally by the stage that produced
// them.
var (
	// ErrEmptyURL is a ConfigError: Start was called with an empty URL.
	ErrEmptyURL = errors.New("streamplay: empty url")

	// ErrNoVideoStream is an OpenError: the input has no video stream. Video
	// is mandatory; audio is optional.
	ErrNoVideoStream = errors.New("streamplay: input has no video stream")

	// ErrStreamInfoUnavailable is an OpenError: the URL could not be parsed,
	// or the input could not be opened (including an open that timed out),
	// so no stream descriptors are available.
	ErrStreamInfoUnavailable = errors.New("streamplay: stream info unavailable")

	// ErrCodecSetup is a CodecSetupError: decoder/converter initialization
	// failed while opening a session.
	ErrCodecSetup = errors.New("streamplay: codec setup failed")

	// ErrAudioSetup is an AudioSetupError: the audio device or decoder could
	// not be configured for this session. Video continues without audio.
	ErrAudioSetup = errors.New("streamplay: audio setup failed")

	// ErrRetryExhausted is a TerminalRetryExhausted: the reconnect budget was
	// spent without a stable connection.
	ErrRetryExhausted = errors.New("streamplay: reconnect attempts exhausted")

	// errEndOfStream is a TransientReadError: the input ended without an
	// explicit transport error (e.g. the peer closed the connection
	// cleanly). Treated the same as any other read failure: it triggers
	// "Connection lost" and the reconnect path.
	errEndOfStream = errors.New("streamplay: end of stream")
)
