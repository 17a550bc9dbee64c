package streamplay

import (
	"sync"

	"github.com/erparts/reisen"
	resampler "github.com/tphakala/go-audio-resampler"
)

// decoderContext holds the native decoder handles for one connection attempt
// plus the resampler that adapts decoded audio to the negotiated output
// format. Every field is guarded by a context mutex held only across a
// submit+receive pair, never across a blocking I/O or queue wait.
//
// reisen performs video color conversion internally (VideoFrame.Data() comes
// back as ready-to-blit interleaved RGBA), so unlike the audio side there is
// no separate scaler handle to track here.
type decoderContext struct {
	mutex sync.Mutex

	video         *reisen.VideoStream
	audio         *reisen.AudioStream
	videoWidth    int
	videoHeight   int
	audioRate     int
	audioChannels int

	outSampleRate int
	outChannels   int
	resampler     *resampler.Resampler
}

// openStream binds the already-opened reisen streams (InputStream.Open has
// already called OpenDecode/stream.Open) and negotiates the audio output
// format by asking the sink for its preferred rate/channels. audio may be
// nil, in which case the session is video-only.
func (c *decoderContext) openStream(video *reisen.VideoStream, audio *reisen.AudioStream, sink AudioSink) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.video = video
	c.audio = audio
	c.videoWidth = video.Width()
	c.videoHeight = video.Height()
	if audio == nil || sink == nil {
		return nil
	}
	c.audioRate = audio.SampleRate()
	c.audioChannels = audioChannelCount(audio)

	rate, channels := sink.PreferredFormat()
	if rate <= 0 {
		rate = audio.SampleRate()
	}
	if channels <= 0 {
		channels = audioChannelCount(audio)
	}
	c.outSampleRate = rate
	c.outChannels = channels

	r, err := resampler.New(resampler.Config{
		InputSampleRate:  audio.SampleRate(),
		InputChannels:    audioChannelCount(audio),
		OutputSampleRate: rate,
		OutputChannels:   channels,
	})
	if err != nil {
		c.audio = nil
		return ErrAudioSetup
	}
	c.resampler = r
	return nil
}

// closeStream drops the context's references to the native handles. The
// handles themselves are closed by InputStream.Close; decoderContext never
// owns them, only the resampler and negotiated-format state it derives from
// them, so reconnects always rebuild it from scratch.
func (c *decoderContext) closeStream() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.video = nil
	c.audio = nil
	c.resampler = nil
	c.outSampleRate = 0
	c.outChannels = 0
}

// hasAudio reports whether this connection attempt negotiated a usable
// audio path.
func (c *decoderContext) hasAudio() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.audio != nil && c.resampler != nil
}

// negotiatedAudioFormat returns the output sample rate and channel count
// fixed at openStream time.
func (c *decoderContext) negotiatedAudioFormat() (int, int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.outSampleRate, c.outChannels
}

// videoDimensions returns the source video's width/height, cached from the
// stream descriptor at openStream time.
func (c *decoderContext) videoDimensions() (int, int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.videoWidth, c.videoHeight
}

// readVideoFrame pulls the frame reisen decoded for the packet the demuxer
// just read off c.video. reisen pairs one ReadPacket with one matching
// stream ReadVideoFrame call on the same goroutine (the decode happens
// inside ReadPacket itself; ReadVideoFrame only drains the result), so this
// must be invoked by the demuxer immediately after routing a video packet —
// never from a separate decoder-stage goroutine. It returns (nil, nil) on a
// frame skip, which is not an error.
func (c *decoderContext) readVideoFrame() (*reisen.VideoFrame, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.video == nil {
		return nil, nil
	}
	frame, found, err := c.video.ReadVideoFrame()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return frame, nil
}

// readAudioFrame is readVideoFrame's audio counterpart. Returns (nil, nil)
// if there is no negotiated audio path or the read was a frame skip.
func (c *decoderContext) readAudioFrame() (*reisen.AudioFrame, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.audio == nil {
		return nil, nil
	}
	frame, found, err := c.audio.ReadAudioFrame()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return frame, nil
}

// resample converts one decoded audio frame's native PCM into the negotiated
// output format. Must be called with the resampler already set up by
// openStream (i.e. after hasAudio() reports true).
func (c *decoderContext) resample(pcm []byte) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.resampler == nil {
		return nil, ErrAudioSetup
	}
	return c.resampler.Resample(pcm)
}
