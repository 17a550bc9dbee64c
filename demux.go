package streamplay

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// demuxer drives one InputStream end-to-end across however many connection
// attempts the reconnect controller allows. It is built fresh for each
// Player.Start call and run on its own goroutine.
//
// Packet routing style (read one packet, switch on its stream, immediately
// pull the matching decoded frame) is grounded on a file-playback decode
// loop's internalReadAudioFrame pattern; the outer open/retry/backoff shell
// is grounded on a process-supervisor's restart-loop manager.
type demuxer struct {
	openInput func() (InputStream, error)

	videoQueue *PacketQueue
	audioQueue *PacketQueue
	decoder    *decoderContext
	reconnect  *reconnectController
	audioSink  AudioSink

	running       *atomic.Bool
	stopRequested *atomic.Bool

	// bitrateBps is owned by the Player; the demuxer only writes through
	// the pointer.
	bitrateBps *atomic.Uint64

	onStatus func(Status, error)
	onError  func(error)
	onOpened func(videoFrameDuration, audioFrameDuration time.Duration)
}

// run is the outer loop: open, play, and on disconnect loop back under the
// reconnect counter until the budget is exhausted or running goes false.
func (d *demuxer) run() {
	for d.running.Load() && !d.stopRequested.Load() {
		input, err := d.openInput()
		if err == nil {
			err = d.openSession(input)
		}
		if err == nil {
			d.reconnect.reset()
			d.onStatus(StatusPlaying, nil)
			readErr := d.readLoop(input)
			input.Close()
			d.decoder.closeStream()
			d.videoQueue.Clear()
			d.audioQueue.Clear()
			if !d.running.Load() || d.stopRequested.Load() {
				return
			}
			if readErr != nil {
				pkgLogger.Printf("Connection lost: %v", readErr)
				d.onStatus(StatusConnectionLost, readErr)
				d.onError(readErr)
			}
		} else {
			if input != nil {
				input.Close()
			}
			d.onError(err)
		}

		if !d.running.Load() || d.stopRequested.Load() {
			return
		}

		attempt, max, exhausted := d.reconnect.recordFailure()
		if exhausted {
			d.onError(withExhaustedAttempts(ErrRetryExhausted, attempt))
			d.running.Store(false)
			return
		}
		d.onStatus(StatusReconnecting, fmt.Errorf("attempt %d of %d", attempt, max))
		pkgLogger.Printf("Retrying connection (%d/%d)", attempt, max)
		d.reconnect.sleep(d.running, d.stopRequested)
	}
}

// openSession opens the input, negotiates the decoder context, and reopens
// both queues for a fresh connection attempt.
func (d *demuxer) openSession(input InputStream) error {
	if err := input.Open(d.stopRequested); err != nil {
		return err
	}
	if err := d.decoder.openStream(input.VideoDecoder(), input.AudioDecoder(), d.audioSink); err != nil {
		// Audio setup failure tears down audio and continues video-only
		// rather than failing the whole session.
		d.onError(err)
	}
	d.videoQueue.Open()
	d.audioQueue.Open()
	d.videoQueue.ResetDroppedCount()
	d.audioQueue.ResetDroppedCount()
	if d.onOpened != nil {
		d.onOpened(input.VideoFrameDuration(), input.AudioFrameDuration())
	}
	return nil
}

// readLoop reads, routes, and pushes packets until a transient read error
// or queue closure under shutdown, tracking a
// sliding-window bitrate along the way. Returns nil on a clean shutdown-
// triggered exit, or the read error that ended the loop.
func (d *demuxer) readLoop(input InputStream) error {
	windowStart := time.Now()
	var windowBytes int64

	for d.running.Load() {
		kind, routed, size, err := input.RoutePacket(d.stopRequested)
		if err != nil {
			return err
		}
		if !routed {
			if !d.running.Load() || d.stopRequested.Load() {
				return nil // interrupted by a stop request, not a failure
			}
			continue // a stream we didn't select; keep reading
		}

		windowBytes += int64(size)
		if elapsed := time.Since(windowStart); elapsed >= time.Second {
			kbps := float64(windowBytes*8) / 1000 / elapsed.Seconds()
			storeBitrate(d.bitrateBps, kbps)
			windowStart = time.Now()
			windowBytes = 0
		}

		packet, perr := d.decodeRoutedPacket(kind)
		if perr != nil {
			pkgLogger.Printf("decode error: %v", perr)
			continue
		}
		if packet == nil {
			continue // frame skip
		}

		var pushed bool
		if kind == StreamVideo {
			pushed = d.videoQueue.Push(packet, d.running)
		} else {
			pushed = d.audioQueue.Push(packet, d.running)
		}
		if !pushed && d.running.Load() {
			// Queue closed out from under us without a stop: don't
			// tight-spin, the next reconnect cycle will reopen it.
			continue
		}
	}
	return nil
}

func (d *demuxer) decodeRoutedPacket(kind StreamKind) (*Packet, error) {
	if kind == StreamVideo {
		frame, err := d.decoder.readVideoFrame()
		if err != nil || frame == nil {
			return nil, err
		}
		pts, _ := frame.PresentationOffset()
		p := NewPacket(StreamVideo, 0, cloneFrameData(frame.Data()))
		p.PTS, p.HasPTS = pts, true
		return p, nil
	}

	if !d.decoder.hasAudio() {
		return nil, nil
	}
	frame, err := d.decoder.readAudioFrame()
	if err != nil || frame == nil {
		return nil, err
	}
	pts, _ := frame.PresentationOffset()
	p := NewPacket(StreamAudio, 0, cloneFrameData(frame.Data()))
	p.PTS, p.HasPTS = pts, true
	return p, nil
}

// cloneFrameData copies a decoded frame's payload before it is handed to a
// queue that may retain it well past the next decode call. reisen's
// VideoFrame/AudioFrame.Data() points into a buffer owned by the underlying
// decoder and is only guaranteed valid until the next ReadVideoFrame/
// ReadAudioFrame call on that stream; with up to VideoQueueCapacity frames
// retained at once under DropOldest, aliasing that buffer would corrupt
// every older entry still queued.
func cloneFrameData(data []byte) []byte {
	clone := make([]byte, len(data))
	copy(clone, data)
	return clone
}

// storeBitrate/loadBitrate encode a float64 kbps value onto an
// atomic.Uint64, since Go has no atomic.Float64.
func storeBitrate(field *atomic.Uint64, kbps float64) {
	field.Store(math.Float64bits(kbps))
}

func loadBitrate(field *atomic.Uint64) float64 {
	return math.Float64frombits(field.Load())
}

// withExhaustedAttempts wraps ErrRetryExhausted with the number of attempts
// made.
func withExhaustedAttempts(base error, attempts int) error {
	return fmt.Errorf("%w: %d attempts", base, attempts)
}
