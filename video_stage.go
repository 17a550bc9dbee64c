package streamplay

import "sync/atomic"

// videoStage consumes the video queue and republishes each packet's already-
// decoded RGBA payload (see decoderContext.readVideoFrame, called by the
// demuxer — reisen ties decode to the packet read itself) as a
// DecodedVideoFrame for the Frame Sink.
//
// Grounded on the decodeLoop/scheduleLoop split of a file-playback controller:
// a dedicated goroutine drains decoded output independently of the reader.
// The PTS-paced scheduling half is dropped since there is no A/V-sync
// requirement beyond what the decoder inherently provides — frames are
// handed to the sink as fast as they arrive.
type videoStage struct {
	queue   *PacketQueue
	decoder *decoderContext
	sink    FrameSink
	running *atomic.Bool
}

// run pops one packet per iteration and publishes it. Errors are impossible
// here by construction (the payload was already decoded by the demuxer); a
// missing Frame Sink is a silent no-op — the core never blocks on rendering.
func (s *videoStage) run() {
	var packet *Packet
	for s.queue.Pop(&packet, s.running) {
		width, height := s.decoder.videoDimensions()
		if width > 0 && height > 0 && s.sink != nil {
			s.sink.OnFrame(DecodedVideoFrame{
				Width:  width,
				Height: height,
				RGBA:   packet.Data(),
				PTS:    packet.PTS,
			})
		}
		packet.Release()
	}
}
