package streamplay

import "sync/atomic"

// audioStage consumes the audio queue, resamples each packet's native PCM to
// the negotiated output format, and enqueues the result onto the pending-
// audio FIFO drained by the audio write pump.
//
// Grounded on a file-playback decode loop's internalReadAudioFrame
// accumulation into leftoverAudio, generalized from "accumulate until the
// audio player asks" to "push completed buffers onto a pending queue."
type audioStage struct {
	queue   *PacketQueue
	decoder *decoderContext
	pump    *audioWritePump
	running *atomic.Bool
}

func (s *audioStage) run() {
	var packet *Packet
	for s.queue.Pop(&packet, s.running) {
		if !s.decoder.hasAudio() {
			packet.Release()
			continue
		}
		pcm, err := s.decoder.resample(packet.Data())
		if err != nil {
			pkgLogger.Printf("audio resample error: %v", err)
			packet.Release()
			continue
		}
		rate, channels := s.decoder.negotiatedAudioFormat()
		s.pump.enqueue(DecodedAudioBuffer{
			PCM:        pcm,
			SampleRate: rate,
			Channels:   channels,
			PTS:        packet.PTS,
		})
		packet.Release()
	}
}
