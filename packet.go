package streamplay

import (
	"sync/atomic"
	"time"
)

// StreamKind tags a Packet (or a StreamDescriptor) as carrying video or
// audio data.
type StreamKind uint8

const (
	StreamVideo StreamKind = iota
	StreamAudio
)

func (k StreamKind) String() string {
	switch k {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Packet is an opaque payload unit passed from the demuxer to a decoder
// stage; the demuxer fills it with an already-decoded frame (RGBA video or
// native-rate PCM audio), since reisen decodes during the read. It owns a
// refcounted byte buffer: Release must be called exactly once by whichever
// stage currently holds the packet (the demuxer's local variable, a
// PacketQueue, or a decoder's send step) before ownership passes on or the
// packet is discarded.
type Packet struct {
	refs *int32
	data []byte

	Kind        StreamKind
	StreamIndex int
	PTS         time.Duration
	HasPTS      bool
}

// NewPacket wraps data (not copied) as a single-owner Packet with an initial
// refcount of one.
func NewPacket(kind StreamKind, streamIndex int, data []byte) *Packet {
	refs := int32(1)
	return &Packet{
		refs:        &refs,
		data:        data,
		Kind:        kind,
		StreamIndex: streamIndex,
	}
}

// Data returns the packet's underlying payload bytes.
func (p *Packet) Data() []byte { return p.data }

// Size reports the byte length of the packet's payload.
func (p *Packet) Size() int { return len(p.data) }

// Retain increments the packet's refcount, returning the same packet for
// chaining. Use when a packet must outlive the scope that received it (not
// exercised by the single-consumer queues in this package, but kept so
// Packet's ownership model still holds — owned by exactly one place at a
// time — if queues grow additional consumers).
func (p *Packet) Retain() *Packet {
	atomic.AddInt32(p.refs, 1)
	return p
}

// Release decrements the packet's refcount. When it reaches zero the
// underlying buffer is dropped for garbage collection. Safe to call multiple
// times; calls beyond the first after reaching zero are no-ops.
func (p *Packet) Release() {
	if p == nil || p.refs == nil {
		return
	}
	if atomic.AddInt32(p.refs, -1) <= 0 {
		p.data = nil
	}
}
