package streamplay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacket_ReleaseIsSafeToCallMultipleTimes(t *testing.T) {
	p := NewPacket(StreamVideo, 0, []byte("data"))
	require.NotPanics(t, func() {
		p.Release()
		p.Release()
	})
}

func TestPacket_RetainDefersReleaseUntilRefcountZero(t *testing.T) {
	p := NewPacket(StreamAudio, 3, []byte("data"))
	p.Retain()

	p.Release()
	require.Equal(t, []byte("data"), p.Data(), "data must survive while a reference remains")

	p.Release()
	require.Nil(t, p.Data(), "data must be dropped once the refcount reaches zero")
}

func TestPacket_ReleaseOnNilPacketIsNoop(t *testing.T) {
	var p *Packet
	require.NotPanics(t, func() { p.Release() })
}

func TestStreamKind_String(t *testing.T) {
	require.Equal(t, "video", StreamVideo.String())
	require.Equal(t, "audio", StreamAudio.String())
	require.Equal(t, "unknown", StreamKind(99).String())
}
