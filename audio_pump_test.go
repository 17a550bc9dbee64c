package streamplay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAudioSink struct {
	writes    [][]byte
	shortBy   int // if > 0, the next Write reports this many fewer bytes consumed
	failNext  bool
	rate, chn int
}

func (s *fakeAudioSink) PreferredFormat() (int, int) { return s.rate, s.chn }

func (s *fakeAudioSink) Write(pcm []byte) (int, error) {
	if s.failNext {
		s.failNext = false
		return 0, errors.New("device busy")
	}
	n := len(pcm)
	if s.shortBy > 0 && s.shortBy < n {
		n -= s.shortBy
		s.shortBy = 0
	}
	s.writes = append(s.writes, append([]byte(nil), pcm[:n]...))
	return n, nil
}

func (s *fakeAudioSink) Close() error { return nil }

func TestAudioWritePump_DrainsFullWritesInOrder(t *testing.T) {
	sink := &fakeAudioSink{}
	pump := newAudioWritePump(sink)

	pump.enqueue(DecodedAudioBuffer{PCM: []byte("aaaa")})
	pump.enqueue(DecodedAudioBuffer{PCM: []byte("bbbb")})
	pump.tick()

	require.Len(t, sink.writes, 2)
	require.Equal(t, []byte("aaaa"), sink.writes[0])
	require.Equal(t, []byte("bbbb"), sink.writes[1])
}

func TestAudioWritePump_ShortWriteRequeuesRemainderAtFront(t *testing.T) {
	sink := &fakeAudioSink{shortBy: 2}
	pump := newAudioWritePump(sink)

	pump.enqueue(DecodedAudioBuffer{PCM: []byte("aaaa")})
	pump.enqueue(DecodedAudioBuffer{PCM: []byte("bbbb")})

	pump.tick() // "aaaa" short-writes 2 bytes consumed, "aa" stays queued first
	require.Len(t, sink.writes, 1)
	require.Equal(t, []byte("aa"), sink.writes[0])

	pump.tick() // remainder "aa" then "bbbb" both go through in full
	require.Len(t, sink.writes, 3)
	require.Equal(t, []byte("aa"), sink.writes[1])
	require.Equal(t, []byte("bbbb"), sink.writes[2])
}

func TestAudioWritePump_WriteErrorDropsBufferAndContinues(t *testing.T) {
	sink := &fakeAudioSink{failNext: true}
	pump := newAudioWritePump(sink)

	pump.enqueue(DecodedAudioBuffer{PCM: []byte("aaaa")})
	pump.enqueue(DecodedAudioBuffer{PCM: []byte("bbbb")})
	pump.tick()

	require.Len(t, sink.writes, 1)
	require.Equal(t, []byte("bbbb"), sink.writes[0])
}

func TestAudioWritePump_ResetClearsPending(t *testing.T) {
	sink := &fakeAudioSink{}
	pump := newAudioWritePump(sink)
	pump.enqueue(DecodedAudioBuffer{PCM: []byte("aaaa")})
	pump.reset()
	pump.tick()
	require.Empty(t, sink.writes)
}

func TestAudioWritePump_NilSinkDrainsWithoutWriting(t *testing.T) {
	pump := newAudioWritePump(nil)
	pump.enqueue(DecodedAudioBuffer{PCM: []byte("aaaa")})
	require.NotPanics(t, func() { pump.tick() })
	require.Empty(t, pump.pending)
}

func TestAudioWritePump_EmptyBufferIsIgnored(t *testing.T) {
	sink := &fakeAudioSink{}
	pump := newAudioWritePump(sink)
	pump.enqueue(DecodedAudioBuffer{PCM: nil})
	pump.tick()
	require.Empty(t, sink.writes)
}
