package streamplay

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runningFlag() *atomic.Bool {
	var b atomic.Bool
	b.Store(true)
	return &b
}

func TestPacketQueue_DropOldestEvictsFront(t *testing.T) {
	q := NewPacketQueue(2, DropOldest)
	running := runningFlag()

	require.True(t, q.Push(NewPacket(StreamVideo, 0, []byte("a")), running))
	require.True(t, q.Push(NewPacket(StreamVideo, 0, []byte("b")), running))
	require.True(t, q.Push(NewPacket(StreamVideo, 0, []byte("c")), running))

	require.Equal(t, 2, q.Size())
	require.Equal(t, uint64(1), q.DroppedCount())

	var out *Packet
	require.True(t, q.Pop(&out, running))
	require.Equal(t, []byte("b"), out.Data())
}

func TestPacketQueue_BlockWaitsForRoom(t *testing.T) {
	q := NewPacketQueue(1, Block)
	running := runningFlag()

	require.True(t, q.Push(NewPacket(StreamAudio, 0, []byte("a")), running))

	pushed := make(chan bool, 1)
	go func() {
		pushed <- q.Push(NewPacket(StreamAudio, 0, []byte("b")), running)
	}()

	select {
	case <-pushed:
		t.Fatal("Push on a full Block queue returned before room was made")
	case <-time.After(50 * time.Millisecond):
	}

	var out *Packet
	require.True(t, q.Pop(&out, running))
	require.Equal(t, []byte("a"), out.Data())

	select {
	case ok := <-pushed:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Push never unblocked after Pop made room")
	}
}

func TestPacketQueue_CloseUnblocksPushAndPop(t *testing.T) {
	q := NewPacketQueue(1, Block)
	running := runningFlag()
	require.True(t, q.Push(NewPacket(StreamAudio, 0, []byte("a")), running))

	blockedPush := make(chan bool, 1)
	go func() {
		blockedPush <- q.Push(NewPacket(StreamAudio, 0, []byte("b")), running)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	require.False(t, <-blockedPush)

	var out *Packet
	require.True(t, q.Pop(&out, running), "a closed queue must still drain buffered items")
	require.False(t, q.Pop(&out, running), "a closed, drained queue must report no more items")
}

func TestPacketQueue_NotRunningUnblocksPop(t *testing.T) {
	q := NewPacketQueue(4, Block)
	running := runningFlag()

	popped := make(chan bool, 1)
	go func() {
		var out *Packet
		popped <- q.Pop(&out, running)
	}()

	time.Sleep(20 * time.Millisecond)
	running.Store(false)

	select {
	case ok := <-popped:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop never observed running going false")
	}
}

func TestPacketQueue_OpenAfterCloseAllowsPush(t *testing.T) {
	q := NewPacketQueue(2, DropOldest)
	running := runningFlag()

	q.Close()
	require.False(t, q.Push(NewPacket(StreamVideo, 0, []byte("a")), running))

	q.Open()
	require.True(t, q.Push(NewPacket(StreamVideo, 0, []byte("b")), running))
}

func TestPacketQueue_SetMaxSizeTrimsExcess(t *testing.T) {
	q := NewPacketQueue(4, DropOldest)
	running := runningFlag()
	for _, b := range []string{"a", "b", "c", "d"} {
		require.True(t, q.Push(NewPacket(StreamVideo, 0, []byte(b)), running))
	}

	q.SetMaxSize(2)
	require.Equal(t, 2, q.Size())
	require.Equal(t, uint64(2), q.DroppedCount())

	var out *Packet
	require.True(t, q.Pop(&out, running))
	require.Equal(t, []byte("c"), out.Data())
}
