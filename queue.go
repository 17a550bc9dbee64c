package streamplay

import (
	"sync"
	"sync/atomic"
	"time"
)

// OverflowPolicy selects what PacketQueue.Push does when the queue is full.
type OverflowPolicy uint8

const (
	// Block waits for room, closure, or a stop signal before enqueuing.
	// Used for audio: continuity matters more than latency.
	Block OverflowPolicy = iota
	// DropOldest evicts the front of the queue to make room, counting the
	// eviction. Used for video: latency matters more than completeness.
	DropOldest
)

// PacketQueue is a bounded, thread-safe FIFO of Packets with a configurable
// overflow policy. It is the jitter buffer between the demuxer and a decoder
// stage.
type PacketQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []*Packet
	capacity int
	policy   OverflowPolicy
	closed   bool
	dropped  uint64
}

// NewPacketQueue creates a queue with the given capacity and overflow
// policy, open for business.
func NewPacketQueue(capacity int, policy OverflowPolicy) *PacketQueue {
	q := &PacketQueue{
		capacity: capacity,
		policy:   policy,
		items:    make([]*Packet, 0, capacity),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push enqueues packet. Under Block, it waits until there is room, the queue
// is closed, or running reports false. Under DropOldest, it evicts the
// oldest entries (releasing them and counting each) until there is room,
// then always enqueues. Returns false (and releases packet itself) if the
// queue is closed or not running at the time of the decision; true on
// success, in which case the queue now owns packet.
func (q *PacketQueue) Push(packet *Packet, running *atomic.Bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.policy == Block {
		for len(q.items) >= q.capacity && !q.closed && running.Load() {
			// running cannot signal the condition itself, so wake up
			// periodically to re-check it.
			wake := time.AfterFunc(20*time.Millisecond, func() {
				q.mu.Lock()
				q.notFull.Broadcast()
				q.mu.Unlock()
			})
			q.notFull.Wait()
			wake.Stop()
		}
		if q.closed || !running.Load() {
			q.mu.Unlock()
			packet.Release()
			q.mu.Lock()
			return false
		}
	} else {
		if q.closed || !running.Load() {
			q.mu.Unlock()
			packet.Release()
			q.mu.Lock()
			return false
		}
		for len(q.items) >= q.capacity {
			oldest := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.dropped++
			oldest.Release()
		}
	}

	q.items = append(q.items, packet)
	q.notEmpty.Signal()
	return true
}

// Pop waits until the queue is non-empty, closed, or running reports false.
// On success it moves the front packet into out and returns true; the
// caller now owns it. Returns false if the queue drained while closed/not
// running, leaving *out untouched.
func (q *PacketQueue) Pop(out **Packet, running *atomic.Bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed && running.Load() {
		// running cannot signal the condition itself, so wake up
		// periodically to re-check it.
		wake := time.AfterFunc(20*time.Millisecond, func() {
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		})
		q.notEmpty.Wait()
		wake.Stop()
	}
	if len(q.items) == 0 {
		return false
	}

	*out = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.notFull.Signal()
	return true
}

// Clear releases every buffered packet and wakes any waiters.
func (q *PacketQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.noLockClear()
}

func (q *PacketQueue) noLockClear() {
	for _, p := range q.items {
		p.Release()
	}
	q.items = q.items[:0]
	q.notFull.Broadcast()
}

// Close marks the queue closed: no further Push succeeds, but pending Pops
// drain whatever remains before returning false. Wakes every waiter on both
// conditions.
func (q *PacketQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Open reopens a closed queue, allowing Push to succeed again. Contents are
// untouched; call Clear first if a fresh queue is wanted (the Player always
// does both around a reconnect).
func (q *PacketQueue) Open() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = false
}

// SetMaxSize updates the queue's capacity. Under DropOldest it immediately
// trims any excess from the front, counting the evictions.
func (q *PacketQueue) SetMaxSize(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.capacity = n
	if q.policy == DropOldest {
		for len(q.items) > q.capacity {
			oldest := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.dropped++
			oldest.Release()
		}
	}
}

// Size returns the number of packets currently buffered.
func (q *PacketQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsOpen reports whether the queue currently admits pushes.
func (q *PacketQueue) IsOpen() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.closed
}

// DroppedCount returns the cumulative number of packets discarded by the
// DropOldest policy since the last ResetDroppedCount.
func (q *PacketQueue) DroppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// ResetDroppedCount zeroes the drop counter, called by Player.Start.
func (q *PacketQueue) ResetDroppedCount() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropped = 0
}
