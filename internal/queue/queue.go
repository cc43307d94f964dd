// Package queue implements a thread-safe FIFO/deque of packets, used
// where one worker produces and another, on a different goroutine,
// consumes.
//
// Grounded on original_source/src/queue.c, whose intrusive
// pppoat_list-backed deque is reformulated here as container/list per
// the DESIGN NOTES guidance to replace intrusive linked lists with
// ordered, allocator-owned sequences.
package queue

import (
	"container/list"
	"sync"

	"github.com/pasis/pppoat2/internal/packet"
)

// Queue is a mutex-guarded deque of *packet.Packet.
type Queue struct {
	mu sync.Mutex
	l  *list.List
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{l: list.New()}
}

// Enqueue appends pkt to the tail.
func (q *Queue) Enqueue(pkt *packet.Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.l.PushBack(pkt)
}

// Dequeue removes and returns the head element, or nil if empty.
func (q *Queue) Dequeue() *packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.l.Front()
	if e == nil {
		return nil
	}
	q.l.Remove(e)
	return e.Value.(*packet.Packet)
}

// DequeueLast removes and returns the tail element, or nil if empty.
func (q *Queue) DequeueLast() *packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.l.Back()
	if e == nil {
		return nil
	}
	q.l.Remove(e)
	return e.Value.(*packet.Packet)
}

// Front returns the head element without removing it, or nil if empty.
func (q *Queue) Front() *packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.l.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*packet.Packet)
}

// PopFront removes the head element without returning it. No-op if
// empty.
func (q *Queue) PopFront() {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.l.Front()
	if e != nil {
		q.l.Remove(e)
	}
}

// Len reports the number of queued packets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len()
}
