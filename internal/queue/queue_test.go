package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pasis/pppoat2/internal/packet"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := New()
	p1 := &packet.Packet{}
	p2 := &packet.Packet{}

	q.Enqueue(p1)
	q.Enqueue(p2)

	assert.Same(t, p1, q.Dequeue())
	assert.Same(t, p2, q.Dequeue())
	assert.Nil(t, q.Dequeue())

	q.Enqueue(p1)
	assert.Same(t, p1, q.Dequeue())
}

func TestQueueDequeueLast(t *testing.T) {
	q := New()
	p1 := &packet.Packet{}
	p2 := &packet.Packet{}
	p3 := &packet.Packet{}

	q.Enqueue(p1)
	q.Enqueue(p2)
	q.Enqueue(p3)

	assert.Same(t, p3, q.DequeueLast())
	assert.Same(t, p2, q.DequeueLast())
	assert.Same(t, p1, q.DequeueLast())
	assert.Nil(t, q.DequeueLast())
}

func TestQueueFrontAndPop(t *testing.T) {
	q := New()
	p1 := &packet.Packet{}
	p2 := &packet.Packet{}

	q.Enqueue(p1)
	q.Enqueue(p2)

	assert.Same(t, p1, q.Front())
	assert.Equal(t, 2, q.Len())

	q.PopFront()
	assert.Same(t, p2, q.Front())
	assert.Equal(t, 1, q.Len())
}
