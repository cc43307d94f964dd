package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSizing(t *testing.T) {
	pool := NewPool()

	sizes := []int{1500, 1501, 1502, 1503, 1504}
	pkts := make([]*Packet, len(sizes))
	for i, sz := range sizes {
		pkt, err := pool.Get(sz)
		require.NoError(t, err)
		require.GreaterOrEqual(t, pkt.Capacity(), sz)
		assert.Equal(t, sz, pkt.Size())
		pkts[i] = pkt
	}

	for _, pkt := range pkts {
		pool.Put(pkt)
	}

	reused, err := pool.Get(1500)
	require.NoError(t, err)
	assert.Same(t, pkts[0], reused, "expected the released 1500-capacity packet to be reused")
}

func TestPoolPutResetsPacket(t *testing.T) {
	pool := NewPool()
	pkt, err := pool.Get(16)
	require.NoError(t, err)

	pkt.Direction = Send
	pkt.UserData = "anything"
	pkt.Resize(4)

	pool.Put(pkt)

	assert.Equal(t, Unknown, pkt.Direction)
	assert.Nil(t, pkt.UserData)
	assert.Equal(t, 16, pkt.Size(), "size restored to capacity on release")
}

func TestPoolEmptyDescriptor(t *testing.T) {
	pool := NewPool()

	pkt, err := pool.GetEmpty()
	require.NoError(t, err)
	assert.Equal(t, 0, pkt.Capacity())

	ran := false
	pkt.SetBuf([]byte("external"))
	pkt.SetDestructor(func(*Packet) { ran = true })

	pool.Put(pkt)
	assert.True(t, ran, "destructor must run when an empty descriptor carrying an external buffer is released")
}

func TestPoolConservation(t *testing.T) {
	pool := NewPool()

	var inflight []*Packet
	for i := 0; i < 8; i++ {
		pkt, err := pool.Get(64)
		require.NoError(t, err)
		inflight = append(inflight, pkt)
	}
	for _, pkt := range inflight[:5] {
		pool.Put(pkt)
	}

	pool.Close()
}
