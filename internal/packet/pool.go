package packet

import "sync"

// maxAlloc bounds a single packet's capacity; anything beyond this is
// treated as a caller error surfaced as ErrOutOfMemory rather than
// attempting an allocation likely to fail anyway.
const maxAlloc = 1 << 28

// Pool is a process-context-wide packet cache. It holds two buckets: a
// capacity-keyed cache of non-empty packets and a freelist of bare
// (zero-capacity) descriptors. All methods are safe for concurrent
// callers.
//
// Grounded on original_source/src/packet.c's pppoat_packets_init/
// pppoat_packet_get/pppoat_packet_get_empty/pppoat_packet_put, and on
// the bucketed free-list shape of the teacher's
// internal/hyperdrive/memory_allocator.go MemoryPool, stripped of NUMA
// affinity, unsafe.Pointer, and per-goroutine pool assignment — none of
// which this single-process pipeline needs.
type Pool struct {
	mu     sync.Mutex
	cache  map[int][]*Packet // capacity -> free packets of that capacity
	empty  []*Packet         // bare descriptors, no buffer
	closed bool
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{cache: make(map[int][]*Packet)}
}

// Get returns a packet whose capacity is >= size. It prefers the
// smallest cached packet with capacity >= size over a fresh allocation.
// The returned packet's logical size equals size.
func (p *Pool) Get(size int) (*Packet, error) {
	if size < 0 || size > maxAlloc {
		return nil, ErrOutOfMemory
	}

	p.mu.Lock()
	pkt := p.takeCached(size)
	p.mu.Unlock()

	if pkt != nil {
		pkt.Resize(size)
		return pkt, nil
	}

	buf := make([]byte, size)
	return &Packet{buf: buf}, nil
}

// takeCached scans cached capacities for the smallest >= size and pops
// one packet from that bucket. Must be called with p.mu held.
func (p *Pool) takeCached(size int) *Packet {
	best := -1
	for capacity, bucket := range p.cache {
		if len(bucket) == 0 {
			continue
		}
		if capacity >= size && (best == -1 || capacity < best) {
			best = capacity
		}
	}
	if best == -1 {
		return nil
	}
	bucket := p.cache[best]
	pkt := bucket[len(bucket)-1]
	bucket = bucket[:len(bucket)-1]
	if len(bucket) == 0 {
		delete(p.cache, best)
	} else {
		p.cache[best] = bucket
	}
	return pkt
}

// GetEmpty returns a bare descriptor with no buffer, for transports
// that attach an externally-owned buffer via Packet.SetBuf and free it
// through a Destructor on release.
func (p *Pool) GetEmpty() (*Packet, error) {
	p.mu.Lock()
	n := len(p.empty)
	var pkt *Packet
	if n > 0 {
		pkt = p.empty[n-1]
		p.empty = p.empty[:n-1]
	}
	p.mu.Unlock()

	if pkt != nil {
		return pkt, nil
	}
	return &Packet{external: true}, nil
}

// Put releases pkt back to the pool. If pkt owns a pool-allocated
// buffer, its direction and user slot are reset and it joins the
// capacity bucket for reuse. If pkt is an externally-owned descriptor
// (obtained via GetEmpty, regardless of whether a buffer was since
// attached via SetBuf), its destructor runs and it joins the empty
// freelist.
func (p *Pool) Put(pkt *Packet) {
	if pkt == nil {
		return
	}

	if pkt.external {
		if pkt.destruct != nil {
			pkt.destruct(pkt)
			pkt.destruct = nil
		}
		pkt.Direction = Unknown
		pkt.UserData = nil
		pkt.buf = nil
		p.mu.Lock()
		if !p.closed {
			p.empty = append(p.empty, pkt)
		}
		p.mu.Unlock()
		return
	}

	pkt.Direction = Unknown
	pkt.UserData = nil
	pkt.buf = pkt.buf[:cap(pkt.buf)]

	p.mu.Lock()
	if !p.closed {
		capacity := cap(pkt.buf)
		p.cache[capacity] = append(p.cache[capacity], pkt)
	}
	p.mu.Unlock()
}

// Close releases every cached packet (running destructors on empty
// descriptors) and marks the pool closed; further Put calls drop their
// argument instead of re-caching it. Mirrors packets_flush in the
// original at pool teardown.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, pkt := range p.empty {
		if pkt.destruct != nil {
			pkt.destruct(pkt)
		}
	}
	p.empty = nil
	p.cache = nil
}
