package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
)

// fakeStage is a minimal non-blocking module.Stage used to exercise
// routing without any real I/O: Process on a nil input pops from feed
// (becoming a SEND or RECV producer); Process on a non-nil input
// appends to recvd.
type fakeStage struct {
	name     string
	kind     module.Kind
	blocking bool

	mu    sync.Mutex
	feed  []*packet.Packet
	recvd []*packet.Packet
}

func newFakeStage(name string, kind module.Kind) *fakeStage {
	return &fakeStage{name: name, kind: kind}
}

func (f *fakeStage) Name() string       { return f.name }
func (f *fakeStage) Kind() module.Kind  { return f.kind }
func (f *fakeStage) Blocking() bool     { return f.blocking }
func (f *fakeStage) MTU() int           { return 1500 }
func (f *fakeStage) Fini()              {}
func (f *fakeStage) Stop() error        { return nil }
func (f *fakeStage) Run(context.Context) error { return nil }

func (f *fakeStage) Init(*config.Store, *packet.Pool) error { return nil }

func (f *fakeStage) Process(_ context.Context, in *packet.Packet) (*packet.Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if in != nil {
		f.recvd = append(f.recvd, in)
		return nil, nil
	}

	if len(f.feed) == 0 {
		return nil, nil
	}
	out := f.feed[0]
	f.feed = f.feed[1:]
	return out, nil
}

func (f *fakeStage) push(pkt *packet.Packet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feed = append(f.feed, pkt)
}

func (f *fakeStage) received() []*packet.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*packet.Packet, len(f.recvd))
	copy(out, f.recvd)
	return out
}

func TestPipelineInvariants(t *testing.T) {
	pool := packet.NewPool()
	p := New(pool, nil)

	iface := newFakeStage("iface", module.Interface)
	p.Add(iface)

	err := p.Start(context.Background(), config.New())
	assert.Error(t, err, "a single module must fail the >= 2 modules invariant")

	plugin := newFakeStage("plugin", module.Plugin)
	p2 := New(pool, nil)
	p2.Add(plugin)
	p2.Add(newFakeStage("transport", module.Transport))
	err = p2.Start(context.Background(), config.New())
	assert.Error(t, err, "head must not be a plugin")
}

func TestPipelineInvertLoopback(t *testing.T) {
	pool := packet.NewPool()
	p := New(pool, nil)

	head := newFakeStage("head-iface", module.Interface)
	tail := newFakeStage("tail-iface", module.Interface)
	p.Add(head)
	p.Add(tail)

	entries := p.Entries()
	require.False(t, entries[0].Invert)
	require.True(t, entries[1].Invert, "loopback: newly added tail interface must invert")

	require.NoError(t, p.Start(context.Background(), config.New()))
	defer p.Stop()

	pkt, err := pool.Get(4)
	require.NoError(t, err)
	copy(pkt.Bytes(), []byte("ping"))
	pkt.Direction = packet.Send
	head.push(pkt)

	require.Eventually(t, func() bool {
		return len(tail.received()) == 1
	}, time.Second, time.Millisecond, "packet must route from head to inverted tail")

	got := tail.received()[0]
	assert.Equal(t, "ping", string(got.Bytes()))

	// The inverted tail producing SEND must flip to RECV and route
	// back to the head, completing the loopback round trip.
	pkt2, err := pool.Get(4)
	require.NoError(t, err)
	copy(pkt2.Bytes(), []byte("pong"))
	pkt2.Direction = packet.Send
	tail.push(pkt2)

	require.Eventually(t, func() bool {
		return len(head.received()) == 1
	}, time.Second, time.Millisecond, "packet must route from inverted tail back to head")

	got2 := head.received()[0]
	assert.Equal(t, "pong", string(got2.Bytes()))
	assert.Equal(t, packet.Recv, got2.Direction, "tail's SEND must flip to RECV on its way back to head")
}

func TestPipelineGatewayInvert(t *testing.T) {
	pool := packet.NewPool()
	p := New(pool, nil)

	head := newFakeStage("head-transport", module.Transport)
	tail := newFakeStage("tail-transport", module.Transport)
	p.Add(head)
	p.Add(tail)

	entries := p.Entries()
	assert.True(t, entries[0].Invert, "gateway: head transport must invert when a second transport is appended")
	assert.False(t, entries[1].Invert)

	require.NoError(t, p.Start(context.Background(), config.New()))
	defer p.Stop()

	// The inverted head producing RECV must flip to SEND and forward
	// to the tail.
	pkt, err := pool.Get(4)
	require.NoError(t, err)
	copy(pkt.Bytes(), []byte("gway"))
	pkt.Direction = packet.Recv
	head.push(pkt)

	require.Eventually(t, func() bool {
		return len(tail.received()) == 1
	}, time.Second, time.Millisecond, "packet must route from inverted head to tail")

	got := tail.received()[0]
	assert.Equal(t, "gway", string(got.Bytes()))
	assert.Equal(t, packet.Send, got.Direction, "head's RECV must flip to SEND on its way to tail")
}

func TestPipelineRoutesRecvFromTailToHead(t *testing.T) {
	pool := packet.NewPool()
	p := New(pool, nil)

	head := newFakeStage("head", module.Interface)
	tail := newFakeStage("tail", module.Transport)
	p.Add(head)
	p.Add(tail)

	require.NoError(t, p.Start(context.Background(), config.New()))
	defer p.Stop()

	pkt, err := pool.Get(4)
	require.NoError(t, err)
	pkt.Direction = packet.Recv
	tail.push(pkt)

	require.Eventually(t, func() bool {
		return len(head.received()) == 1
	}, time.Second, time.Millisecond)
}
