package iface

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
)

// tuntapKind distinguishes TUN from TAP within the shared tunTap
// struct, mirroring original_source/src/modules/if_tun.c's
// enum if_tuntap_type.
type tuntapKind int

const (
	tunKind tuntapKind = iota + 1
	tapKind
)

func (k tuntapKind) String() string {
	if k == tapKind {
		return "tap"
	}
	return "tun"
}

// tunTap is the shared TUN/TAP interface module. Grounded on
// if_tun.c's if_tuntap_ctx/if_tuntap_worker: a single struct carries
// both kinds, platform-specific fd setup lives in
// tuntapOpen (tun_linux.go / tun_darwin.go / tap_unsupported.go;
// tap_linux.go adds no code), and the macOS uTun<->TUN header rewrite lives
// in compatLayer (compat_linux.go / compat_darwin.go).
type tunTap struct {
	log  *logrus.Entry
	pool *packet.Pool
	kind tuntapKind

	file   *os.File
	ifname string

	recvCh chan *packet.Packet
	errCh  chan error
}

// NewTun returns a new, uninitialised TUN interface module.
func NewTun() module.Stage {
	return &tunTap{kind: tunKind, log: logrus.WithField("module", "tun")}
}

// NewTap returns a new, uninitialised TAP interface module.
func NewTap() module.Stage {
	return &tunTap{kind: tapKind, log: logrus.WithField("module", "tap")}
}

func (t *tunTap) Name() string      { return t.kind.String() }
func (t *tunTap) Kind() module.Kind { return module.Interface }
func (t *tunTap) Blocking() bool    { return true }
func (t *tunTap) MTU() int          { return MTU }

// Init opens the platform TUN/TAP device, mirroring if_tuntap_init.
func (t *tunTap) Init(_ *config.Store, pool *packet.Pool) error {
	t.pool = pool

	file, ifname, err := tuntapOpen(t.kind)
	if err != nil {
		return fmt.Errorf("%s: %w", t.kind, err)
	}
	t.file = file
	t.ifname = ifname
	t.log.WithField("ifname", ifname).Debug("created interface")
	return nil
}

func (t *tunTap) Fini() {
	if t.file != nil {
		_ = t.file.Close()
	}
}

func (t *tunTap) Run(ctx context.Context) error {
	t.recvCh = make(chan *packet.Packet, 16)
	t.errCh = make(chan error, 1)
	go t.reader(ctx)
	return nil
}

func (t *tunTap) Stop() error { return nil }

// reader mirrors if_tuntap_worker: read a frame, apply the compat
// layer in the send direction, and hand it to the pipeline.
func (t *tunTap) reader(ctx context.Context) {
	buf := make([]byte, MTU)
	for {
		n, err := t.file.Read(buf)
		if err != nil {
			select {
			case t.errCh <- err:
			default:
			}
			return
		}
		if n == 0 {
			continue
		}

		pkt, err := t.pool.Get(n)
		if err != nil {
			continue // backpressure: drop this cycle, try again
		}
		copy(pkt.Bytes(), buf[:n])
		pkt.Direction = packet.Send
		compatLayer(t.kind, pkt, true)

		select {
		case t.recvCh <- pkt:
		case <-ctx.Done():
			t.pool.Put(pkt)
			return
		}
	}
}

// Process mirrors if_tuntap_recv for the write direction and the
// worker hand-off for the read direction.
func (t *tunTap) Process(ctx context.Context, in *packet.Packet) (*packet.Packet, error) {
	if in != nil {
		compatLayer(t.kind, in, false)
		_, err := t.file.Write(in.Bytes())
		t.pool.Put(in)
		return nil, err
	}

	select {
	case pkt := <-t.recvCh:
		return pkt, nil
	case err := <-t.errCh:
		return nil, fmt.Errorf("%s: %w", t.kind, err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
