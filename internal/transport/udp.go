package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
)

// udpMTU is the datagram transport's declared MTU (spec.md §4.5).
const udpMTU = 1500

// udpPollTimeout bounds how long a single Process(ctx, nil) read waits
// for a datagram before reporting "nothing available", so the caller's
// ctx.Done() is re-checked periodically. The original blocks in
// select() with no timeout and relies on thread cancellation instead;
// here a short deadline plays the same role as the self-pipe DESIGN
// NOTES describe for languages without a cancel primitive.
const udpPollTimeout = 200 * time.Millisecond

// UDP is the datagram transport module. Grounded on
// original_source/src/modules/tp_udp.c: tp_udp_ctx becomes UDP's
// fields, tp_udp_conf_parse's port precedence (port sets both
// directions, sport/dport override individually) is preserved exactly,
// and tp_udp_worker's select-then-recv loop becomes a deadline-bounded
// ReadFrom driven by Process rather than a dedicated thread, since
// pppoat2 classifies UDP as Blocking (its Process call is the one
// blocking I/O site, matching tp_udp_worker's select()).
type UDP struct {
	log *logrus.Entry

	pool   *packet.Pool
	conn   *net.UDPConn
	remote *net.UDPAddr
	sport  int
	dport  int
	host   string
}

// NewUDP returns a new, uninitialised UDP transport module.
func NewUDP() *UDP {
	return &UDP{log: logrus.WithField("module", "udp")}
}

func (u *UDP) Name() string      { return "udp" }
func (u *UDP) Kind() module.Kind { return module.Transport }
func (u *UDP) Blocking() bool    { return true }
func (u *UDP) MTU() int          { return udpMTU }

// Init resolves udp.port/udp.sport/udp.dport/udp.host per
// tp_udp_conf_parse's precedence: udp.port seeds both sport and dport,
// then udp.sport/udp.dport override individually. Both sport and
// dport must resolve to a nonzero port or Init fails, mirroring the original's
// PPPOAT_ASSERT(sport != 0 && dport != 0).
func (u *UDP) Init(conf *config.Store, pool *packet.Pool) error {
	u.pool = pool
	if port, err := conf.FindLong("udp.port"); err == nil {
		u.sport = int(port)
		u.dport = int(port)
	}
	if port, err := conf.FindLong("udp.sport"); err == nil {
		u.sport = int(port)
	}
	if port, err := conf.FindLong("udp.dport"); err == nil {
		u.dport = int(port)
	}
	if u.sport == 0 || u.dport == 0 {
		return errors.New("udp: udp.port or udp.sport/udp.dport must be set")
	}

	u.host = conf.FindStringDefault("udp.host", "")

	raddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", u.host, u.dport))
	if err != nil {
		return fmt.Errorf("udp: resolve remote: %w", err)
	}
	u.remote = raddr

	return nil
}

func (u *UDP) Fini() {}

// Run binds the local (source-port) socket, equivalent to
// tp_udp_sock_new's getaddrinfo/socket/bind sequence.
func (u *UDP) Run(_ context.Context) error {
	laddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf(":%d", u.sport))
	if err != nil {
		return fmt.Errorf("udp: resolve local: %w", err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return fmt.Errorf("udp: listen: %w", err)
	}
	u.conn = conn
	return nil
}

func (u *UDP) Stop() error {
	if u.conn != nil {
		return u.conn.Close()
	}
	return nil
}

// Process implements the two directions of tp_udp_recv/tp_udp_worker:
// in == nil polls for an inbound datagram (tagged Recv), in != nil
// sends its bytes to the configured remote (tp_udp_buf_send's retry
// loop becomes Go's blocking net.Conn.Write, since a closed-socket
// write error is the only failure mode net.UDPConn exposes here).
func (u *UDP) Process(ctx context.Context, in *packet.Packet) (*packet.Packet, error) {
	if in != nil {
		u.log.WithField("size", in.Size()).Debug("send")
		_, err := u.conn.WriteToUDP(in.Bytes(), u.remote)
		u.pool.Put(in)
		return nil, err
	}

	buf := make([]byte, udpMTU)
	_ = u.conn.SetReadDeadline(time.Now().Add(udpPollTimeout))
	n, _, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		default:
		}
		return nil, fmt.Errorf("udp: recv: %w", err)
	}

	pkt, err := u.pool.Get(n)
	if err != nil {
		return nil, nil // backpressure: drop this cycle, try again next
	}
	copy(pkt.Bytes(), buf[:n])
	pkt.Direction = packet.Recv
	u.log.WithField("size", n).Debug("recv")
	return pkt, nil
}
