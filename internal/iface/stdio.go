// Package iface implements the link-layer endpoint modules: stdio,
// pppd, tun, and tap. All four share one pattern: a reader goroutine
// started by Run tags frames SEND and feeds them to
// Process(ctx, nil); the pipeline's consumer side calls
// Process(ctx, pkt) with a RECV packet, written synchronously to the
// endpoint.
package iface

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
)

// MTU is fixed at 1500 bytes for every interface module.
const MTU = 1500

// Stdio is the stdin/stdout interface module. EOF on stdin triggers
// process exit by sending SIGINT to self, mirroring the original's
// pppoat_module_if_stdio behaviour.
type Stdio struct {
	pool *packet.Pool
	in   *os.File
	out  *os.File

	recvCh chan *packet.Packet
	errCh  chan error
}

// NewStdio returns a new, uninitialised stdio interface module.
func NewStdio() *Stdio {
	return &Stdio{}
}

func (s *Stdio) Name() string      { return "stdio" }
func (s *Stdio) Kind() module.Kind { return module.Interface }
func (s *Stdio) Blocking() bool    { return true }
func (s *Stdio) MTU() int          { return MTU }

func (s *Stdio) Init(_ *config.Store, pool *packet.Pool) error {
	s.pool = pool
	s.in = os.Stdin
	s.out = os.Stdout
	s.recvCh = make(chan *packet.Packet, 16)
	s.errCh = make(chan error, 1)
	return nil
}

func (s *Stdio) Fini() {}

func (s *Stdio) Run(ctx context.Context) error {
	go s.reader(ctx)
	return nil
}

func (s *Stdio) reader(ctx context.Context) {
	buf := make([]byte, MTU)
	for {
		n, err := s.in.Read(buf)
		if err != nil {
			// EOF (or any read error) on stdin: terminate the
			// process via self-signal, matching the original's
			// "EOF triggers process exit by sending SIGINT to self".
			_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
			select {
			case s.errCh <- err:
			default:
			}
			return
		}
		if n == 0 {
			continue
		}

		pkt, err := s.pool.Get(n)
		if err != nil {
			continue // backpressure: drop this cycle, try again
		}
		copy(pkt.Bytes(), buf[:n])
		pkt.Direction = packet.Send

		select {
		case s.recvCh <- pkt:
		case <-ctx.Done():
			s.pool.Put(pkt)
			return
		}
	}
}

func (s *Stdio) Stop() error { return nil }

func (s *Stdio) Process(ctx context.Context, in *packet.Packet) (*packet.Packet, error) {
	if in != nil {
		_, err := s.out.Write(in.Bytes())
		s.pool.Put(in)
		return nil, err
	}

	select {
	case pkt := <-s.recvCh:
		return pkt, nil
	case err := <-s.errCh:
		return nil, fmt.Errorf("stdio: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
