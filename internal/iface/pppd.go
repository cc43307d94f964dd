package iface

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
)

// pppdPaths is the fixed probe list if_pppd_path() walks looking for
// an executable pppd binary, in order.
var pppdPaths = []string{
	"/sbin/pppd",
	"/usr/sbin/pppd",
	"/usr/local/sbin/pppd",
	"/usr/bin/pppd",
	"/usr/local/bin/pppd",
}

// PPPD is the pppd interface module: it forks the ppp daemon, wiring
// its stdio to two pipes, and shuttles frames between those pipes and
// the pipeline. Grounded on
// original_source/src/modules/if_pppd.c: if_pppd_path's probe list
// becomes pppdPaths, if_pppd_run's fork+dup2+execl becomes
// os/exec.Cmd with StdinPipe/StdoutPipe, and if_pppd_worker's
// read-then-submit loop becomes the reader goroutine shared with the
// other iface modules.
type PPPD struct {
	log  *logrus.Entry
	pool *packet.Pool

	path string
	ip   string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	recvCh chan *packet.Packet
	errCh  chan error
}

// NewPPPD returns a new, uninitialised pppd interface module.
func NewPPPD() *PPPD {
	return &PPPD{log: logrus.WithField("module", "pppd")}
}

func (p *PPPD) Name() string      { return "pppd" }
func (p *PPPD) Kind() module.Kind { return module.Interface }
func (p *PPPD) Blocking() bool    { return true }
func (p *PPPD) MTU() int          { return MTU }

// Init resolves the pppd binary path and the optional pppd.ip spec.
// The SUPPLEMENTED pppd.path override (SPEC_FULL.md §2C) bypasses the
// probe list entirely when set.
func (p *PPPD) Init(conf *config.Store, pool *packet.Pool) error {
	p.pool = pool
	p.ip = conf.FindStringDefault("pppd.ip", "")

	if path, err := conf.FindString("pppd.path"); err == nil {
		p.path = path
		return nil
	}

	for _, candidate := range pppdPaths {
		if info, err := os.Stat(candidate); err == nil && info.Mode()&0o111 != 0 {
			p.path = candidate
			return nil
		}
	}
	return fmt.Errorf("pppd: no executable pppd binary found in %v", pppdPaths)
}

func (p *PPPD) Fini() {}

// Run forks pppd with "nodetach noauth notty passive [ip-spec]",
// mirroring if_pppd_run's argv, and wires its stdio to pipes.
func (p *PPPD) Run(ctx context.Context) error {
	args := []string{"nodetach", "noauth", "notty", "passive"}
	if p.ip != "" {
		args = append(args, p.ip)
	}

	p.cmd = exec.Command(p.path, args...)

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("pppd: stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("pppd: stdout pipe: %w", err)
	}
	p.stdin = stdin
	p.stdout = stdout

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("pppd: start %s: %w", p.path, err)
	}

	p.recvCh = make(chan *packet.Packet, 16)
	p.errCh = make(chan error, 1)
	go p.reader(ctx)

	return nil
}

func (p *PPPD) reader(ctx context.Context) {
	buf := make([]byte, MTU)
	for {
		n, err := p.stdout.Read(buf)
		if err != nil {
			select {
			case p.errCh <- err:
			default:
			}
			return
		}
		if n == 0 {
			continue
		}

		pkt, err := p.pool.Get(n)
		if err != nil {
			continue // backpressure: drop this cycle, try again
		}
		copy(pkt.Bytes(), buf[:n])
		pkt.Direction = packet.Send

		select {
		case p.recvCh <- pkt:
		case <-ctx.Done():
			p.pool.Put(pkt)
			return
		}
	}
}

// Stop sends SIGTERM and waits for the child, mirroring if_pppd_stop.
func (p *PPPD) Stop() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		p.log.WithError(err).Warn("sigterm failed")
	}
	_ = p.cmd.Wait()
	return nil
}

func (p *PPPD) Process(ctx context.Context, in *packet.Packet) (*packet.Packet, error) {
	if in != nil {
		_, err := p.stdin.Write(in.Bytes())
		p.pool.Put(in)
		return nil, err
	}

	select {
	case pkt := <-p.recvCh:
		return pkt, nil
	case err := <-p.errCh:
		return nil, fmt.Errorf("pppd: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

