// Package module defines the pipeline stage contract: a uniform
// lifecycle (Init/Fini/Run/Stop) and data-plane operation (Process)
// shared by interface, transport, and plugin modules.
//
// Grounded on original_source/src/module.h/module.c. The original's
// vtable struct (pppoat_module_ops) is reformulated here as a Go
// interface, per DESIGN NOTES' "polymorphic trait/interface dispatch"
// option: the module set is closed at build time (stdio, pppd, tun,
// tap, udp, http, xmpp) but an interface keeps internal/pipeline free
// of a dependency on every concrete module package.
package module

import (
	"context"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/packet"
)

// Kind is a module's type: interface, transport, or plugin.
type Kind int

const (
	Unknown Kind = iota
	Interface
	Transport
	Plugin
)

func (k Kind) String() string {
	switch k {
	case Interface:
		return "interface"
	case Transport:
		return "transport"
	case Plugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Stage is the vtable every module implements. Process realises the
// contract table from spec.md §4.2:
//
//	in == nil,  out != nil  -> module produced a new packet (poll success)
//	in == nil,  out == nil  -> nothing available this instant
//	in != nil,  out != nil  -> in consumed, out produced
//	in != nil,  out == nil  -> in consumed, nothing produced
//
// Ownership: in, if non-nil, transfers to the callee on entry and the
// callee disposes of it on every return path, success or error —
// released back to the pool, returned as part of the result, or
// retained (e.g. queued for later send). The caller never releases in
// itself, on any path; the caller owns whatever out is returned and
// releases any partial out the callee placed in the returned value on
// an error return.
//
// A blocking stage's Process may suspend indefinitely inside Run- or
// Process-scoped I/O; it must watch ctx.Done() as the Go reformulation
// of thread cancellation (DESIGN NOTES). A non-blocking stage's
// Process must never suspend.
type Stage interface {
	Name() string
	Kind() Kind
	Blocking() bool

	Init(conf *config.Store, pool *packet.Pool) error
	Fini()

	// Run arms the stage's I/O (e.g. starts a reader goroutine for
	// interface modules, dials/listens for transports). ctx is
	// cancelled by Stop.
	Run(ctx context.Context) error
	// Stop disarms the stage; must be idempotent-safe when called
	// from a goroutine other than Run's caller.
	Stop() error

	Process(ctx context.Context, in *packet.Packet) (*packet.Packet, error)

	MTU() int
}
