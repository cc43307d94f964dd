// Package app wires the registered interface and transport modules
// into a running pipeline: config loading, module selection, the
// --list enumeration, and the signal-driven start/stop discipline
// described in spec.md §5 and §6.
//
// Grounded on original_source/src/pppoat.c's module-table registration
// (pppoat_modules_interface, pppoat_modules_transport) and
// original_source/src/main.c's argv/signal wiring; the teacher's
// cmd/vcs/main.go supplies the cobra-based CLI shape this package's
// caller (cmd/pppoat) follows.
package app

import (
	"fmt"
	"sort"

	"github.com/pasis/pppoat2/internal/iface"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/transport"
)

// factory builds a fresh, uninitialised module.Stage, paired with the
// one-line description --list prints next to its name (mirroring
// mod_descr in the original's module table).
type factory struct {
	name string
	desc string
	new  func() module.Stage
}

// interfaceFactories lists every compiled-in interface module, in
// registration order. pppd/stdio are always available; tun/tap are
// available on every platform (tuntapOpen itself reports "not
// supported" on platforms without a backend, mirroring the original's
// single compiled table rather than conditional registration).
var interfaceFactories = []factory{
	{name: "pppd", desc: "spawn a pppd daemon over a pair of pipes", new: func() module.Stage { return iface.NewPPPD() }},
	{name: "stdio", desc: "read/write frames on stdin/stdout", new: func() module.Stage { return iface.NewStdio() }},
	{name: "tun", desc: "read/write frames on a TUN device", new: iface.NewTun},
	{name: "tap", desc: "read/write frames on a TAP device", new: iface.NewTap},
}

// transportFactories lists every compiled-in transport module. xmpp is
// appended by registerXMPP, defined in app_xmpp.go (build tag xmpp) or
// app_noxmpp.go (its absence), mirroring the original's optional
// libstrophe-gated compilation of tp_xmpp.c.
var transportFactories = []factory{
	{name: "udp", desc: "carry frames as UDP datagrams", new: func() module.Stage { return transport.NewUDP() }},
	{name: "http", desc: "carry frames over HTTP (normal or side-channel framing)", new: func() module.Stage { return transport.NewHTTP() }},
}

func init() {
	registerXMPP()
}

func findFactory(list []factory, name string) (factory, error) {
	for _, f := range list {
		if f.name == name {
			return f, nil
		}
	}
	return factory{}, fmt.Errorf("app: unknown module %q", name)
}

// NewInterface instantiates the named interface module.
func NewInterface(name string) (module.Stage, error) {
	f, err := findFactory(interfaceFactories, name)
	if err != nil {
		return nil, err
	}
	return f.new(), nil
}

// NewTransport instantiates the named transport module.
func NewTransport(name string) (module.Stage, error) {
	f, err := findFactory(transportFactories, name)
	if err != nil {
		return nil, err
	}
	return f.new(), nil
}

// ListModules returns "name\tdescription" lines for every registered
// interface module followed by every registered transport module,
// satisfying the -l/--list SUPPLEMENTED feature (SPEC_FULL.md §2C).
func ListModules() []string {
	var lines []string
	for _, group := range [][]factory{interfaceFactories, transportFactories} {
		names := make([]factory, len(group))
		copy(names, group)
		sort.SliceStable(names, func(i, j int) bool { return names[i].name < names[j].name })
		for _, f := range names {
			lines = append(lines, fmt.Sprintf("%s\t%s", f.name, f.desc))
		}
	}
	return lines
}
