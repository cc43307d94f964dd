//go:build xmpp

package app

import (
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/transport"
)

// registerXMPP appends the xmpp transport when the binary is built
// with -tags xmpp, mirroring the original's conditional compilation of
// tp_xmpp.c against libstrophe.
func registerXMPP() {
	transportFactories = append(transportFactories, factory{
		name: "xmpp",
		desc: "carry frames as base64 XMPP chat messages",
		new:  func() module.Stage { return transport.NewXMPP() },
	})
}
