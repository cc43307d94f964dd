//go:build !xmpp

package transport

// XMPPUnavailable is a message describing a binary built without the
// xmpp tag: the stanza transport is optional, compiled in only when an
// XMPP client library is available. No code path returns it; in such a
// build the app registry reports "xmpp" as an unknown module.
const XMPPUnavailable = "xmpp: not compiled in (build with -tags xmpp)"
