//go:build !xmpp

package app

// registerXMPP is a no-op: the xmpp transport is only compiled in
// under the xmpp build tag (spec.md §4.5 names it "optional, compiled
// in when a Strophe-equivalent client library is available").
func registerXMPP() {}
