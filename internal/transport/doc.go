// Package transport implements the pipeline's transport-kind modules:
// udp (datagram), http (TCP, normal and side-channel framing) and,
// behind the "xmpp" build tag, xmpp (chat-message framing). Each
// module.Stage carries frames across the network to the peer process.
package transport
