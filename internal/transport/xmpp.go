//go:build xmpp

package transport

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"mellium.im/xmpp"
	"mellium.im/xmpp/dial"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/mux"
	"mellium.im/xmpp/stanza"

	"github.com/pasis/pppoat2/internal/codec"
	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
	"github.com/pasis/pppoat2/internal/queue"
)

// xmppMTU is the XMPP transport's declared MTU, sized to the
// chat-message body budget rather than a link MTU.
const xmppMTU = 3500

// xmppLoopTimeout and xmppReconnectPeriod mirror tp_xmpp.c's
// XMPP_LOOP_TIMEOUT and XMPP_RECONNECT_PERIOD.
const (
	xmppLoopTimeout     = 500 * time.Millisecond
	xmppReconnectPeriod = 5 * time.Second
)

// xmppNSDelay91/203 are the delayed-delivery namespaces tp_xmpp.c
// filters: messages carrying either are dropped (they are history
// replay, not live traffic).
const (
	xmppNSDelay91  = "jabber:x:delay"
	xmppNSDelay203 = "urn:xmpp:delay"
)

// XMPP is the stanza-based transport, compiled in only under the xmpp
// build tag: optional, present when an XMPP client library is
// available. Grounded on
// original_source/src/modules/tp_xmpp.c: tp_xmpp_ctx's send/recv
// queues become queue.Queue, the libstrophe connection handler's
// reconnect-on-disconnect loop becomes connectLoop, and
// tp_xmpp_message_handler's delayed-stanza filter becomes isDelayed.
//
// mellium.im/xmpp stands in for the original's libstrophe dependency
// (DESIGN.md: named, not grounded — no XMPP library appears elsewhere
// in the retrieval pack). Its session/mux API is used the way its own
// documentation describes session establishment and stanza dispatch;
// nothing here is copied from another repo in the pack.
type XMPP struct {
	log *logrus.Entry

	pool *packet.Pool

	jidStr   string
	passwd   string
	remote   string
	isServer bool

	sendQ *queue.Queue
	recvQ *queue.Queue

	mu        sync.Mutex
	connected bool
	session   *xmpp.Session

	wakeup chan struct{}
	done   chan struct{}
}

// NewXMPP returns a new, uninitialised XMPP transport module.
func NewXMPP() *XMPP {
	return &XMPP{
		log:    logrus.WithField("module", "xmpp"),
		sendQ:  queue.New(),
		recvQ:  queue.New(),
		wakeup: make(chan struct{}, 1),
	}
}

func (x *XMPP) Name() string      { return "xmpp" }
func (x *XMPP) Kind() module.Kind { return module.Transport }

// Blocking reports false: like the HTTP transport, the original
// is flagged blocking at the C level but its process() call
// (tp_xmpp_process) is a pure queue push/pop that never itself
// suspends — the actual event-loop I/O runs on the goroutine started
// by Run.
func (x *XMPP) Blocking() bool { return false }
func (x *XMPP) MTU() int       { return xmppMTU }

// Init reads xmpp.jid/xmpp.passwd/xmpp.remote, mirroring
// tp_xmpp_conf_parse: xmpp.remote may be omitted on the server side.
func (x *XMPP) Init(conf *config.Store, pool *packet.Pool) error {
	x.pool = pool

	server, err := conf.FindBool("server")
	x.isServer = err == nil && server

	x.remote = conf.FindStringDefault("xmpp.remote", "")

	jidStr, err := conf.FindString("xmpp.jid")
	if err != nil {
		return fmt.Errorf("xmpp: 'xmpp.jid' is mandatory: %w", err)
	}
	x.jidStr = jidStr

	passwd, err := conf.FindString("xmpp.passwd")
	if err != nil {
		return fmt.Errorf("xmpp: 'xmpp.passwd' is mandatory: %w", err)
	}
	x.passwd = passwd

	return nil
}

func (x *XMPP) Fini() {
	for pkt := x.recvQ.Dequeue(); pkt != nil; pkt = x.recvQ.Dequeue() {
		x.pool.Put(pkt)
	}
	for pkt := x.sendQ.Dequeue(); pkt != nil; pkt = x.sendQ.Dequeue() {
		x.pool.Put(pkt)
	}
}

// Run starts the connection/event-loop goroutine. Mirrors
// tp_xmpp_run: connect, register the message handler, and drive
// the stanza read loop on a timer from a dedicated worker.
func (x *XMPP) Run(ctx context.Context) error {
	x.done = make(chan struct{})
	go x.connectLoop(ctx)
	return nil
}

func (x *XMPP) Stop() error {
	x.mu.Lock()
	if x.session != nil {
		_ = x.session.Close()
	}
	x.mu.Unlock()
	if x.done != nil {
		<-x.done
	}
	return nil
}

// connectLoop is the worker equivalent of tp_xmpp_worker: dial and
// establish a session, serve incoming stanzas until the session
// drops, then wait xmppReconnectPeriod and retry, until ctx is
// cancelled: a reconnect-on-disconnect policy with a 5s periodic
// timer.
func (x *XMPP) connectLoop(ctx context.Context) {
	defer close(x.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := x.connectOnce(ctx); err != nil {
			x.log.WithError(err).Info("xmpp connection lost, reconnecting")
		}

		x.mu.Lock()
		x.connected = false
		x.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(xmppReconnectPeriod):
		}
	}
}

func (x *XMPP) connectOnce(ctx context.Context) error {
	j, err := jid.Parse(x.jidStr)
	if err != nil {
		return fmt.Errorf("xmpp: parse jid: %w", err)
	}

	conn, err := dial.Client(ctx, "tcp", j)
	if err != nil {
		return fmt.Errorf("xmpp: dial: %w", err)
	}

	session, err := xmpp.NewSession(ctx, j.Domain(), j, conn, 0,
		xmpp.NewNegotiator(xmpp.StreamConfig{
			Features: []xmpp.StreamFeature{
				xmpp.BindResource(),
				xmpp.StartTLS(&tls.Config{ServerName: j.Domain().String()}),
				xmpp.SASL("", x.passwd, xmpp.SASLPlain),
			},
		}))
	if err != nil {
		return fmt.Errorf("xmpp: negotiate session: %w", err)
	}

	x.mu.Lock()
	x.session = session
	x.connected = true
	x.mu.Unlock()

	x.log.Info("xmpp session established")

	handler := mux.New(stanza.NSClient,
		mux.MessageFunc("chat", xmppBodyName, x.handleMessage),
	)

	go x.sendLoop(ctx, session)

	return session.Serve(handler)
}

// sendLoop drains sendQ onto the live session at xmppLoopTimeout
// cadence, mirroring tp_xmpp_worker's xmpp_run_once/send-queue-drain
// pairing.
func (x *XMPP) sendLoop(ctx context.Context, session *xmpp.Session) {
	ticker := time.NewTicker(xmppLoopTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-x.wakeup:
		case <-ticker.C:
		}

		x.mu.Lock()
		connected := x.connected
		x.mu.Unlock()
		if !connected {
			return
		}

		for {
			pkt := x.sendQ.Dequeue()
			if pkt == nil {
				break
			}
			if err := x.sendPacket(session, pkt); err != nil {
				x.log.WithError(err).Error("xmpp send failed")
			}
			x.pool.Put(pkt)
		}
	}
}

// sendPacket mirrors tp_xmpp_send: a chat message to x.remote whose
// body is base64(frame).
func (x *XMPP) sendPacket(session *xmpp.Session, pkt *packet.Packet) error {
	msg := stanza.Message{
		To:   mustParseOrEmpty(x.remote),
		Type: stanza.ChatMessage,
	}
	body := codec.Encode(pkt.Bytes())
	return session.Encode(context.Background(), struct {
		stanza.Message
		Body string `xml:"body"`
	}{Message: msg, Body: body})
}

func mustParseOrEmpty(s string) jid.JID {
	if s == "" {
		return jid.JID{}
	}
	j, err := jid.Parse(s)
	if err != nil {
		return jid.JID{}
	}
	return j
}

var xmppBodyName = xml.Name{Local: "body"}

// handleMessage is tp_xmpp_message_handler's reformulation: drop
// delayed (XEP-0091/0203) stanzas, base64-decode the body, and enqueue
// a RECV packet. Preserves the original's lack of peer-jid filtering
// even when xmpp.remote is set (see DESIGN.md).
func (x *XMPP) handleMessage(msg stanza.Message, body string) error {
	if isDelayed(body) {
		return nil
	}

	raw, err := codec.Decode(strings.TrimSpace(body))
	if err != nil {
		x.log.WithError(err).Info("malformed base64 body, message dropped")
		return nil
	}

	pkt, err := x.pool.Get(len(raw))
	if err != nil {
		return nil
	}
	copy(pkt.Bytes(), raw)
	pkt.Direction = packet.Recv
	x.recvQ.Enqueue(pkt)
	return nil
}

// isDelayed reports whether a raw stanza fragment carries a delayed-
// delivery marker (XEP-0091 or XEP-0203), per tp_xmpp.c's filter.
func isDelayed(raw string) bool {
	return strings.Contains(raw, xmppNSDelay91) || strings.Contains(raw, xmppNSDelay203)
}

// Process implements the queue interface: in == nil dequeues recvQ;
// in != nil enqueues to sendQ and wakes the send loop, mirroring
// tp_xmpp_process.
func (x *XMPP) Process(_ context.Context, in *packet.Packet) (*packet.Packet, error) {
	if in == nil {
		return x.recvQ.Dequeue(), nil
	}

	x.sendQ.Enqueue(in)
	select {
	case x.wakeup <- struct{}{}:
	default:
	}
	return nil, nil
}
