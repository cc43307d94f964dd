// Package transport implements the network-facing pipeline stages:
// udp, http (normal and side-channel framing) and, with the xmpp build
// tag, xmpp.
package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pasis/pppoat2/internal/codec"
	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
	"github.com/pasis/pppoat2/internal/queue"
)

// httpMTU is the HTTP transport's declared MTU (spec.md §4.5).
const httpMTU = 1500

// httpPort is the fixed TCP port both client and server use, per
// tp_http_listen/tp_http_connect_single in the original.
const httpPort = 8080

const (
	httpServerMaxData = 16 // tp_http.c's HTTP_SERVER_MAX_DATA
	httpClientMaxData = 16 // tp_http.c's HTTP_CLIENT_MAX_DATA
)

// HTTP is the HTTP-framed transport, in its "normal" (base64 body) and
// "side-channel" (header-smuggled) variants, selected by
// http.side_channel. Grounded on
// original_source/src/modules/tp_http.c: tp_http_ctx becomes HTTP's
// fields, the two accepted/dialled TCP connections become conns[0]/
// conns[1], and the pipe-based stop signal becomes a Go context
// cancellation observed by a reader goroutine per connection.
//
// Classified Blocking() == false (SPEC_FULL.md §4.5's resolution of
// the HTTP Open Question): Process never reads from a socket; it drains
// recvQ or fills sendQ, both mutex-guarded, and when the connection is
// idle it also writes the first queued frame to the socket directly.
// All socket reads, and the replies they trigger, run on the
// goroutines started by Run.
type HTTP struct {
	log *logrus.Entry

	pool *packet.Pool

	server      bool
	sideChannel bool
	remote      string

	listener net.Listener
	conns    [2]net.Conn

	sendQ *queue.Queue
	recvQ *queue.Queue

	mu         sync.Mutex
	sendReady  bool
	sendOffset int

	recvPkt    *packet.Packet
	recvOffset int

	wg sync.WaitGroup
}

// NewHTTP returns a new, uninitialised HTTP transport module.
func NewHTTP() *HTTP {
	return &HTTP{
		log:   logrus.WithField("module", "http"),
		sendQ: queue.New(),
		recvQ: queue.New(),
	}
}

func (h *HTTP) Name() string      { return "http" }
func (h *HTTP) Kind() module.Kind { return module.Transport }
func (h *HTTP) Blocking() bool    { return false }
func (h *HTTP) MTU() int          { return httpMTU }

// Init reads server/http.side_channel/http.remote, mirroring
// tp_http_init's conf parsing: http.remote is mandatory for a client
// (thc_is_server false), optional (ignored) for a server.
func (h *HTTP) Init(conf *config.Store, pool *packet.Pool) error {
	h.pool = pool

	server, err := conf.FindBool("server")
	h.server = err == nil && server

	sc, err := conf.FindBool("http.side_channel")
	h.sideChannel = err == nil && sc

	h.remote = conf.FindStringDefault("http.remote", "")
	if !h.server && h.remote == "" {
		return errors.New("http: 'http.remote' is mandatory for a client")
	}

	h.sendReady = !h.server

	return nil
}

func (h *HTTP) Fini() {
	if h.recvPkt != nil {
		h.pool.Put(h.recvPkt)
		h.recvPkt = nil
	}
	for pkt := h.recvQ.Dequeue(); pkt != nil; pkt = h.recvQ.Dequeue() {
		h.pool.Put(pkt)
	}
	for pkt := h.sendQ.Dequeue(); pkt != nil; pkt = h.sendQ.Dequeue() {
		h.pool.Put(pkt)
	}
}

// Run establishes both TCP connections (tp_http_listen+tp_http_accept
// for a server, two dials for a client) and starts one independent
// reader goroutine per connection. A client also sends the initial GET
// on its second connection, as tp_http_worker does before entering its
// poll loop; a server sends nothing until a request arrives.
func (h *HTTP) Run(ctx context.Context) error {
	if h.server {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", httpPort))
		if err != nil {
			return fmt.Errorf("http: listen: %w", err)
		}
		h.listener = ln
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return fmt.Errorf("http: accept: %w", err)
			}
			h.conns[i] = conn
		}
	} else {
		for i := 0; i < 2; i++ {
			conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", h.remote, httpPort))
			if err != nil {
				for j := 0; j < i; j++ {
					h.conns[j].Close()
				}
				return fmt.Errorf("http: dial: %w", err)
			}
			h.conns[i] = conn
		}
	}
	h.log.Debug("both TCP connections established")

	h.wg.Add(2)
	go h.readLoop(ctx, h.conns[0])
	go h.readLoop(ctx, h.conns[1])

	if !h.server {
		h.sendGet(h.conns[1])
	}

	return nil
}

func (h *HTTP) Stop() error {
	for _, c := range h.conns {
		if c != nil {
			_ = c.Close()
		}
	}
	if h.listener != nil {
		_ = h.listener.Close()
	}
	h.wg.Wait()
	return nil
}

// readLoop is tp_http_worker's per-connection half: read a buffer, hand
// it to recvBuf, and reply with either the next queued frame (no data
// arrived) or an ack (GET/200-OK), matching the original's "is_data"
// branch. conn.Read unblocks on Close, which is Stop's cancellation
// mechanism in place of thread-cancel.
func (h *HTTP) readLoop(ctx context.Context, conn net.Conn) {
	defer h.wg.Done()

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		isData := h.recvBuf(buf[:n])
		if !isData {
			h.sendNext(conn)
		} else if h.server {
			h.sendResp(conn)
		} else {
			h.sendGet(conn)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (h *HTTP) recvBuf(buf []byte) bool {
	if h.sideChannel {
		return h.recvBufSC(buf)
	}
	return h.recvBufNormal(buf)
}

// recvBufNormal mirrors tp_http_recv_buf_normal: a Content-Length
// header ahead of the blank line marks a data message; its body,
// everything after \r\n\r\n, is base64 of the frame.
func (h *HTTP) recvBufNormal(buf []byte) bool {
	msg := string(buf)
	idx := strings.Index(msg, "\r\n\r\n")
	if idx < 0 {
		return false
	}
	head, body := msg[:idx], msg[idx+4:]
	if !strings.Contains(head, "Content-Length:") || body == "" {
		return false
	}

	raw, err := codec.Decode(body)
	if err != nil {
		h.log.WithError(err).Info("malformed base64 body, message dropped")
		return false
	}

	pkt, err := h.pool.Get(len(raw))
	if err != nil {
		return false
	}
	copy(pkt.Bytes(), raw)
	pkt.Direction = packet.Recv
	h.recvQ.Enqueue(pkt)
	return true
}

const (
	httpClientSizeField = "GET /index.php?s="
	httpSetCookieField  = "Set-Cookie: "
	httpAuthField       = "Authorization: "
)

// recvBufSC mirrors tp_http_recv_buf_sc's line-by-line header scan:
// the first fragment carries the total size (client's "?s=" query
// param, server's cookie "H="), and every fragment (client's
// Authorization header, server's cookie "ID=") carries up to
// httpClientMaxData/httpServerMaxData bytes of the frame, reassembled
// by offset until recvOffset reaches the announced total size.
func (h *HTTP) recvBufSC(buf []byte) bool {
	msg := string(buf)
	idx := strings.Index(msg, "\r\n\r\n")
	if idx < 0 {
		return false
	}
	head := msg[:idx]

	h.mu.Lock()
	defer h.mu.Unlock()

	size := 0
	for _, line := range strings.Split(head, "\r\n") {
		switch {
		case strings.HasPrefix(line, httpClientSizeField):
			start := strings.Index(line, "?s=") + 3
			end := strings.Index(line[start:], " ")
			if end < 0 {
				continue
			}
			total := decodeBE32(line[start : start+end])
			h.newRecvPkt(total)
		case strings.HasPrefix(line, httpSetCookieField):
			if start := strings.Index(line, " H="); start >= 0 {
				start += 3
				end := strings.Index(line[start:], ";")
				if end >= 0 {
					total := decodeBE32(line[start : start+end])
					h.newRecvPkt(total)
				}
			}
			if start := strings.Index(line, " ID="); start >= 0 && h.recvPkt != nil {
				start += 4
				end := strings.Index(line[start:], ";")
				if end >= 0 {
					size += h.appendChunk(line[start : start+end])
				}
			}
		case strings.HasPrefix(line, httpAuthField):
			if h.recvPkt != nil {
				chunk := strings.TrimPrefix(line, httpAuthField)
				size += h.appendChunk(chunk)
			}
		}
	}

	if h.recvPkt != nil && h.recvOffset >= h.recvPkt.Size() {
		h.recvQ.Enqueue(h.recvPkt)
		h.recvPkt = nil
		h.recvOffset = 0
	}
	return size != 0
}

// newRecvPkt starts reassembly of a size-announced frame; must be
// called with h.mu held.
func (h *HTTP) newRecvPkt(size int) {
	pkt, err := h.pool.Get(size)
	if err != nil {
		return
	}
	pkt.Direction = packet.Recv
	h.recvPkt = pkt
	h.recvOffset = 0
}

// appendChunk base64-decodes a side-channel chunk into recvPkt at
// recvOffset and advances it; must be called with h.mu held.
func (h *HTTP) appendChunk(b64 string) int {
	raw, err := codec.Decode(b64)
	if err != nil {
		return 0
	}
	n := copy(h.recvPkt.Bytes()[h.recvOffset:], raw)
	h.recvOffset += n
	return n
}

func decodeBE32(b64 string) int {
	raw, err := codec.Decode(b64)
	if err != nil || len(raw) < 4 {
		return 0
	}
	return int(binary.BigEndian.Uint32(raw))
}

func encodeBE32(n int) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	return codec.Encode(b[:])
}

func (h *HTTP) sendNext(conn net.Conn) {
	if h.sideChannel {
		h.sendNextSC(conn)
		return
	}
	h.sendNextNormal(conn)
}

// sendNextNormal mirrors tp_http_send_next_normal: dequeue the next
// outbound frame (if any), frame it as a POST (client) or 200 OK
// (server) with a Content-Length header and a base64 body.
func (h *HTTP) sendNextNormal(conn net.Conn) {
	pkt := h.sendQ.Dequeue()

	h.mu.Lock()
	h.sendReady = pkt == nil
	h.mu.Unlock()

	if pkt == nil {
		return
	}

	body := codec.Encode(pkt.Bytes())
	h.pool.Put(pkt)

	var buf bytes.Buffer
	if h.server {
		buf.WriteString("HTTP/1.1 200 OK\r\n")
	} else {
		buf.WriteString("POST / HTTP/1.1\r\n")
	}
	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(body)))
	buf.WriteString("\r\n\r\n")
	buf.WriteString(body)

	h.writeSync(conn, buf.Bytes())
}

func (h *HTTP) sendNextSC(conn net.Conn) {
	h.mu.Lock()
	pkt := h.sendQ.Front()
	h.sendReady = pkt == nil
	h.mu.Unlock()
	if pkt == nil {
		return
	}

	if h.server {
		h.sendServerSC(conn, pkt)
	} else {
		h.sendClientSC(conn, pkt)
	}
}

// sendClientSC mirrors tp_http_send_client_sc: the GET request path
// carries the total size on the first fragment; every fragment's
// Authorization header carries up to httpClientMaxData bytes.
func (h *HTTP) sendClientSC(conn net.Conn, pkt *packet.Packet) {
	h.mu.Lock()
	offset := h.sendOffset
	size := httpClientMaxData
	if rem := pkt.Size() - offset; rem < size {
		size = rem
	}
	chunk := pkt.Bytes()[offset : offset+size]

	var buf bytes.Buffer
	buf.WriteString("GET /index.php")
	if offset == 0 {
		buf.WriteString("?s=")
		buf.WriteString(encodeBE32(pkt.Size()))
	}
	buf.WriteString(" HTTP/1.1\r\n")
	buf.WriteString("Host: ")
	buf.WriteString(h.remote)
	buf.WriteString(":8080\r\n")
	buf.WriteString("User-Agent: Mozilla/5.0 (X11; Linux x86_64; rv:12.0) Gecko/20100101 Firefox/12.0\r\n")
	buf.WriteString("Authorization: ")
	buf.WriteString(codec.Encode(chunk))
	buf.WriteString("\r\n\r\n")

	offset += size
	done := offset >= pkt.Size()
	if done {
		h.sendOffset = 0
		h.sendQ.PopFront()
	} else {
		h.sendOffset = offset
	}
	h.mu.Unlock()

	h.writeSync(conn, buf.Bytes())
	if done {
		h.pool.Put(pkt)
	}
}

// sendServerSC mirrors tp_http_send_server_sc: the Set-Cookie header
// carries "H=" (total size, first fragment only) and "ID=" (this
// fragment's chunk, up to httpServerMaxData bytes), wrapped in a
// filler 200 OK body for camouflage.
func (h *HTTP) sendServerSC(conn net.Conn, pkt *packet.Packet) {
	h.mu.Lock()
	offset := h.sendOffset
	size := httpServerMaxData
	if rem := pkt.Size() - offset; rem < size {
		size = rem
	}
	chunk := pkt.Bytes()[offset : offset+size]

	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 200 OK\r\n")
	buf.WriteString("Set-Cookie: ")
	if offset == 0 {
		buf.WriteString("H=")
		buf.WriteString(encodeBE32(pkt.Size()))
		buf.WriteString("; ")
	}
	buf.WriteString("ID=")
	buf.WriteString(codec.Encode(chunk))
	buf.WriteString("; Max-Age=3600; Version=1\r\n")
	buf.WriteString("Server: nginx/0.8.54\r\n")
	buf.WriteString("Content-Type: text/html\r\n")
	buf.WriteString("Content-Length: 107\r\n\r\n")
	buf.WriteString("<html><head><title>Default page</title></head><body><center>" +
		"<h1>Server works!</h1></center></body></html>\r\n")

	offset += size
	done := offset >= pkt.Size()
	if done {
		h.sendOffset = 0
		h.sendQ.PopFront()
	} else {
		h.sendOffset = offset
	}
	h.mu.Unlock()

	h.writeSync(conn, buf.Bytes())
	if done {
		h.pool.Put(pkt)
	}
}

func (h *HTTP) sendGet(conn net.Conn) {
	h.writeSync(conn, []byte("GET / HTTP/1.1\r\n\r\n"))
}

func (h *HTTP) sendResp(conn net.Conn) {
	h.writeSync(conn, []byte("HTTP/1.1 200 OK\r\n\r\n"))
}

func (h *HTTP) writeSync(conn net.Conn, buf []byte) {
	if _, err := conn.Write(buf); err != nil {
		h.log.WithError(err).Error("write failed")
	}
}

// Process implements the non-blocking queue interface spec.md §4.5
// describes for HTTP in its resolved (Blocking()==false) form:
// in == nil drains recvQ, in != nil enqueues to sendQ and, if the
// connection is idle (sendReady), kicks off the first frame
// immediately the way tp_http_pkt_send does.
func (h *HTTP) Process(_ context.Context, in *packet.Packet) (*packet.Packet, error) {
	if in == nil {
		return h.recvQ.Dequeue(), nil
	}

	h.sendQ.Enqueue(in)

	h.mu.Lock()
	ready := h.sendReady
	h.mu.Unlock()

	if ready {
		conn := h.conns[0]
		if h.server {
			conn = h.conns[1]
		}
		h.sendNext(conn)
	}

	return nil, nil
}
