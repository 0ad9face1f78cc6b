// Package callclient implements the client side of a call: the control
// connection plumbing, the media socket, and the REPL-driven state machine
// that ties them together (component 3 of the signalling design).
package callclient

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"

	"asciisfu/internal/wire"
)

// Transport owns the reliable control connection: a background goroutine
// reads frames off the wire and republishes them on Incoming, while Send
// writes are serialized onto the same connection by the caller (there is
// only ever one writer, the REPL loop).
type Transport struct {
	conn   net.Conn
	reader *bufio.Reader

	incoming chan wire.Message
	closed   chan struct{}
}

// Dial opens a control connection to addr and starts the read pump.
func Dial(ctx context.Context, addr string) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("callclient: dial %s: %w", addr, err)
	}
	return newTransport(conn), nil
}

// newTransport wraps an already-established connection, starting the read
// pump. Exposed to tests so the control stream can be a net.Pipe or other
// in-memory net.Conn instead of a real TCP dial.
func newTransport(conn net.Conn) *Transport {
	t := &Transport{
		conn:     conn,
		reader:   wire.NewReader(conn),
		incoming: make(chan wire.Message, 16),
		closed:   make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// readLoop decodes frames until the connection closes, then closes
// Incoming so range-consumers terminate.
func (t *Transport) readLoop() {
	defer close(t.incoming)
	for {
		msg, err := wire.ReadMessage(t.reader)
		if err != nil {
			slog.Debug("control read loop ending", "err", err)
			return
		}
		select {
		case t.incoming <- msg:
		case <-t.closed:
			return
		}
	}
}

// Incoming returns the channel of frames read from the server. Closed
// when the connection ends.
func (t *Transport) Incoming() <-chan wire.Message {
	return t.incoming
}

// Send writes a single frame to the server.
func (t *Transport) Send(m wire.Message) error {
	return wire.WriteMessage(t.conn, m)
}

// Close tears down the control connection.
func (t *Transport) Close() error {
	close(t.closed)
	return t.conn.Close()
}

// MediaSession is the unreliable per-call socket opened after a stream id
// exchange (spec §4.4 "media setup"). frames are sent and received with
// the 4-byte sid prefix already applied/stripped.
type MediaSession struct {
	sid  uint32
	conn *net.UDPConn
}

// OpenMedia resolves mediaAddr, binds an ephemeral local UDP socket, and
// returns a session that tags outgoing datagrams with sid.
func OpenMedia(sid uint32, mediaAddr string) (*MediaSession, error) {
	raddr, err := net.ResolveUDPAddr("udp", mediaAddr)
	if err != nil {
		return nil, fmt.Errorf("callclient: resolve media address %s: %w", mediaAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("callclient: dial media socket: %w", err)
	}
	return &MediaSession{sid: sid, conn: conn}, nil
}

// Send prefixes frame with the session's sid and writes it as one
// datagram (spec §4.3 step 1, §6 wire protocol on media transport).
func (m *MediaSession) Send(frame []byte) error {
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf[:4], m.sid)
	copy(buf[4:], frame)
	_, err := m.conn.Write(buf)
	return err
}

// Register sends a single sid-only datagram (empty payload) so the relay learns this
// session's source address before any real frame is sent (spec §4.3 step
// 2: "the register address packet").
func (m *MediaSession) Register() error {
	return m.Send(nil)
}

// Recv blocks for the next inbound datagram — already the bare peer
// payload, since the server strips any routing prefix before forwarding
// (spec §6: "every server→client datagram: payload only").
func (m *MediaSession) Recv(buf []byte) (int, error) {
	return m.conn.Read(buf)
}

// Close releases the media socket.
func (m *MediaSession) Close() error {
	return m.conn.Close()
}
