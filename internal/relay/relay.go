// Package relay implements the server-side media relay (component 6): a
// single long-running task that owns the shared media socket and the
// StreamId → PeerAddress binding table, pairing sids via the active call
// registry and forwarding datagrams byte-for-byte.
package relay

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"asciisfu/internal/signaling"
)

// sidHeaderLen is the fixed-size routing prefix stripped from every
// client→server datagram (§1, §6).
const sidHeaderLen = 4

// maxDatagram bounds the receive buffer; recommended large enough for an
// MTU-safe ASCII frame payload (§6).
const maxDatagram = 4844

// Relay owns the StreamId → last-observed-source-address table and the UDP
// socket it relays over.
type Relay struct {
	calls *signaling.CallRegistry

	mu        sync.Mutex
	addrOf    map[uint32]*net.UDPAddr
	datagrams atomic.Uint64
	bytes     atomic.Uint64
	dropped   atomic.Uint64
}

// New returns a Relay that pairs sids via calls.
func New(calls *signaling.CallRegistry) *Relay {
	return &Relay{
		calls:  calls,
		addrOf: make(map[uint32]*net.UDPAddr),
	}
}

// Run listens on addr and relays datagrams until ctx is canceled.
func (r *Relay) Run(ctx context.Context, addr string) error {
	conn, err := net.ListenUDP("udp", mustResolveUDP(addr))
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("relay read failed", "err", err)
			continue
		}
		r.handleDatagram(conn, buf[:n], src)
	}
}

// handleDatagram implements the three-step relay rule in §4.3.
func (r *Relay) handleDatagram(conn *net.UDPConn, datagram []byte, src *net.UDPAddr) {
	if len(datagram) < sidHeaderLen {
		return
	}
	sid := binary.BigEndian.Uint32(datagram[:sidHeaderLen])
	payload := datagram[sidHeaderLen:]

	if r.registerIfUnknown(sid, src) {
		// First datagram carrying this sid: register its address and stop.
		return
	}

	peerSid, ok := signaling.PeerSid(r.calls.Snapshot(), sid)
	if !ok {
		r.dropped.Add(1)
		return
	}
	peerAddr, ok := r.lookupAddr(peerSid)
	if !ok {
		r.dropped.Add(1)
		return
	}

	if _, err := conn.WriteToUDP(payload, peerAddr); err != nil {
		slog.Debug("relay forward failed", "sid", sid, "err", err)
		return
	}
	r.datagrams.Add(1)
	r.bytes.Add(uint64(len(payload)))
}

// registerIfUnknown binds sid to src the first time sid is seen, returning
// true in that case so the caller treats the datagram as a pure
// registration packet (§4.3 step 2).
func (r *Relay) registerIfUnknown(sid uint32, src *net.UDPAddr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.addrOf[sid]; known {
		return false
	}
	r.addrOf[sid] = src
	return true
}

func (r *Relay) lookupAddr(sid uint32) (*net.UDPAddr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.addrOf[sid]
	return addr, ok
}

// Stats returns cumulative forwarded-datagram count, forwarded byte count,
// and dropped-datagram count since process start.
func (r *Relay) Stats() (datagrams, bytes, dropped uint64) {
	return r.datagrams.Load(), r.bytes.Load(), r.dropped.Load()
}

func mustResolveUDP(addr string) *net.UDPAddr {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		// addr is a compile-time-constructed flag default or validated CLI
		// input; a malformed value here is a configuration bug, not a
		// runtime condition callers can recover from.
		panic("relay: invalid listen address " + addr + ": " + err.Error())
	}
	return a
}
