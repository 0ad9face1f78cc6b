package signaling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"asciisfu/internal/wire"
)

// connState is the per-connection signalling state machine (§4.2).
type connState int

const (
	stateAnonymous connState = iota
	stateRegistered
	stateInCall
)

// Handler drives the server-side signalling state machine for one accepted
// control connection (component 4). It owns the connection's
// current_username slot and the receive end of its Outbox; it is the sole
// writer on its TCP connection, so writes are strictly ordered (§5).
type Handler struct {
	conn    net.Conn
	roster  *Roster
	calls   *CallRegistry
	outbox  *Outbox
	limiter *rate.Limiter
	logID   string

	state    connState
	username string // valid once state != stateAnonymous
	peer     string // valid once state == stateInCall
}

// NewHandler wires a Handler to an accepted connection and the shared
// roster/call registry.
func NewHandler(conn net.Conn, roster *Roster, calls *CallRegistry) *Handler {
	return &Handler{
		conn:    conn,
		roster:  roster,
		calls:   calls,
		outbox:  NewOutbox(),
		limiter: rate.NewLimiter(rate.Limit(rateLimitPerSecond), rateLimitBurst),
		logID:   uuid.New().String()[:8],
		state:   stateAnonymous,
	}
}

type readResult struct {
	msg wire.Message
	err error
}

// Run drives the handler until the connection closes or an unrecoverable
// protocol error occurs, then performs cleanup (§4.2 disconnect path, §7).
// It returns the reason the handler stopped; io.EOF indicates clean
// closure.
func (h *Handler) Run(ctx context.Context) error {
	reads := make(chan readResult)
	go func() {
		r := wire.NewReader(h.conn)
		for {
			msg, err := wire.ReadMessage(r)
			select {
			case reads <- readResult{msg, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var stopErr error
loop:
	for {
		select {
		case <-ctx.Done():
			stopErr = ctx.Err()
			break loop

		case rr := <-reads:
			if rr.err != nil {
				stopErr = rr.err
				break loop
			}
			if !h.limiter.Allow() {
				slog.Warn("connection rate-limited", "conn", h.logID, "username", h.username)
				continue
			}
			if err := h.handleInbound(rr.msg); err != nil {
				stopErr = err
				break loop
			}

		case out := <-h.outbox.C():
			h.outbox.noteDrain()
			_ = h.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
			if err := wire.WriteMessage(h.conn, out); err != nil {
				stopErr = fmt.Errorf("writing queued message: %w", err)
				break loop
			}
		}
	}

	h.cleanup()
	return stopErr
}

func (h *Handler) handleInbound(msg wire.Message) error {
	switch h.state {
	case stateAnonymous:
		return h.handleAnonymous(msg)
	case stateRegistered, stateInCall:
		// The peer's START_CALL or the peer's disconnect changes this user's
		// call membership without passing through this handler, so the
		// Registered/InCall state is taken from the call registry.
		call, inCall := h.calls.FindByUser(h.username)
		if !inCall {
			h.state, h.peer = stateRegistered, ""
			return h.handleRegistered(msg)
		}
		h.state = stateInCall
		h.peer, _ = call.peerOf(h.username)
		if msg.Cmd == wire.StartCall {
			// startCall rejects the double start without closing the connection.
			return h.startCall(msg.Str)
		}
		return h.handleInCall(msg)
	default:
		return fmt.Errorf("signaling: unreachable state %d", h.state)
	}
}

func (h *Handler) handleAnonymous(msg wire.Message) error {
	if msg.Cmd != wire.HelloFromClient {
		return fmt.Errorf("signaling: protocol error: expected HELLO_FROM_CLIENT, got command %d", msg.Cmd)
	}
	username := msg.Str

	if !h.roster.Register(username, h.outbox) {
		return h.write(wire.Bare(wire.UsernameAlreadyTaken))
	}

	h.username = username
	h.state = stateRegistered
	slog.Info("hello accepted", "conn", h.logID, "username", username)

	if err := h.write(wire.Bare(wire.HelloFromServer)); err != nil {
		return err
	}

	// Advertise the new arrival to every other registered, not-in-call
	// user, and advertise those users back to the new arrival. Users
	// currently in a Call are hidden from (and do not learn about) new
	// arrivals until their Call ends (§4.2, §9).
	for _, other := range h.roster.Usernames() {
		if other == username || h.calls.InCall(other) {
			continue
		}
		if ob, ok := h.roster.Lookup(other); ok {
			ob.Push(wire.WithString(wire.AddUser, username))
		}
		if err := h.write(wire.WithString(wire.AddUser, other)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) handleRegistered(msg wire.Message) error {
	switch msg.Cmd {
	case wire.RequestCall:
		return h.routeToPeer(msg.Str, wire.RequestCall)

	case wire.DenyCall:
		return h.routeToPeer(msg.Str, wire.DenyCall)

	case wire.StartCall:
		return h.startCall(msg.Str)

	case wire.HelloFromClient:
		return fmt.Errorf("signaling: protocol error: HELLO_FROM_CLIENT while already registered")

	default:
		return fmt.Errorf("signaling: protocol error: unexpected command %d while Registered", msg.Cmd)
	}
}

func (h *Handler) handleInCall(msg wire.Message) error {
	switch msg.Cmd {
	case wire.RequestCallStreamID:
		return h.sendStreamID(msg.Str)
	default:
		return fmt.Errorf("signaling: protocol error: unexpected command %d while InCall", msg.Cmd)
	}
}

// routeToPeer forwards a REQUEST_CALL or DENY_CALL frame (carrying the
// sender's own username, per §4.1) onto v's outbox. An unknown v is
// InvalidUsername (§4.2): unlike InvalidPeer/CallNotFound (§7), that case
// is called out as one where the connection stays open, so it is logged
// rather than returned as a fatal error.
func (h *Handler) routeToPeer(v string, cmd byte) error {
	if v == h.username {
		return fmt.Errorf("signaling: invalid peer: cannot target self")
	}
	ob, ok := h.roster.Lookup(v)
	if !ok {
		slog.Warn("invalid username in routed command", "conn", h.logID, "username", h.username, "target", v, "cmd", cmd)
		return nil
	}
	ob.Push(wire.WithString(cmd, h.username))
	return nil
}

func (h *Handler) startCall(v string) error {
	if v == h.username {
		return fmt.Errorf("signaling: invalid peer: cannot call self")
	}
	if h.calls.InCall(h.username) {
		// Open question resolved against the original's permissive
		// behavior (§9): reject a second START_CALL instead of creating a
		// second Call. The connection stays open; no Call is created.
		slog.Warn("rejected start_call: caller already in a call", "conn", h.logID, "username", h.username)
		return nil
	}
	peerOb, ok := h.roster.Lookup(v)
	if !ok {
		return fmt.Errorf("signaling: invalid username %q", v)
	}
	if h.calls.InCall(v) {
		slog.Warn("rejected start_call: callee already in a call", "conn", h.logID, "peer", v)
		return nil
	}

	h.calls.Create(h.username, v)

	// Hide both participants from every other registered user.
	for _, w := range h.roster.Usernames() {
		if w == h.username || w == v {
			continue
		}
		if ob, ok := h.roster.Lookup(w); ok {
			ob.Push(wire.WithString(wire.RemoveUser, h.username))
			ob.Push(wire.WithString(wire.RemoveUser, v))
		}
	}

	peerOb.Push(wire.WithString(wire.StartCall, h.username))

	h.state = stateInCall
	h.peer = v
	slog.Info("call started", "conn", h.logID, "caller", h.username, "callee", v)
	return nil
}

func (h *Handler) sendStreamID(v string) error {
	call, ok := h.calls.FindByUser(h.username)
	if !ok {
		return fmt.Errorf("signaling: call not found for %q", h.username)
	}
	peer, ok := call.peerOf(h.username)
	if !ok || peer != v {
		return fmt.Errorf("signaling: invalid peer %q", v)
	}
	sid, ok := h.calls.RequestSid(call, h.username)
	if !ok {
		return fmt.Errorf("signaling: %q is not a participant of its own call", h.username)
	}
	return h.write(wire.WithSid(sid))
}

func (h *Handler) write(m wire.Message) error {
	_ = h.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	return wire.WriteMessage(h.conn, m)
}

// cleanup runs the disconnect path regardless of how Run stopped: remove
// the user from the roster, broadcast REMOVE_USER, and tear down any Call
// the user belonged to (§4.2, §7, §8 scenario 6).
func (h *Handler) cleanup() {
	if h.username == "" {
		return
	}
	h.roster.Unregister(h.username, h.outbox)

	for _, other := range h.roster.Usernames() {
		if ob, ok := h.roster.Lookup(other); ok {
			ob.Push(wire.WithString(wire.RemoveUser, h.username))
		}
	}

	if call, ok := h.calls.FindByUser(h.username); ok {
		for u := range call.Participants {
			if ob, ok := h.roster.Lookup(u); ok {
				ob.Push(wire.Bare(wire.EndCall))
			}
		}
		h.calls.Remove(call)

		// The surviving participant returns to the advertisable roster;
		// tell everyone else it is available again (§8 scenario 6).
		if peer, ok := call.peerOf(h.username); ok {
			if _, stillHere := h.roster.Lookup(peer); stillHere {
				for _, other := range h.roster.Usernames() {
					if other == peer {
						continue
					}
					if ob, ok := h.roster.Lookup(other); ok {
						ob.Push(wire.WithString(wire.AddUser, peer))
					}
				}
			}
		}
	}

	slog.Info("connection closed", "conn", h.logID, "username", h.username)
}

// isCleanClosure reports whether err represents ordinary transport
// closure rather than a protocol violation (§7 TransportClosed vs
// MalformedFrame).
func isCleanClosure(err error) bool {
	return err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
