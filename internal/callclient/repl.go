package callclient

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"asciisfu/internal/adapters"
	"asciisfu/internal/clientconfig"
	"asciisfu/internal/wire"
)

// frameTickInterval is the local-capture cadence during a call (spec §4.4:
// "target cadence ~100 Hz").
const frameTickInterval = 10 * time.Millisecond

// maxFrameBytes bounds the receive buffer for inbound media datagrams.
const maxFrameBytes = 4844

// errCallEnded marks a media loop exit caused by the peer's END_CALL, as
// opposed to a transport failure.
var errCallEnded = fmt.Errorf("callclient: call ended by peer")

// REPL drives the client-side call state machine (spec §4.4): the roster
// mirror, the command prompt, and the transition in and out of media mode.
type REPL struct {
	username  string
	mediaAddr string
	transport *Transport
	term      adapters.TerminalIO
	producer  adapters.FrameProducer
	consumer  adapters.FrameConsumer
	cfg       clientconfig.Config

	mirror                map[string]bool
	pendingOutgoingCallee string
	activePeer            string
}

// New builds a REPL bound to an already-logged-in transport.
func New(username, mediaAddr string, transport *Transport, term adapters.TerminalIO, producer adapters.FrameProducer, consumer adapters.FrameConsumer, cfg clientconfig.Config) *REPL {
	return &REPL{
		username:  username,
		mediaAddr: mediaAddr,
		transport: transport,
		term:      term,
		producer:  producer,
		consumer:  consumer,
		cfg:       cfg,
		mirror:    make(map[string]bool),
	}
}

// Login performs the HELLO handshake. It returns (true, nil) if the
// username was rejected as already taken — the caller should close the
// connection and surface that to the user rather than treat it as a Go
// error.
func Login(transport *Transport, username string) (taken bool, err error) {
	if err := transport.Send(wire.WithString(wire.HelloFromClient, username)); err != nil {
		return false, err
	}
	msg, ok := <-transport.Incoming()
	if !ok {
		return false, io.ErrUnexpectedEOF
	}
	switch msg.Cmd {
	case wire.HelloFromServer:
		return false, nil
	case wire.UsernameAlreadyTaken:
		return true, nil
	default:
		return false, fmt.Errorf("callclient: unexpected reply %d to HELLO", msg.Cmd)
	}
}

// Run executes the top-level REPL until the user quits, the connection
// closes, or ctx is canceled (spec §4.4 "event sources, all multiplexed").
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	lineErrs := make(chan error, 1)
	go func() {
		for {
			line, err := r.term.ReadLine(ctx)
			if err != nil {
				lineErrs <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-lineErrs:
			if err == io.EOF {
				return nil
			}
			return err

		case line := <-lines:
			if r.pendingOutgoingCallee != "" {
				// Gated off per spec while awaiting accept/deny.
				continue
			}
			quit, err := r.handleCommand(line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}

		case msg, ok := <-r.transport.Incoming():
			if !ok {
				return io.ErrUnexpectedEOF
			}
			if err := r.handleControl(ctx, msg); err != nil {
				return err
			}
		}

		if r.activePeer != "" {
			peer := r.activePeer
			if err := r.runMediaLoop(ctx, peer); err != nil && err != errCallEnded {
				return err
			}
			r.activePeer = ""
		}
	}
}

// handleCommand implements the REPL command table in spec §4.4.
func (r *REPL) handleCommand(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "l":
		if len(r.mirror) == 0 {
			r.term.Printf("no one else is online\n")
			break
		}
		for u := range r.mirror {
			r.term.Printf("%s\n", u)
		}

	case "c":
		if len(fields) < 2 {
			r.term.Printf("usage: c <user>\n")
			break
		}
		target := fields[1]
		if target == r.username {
			r.term.Printf("you cannot call yourself\n")
			break
		}
		if !r.mirror[target] {
			r.term.Printf("%s is not available\n", target)
			break
		}
		if err := r.transport.Send(wire.WithString(wire.RequestCall, target)); err != nil {
			return false, err
		}
		r.pendingOutgoingCallee = target

	case "q":
		return true, nil

	default:
		r.term.Printf("unknown command\n")
	}
	return false, nil
}

// handleControl implements the inbound control handling in spec §4.4.
func (r *REPL) handleControl(ctx context.Context, msg wire.Message) error {
	switch msg.Cmd {
	case wire.AddUser:
		r.mirror[msg.Str] = true

	case wire.RemoveUser:
		delete(r.mirror, msg.Str)

	case wire.RequestCall:
		return r.handleIncomingCall(ctx, msg.Str)

	case wire.DenyCall:
		if msg.Str == r.pendingOutgoingCallee {
			r.term.Printf("%s declined your call\n", msg.Str)
			r.pendingOutgoingCallee = ""
		}

	case wire.StartCall:
		r.pendingOutgoingCallee = ""
		r.activePeer = msg.Str

	default:
		return fmt.Errorf("callclient: unexpected control command %d", msg.Cmd)
	}
	return nil
}

// handleIncomingCall prompts for accept/deny unless auto-accept is
// configured, then drives the accepting side's own transition into media
// mode (spec §4.4: "on y/yes send START_CALL(u) and transition to media
// setup with active_peer = u").
func (r *REPL) handleIncomingCall(ctx context.Context, peer string) error {
	accept := r.cfg.AutoAcceptCalls
	if !accept {
		r.term.Printf("incoming call from %s, accept? [y/n] ", peer)
		line, err := r.term.ReadLine(ctx)
		if err != nil {
			return err
		}
		line = strings.ToLower(strings.TrimSpace(line))
		accept = line == "y" || line == "yes"
	}

	if accept {
		if err := r.transport.Send(wire.WithString(wire.StartCall, peer)); err != nil {
			return err
		}
		r.activePeer = peer
		return nil
	}
	return r.transport.Send(wire.WithString(wire.DenyCall, peer))
}

// runMediaLoop implements the media setup and three-way multiplex in
// spec §4.4.
func (r *REPL) runMediaLoop(ctx context.Context, peer string) error {
	if err := r.transport.Send(wire.WithString(wire.RequestCallStreamID, peer)); err != nil {
		return err
	}
	sid, err := r.awaitStreamID()
	if err != nil {
		return err
	}

	media, err := OpenMedia(sid, r.mediaAddr)
	if err != nil {
		return err
	}
	defer media.Close()
	if err := media.Register(); err != nil {
		return err
	}

	frames := make(chan []byte, 16)
	recvErrs := make(chan error, 1)
	go func() {
		buf := make([]byte, maxFrameBytes)
		for {
			n, err := media.Recv(buf)
			if err != nil {
				recvErrs <- err
				return
			}
			frame := append([]byte(nil), buf[:n]...)
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(frameTickInterval)
	defer ticker.Stop()

	r.term.Printf("in call with %s\n", peer)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-recvErrs:
			return err

		case frame := <-frames:
			r.consumer.RenderRemote(frame)

		case <-ticker.C:
			frame, err := r.producer.NextFrame(ctx)
			if err != nil {
				continue
			}
			r.consumer.RenderLocal(frame)
			_ = media.Send(frame)

		case msg, ok := <-r.transport.Incoming():
			if !ok {
				return io.ErrUnexpectedEOF
			}
			switch msg.Cmd {
			case wire.EndCall:
				r.term.Printf("call ended\n")
				return errCallEnded
			case wire.AddUser:
				r.mirror[msg.Str] = true
			case wire.RemoveUser:
				delete(r.mirror, msg.Str)
			default:
				// Reserved for future signalling; ignored per spec.
			}
		}
	}
}

// awaitStreamID drains non-sid control traffic while waiting for the
// server's reply to REQUEST_CALL_STREAM_ID.
func (r *REPL) awaitStreamID() (uint32, error) {
	for {
		msg, ok := <-r.transport.Incoming()
		if !ok {
			return 0, io.ErrUnexpectedEOF
		}
		switch msg.Cmd {
		case wire.SendCallStreamID:
			return msg.Sid, nil
		case wire.EndCall:
			return 0, errCallEnded
		case wire.AddUser:
			r.mirror[msg.Str] = true
		case wire.RemoveUser:
			delete(r.mirror, msg.Str)
		}
	}
}
