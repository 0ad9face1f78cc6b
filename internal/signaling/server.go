package signaling

import (
	"context"
	"errors"
	"log/slog"
	"net"
)

// Server accepts control connections on a reliable listener and spawns one
// Handler per connection, all sharing the same Roster and CallRegistry.
type Server struct {
	Roster *Roster
	Calls  *CallRegistry

	ln net.Listener
}

// NewServer constructs a Server bound to addr (see wire.DefaultControlPort).
func NewServer(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		Roster: NewRoster(),
		Calls:  NewCallRegistry(),
		ln:     ln,
	}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Run accepts connections until ctx is canceled or the listener fails. Each
// accepted connection is handled in its own goroutine and does not block
// the accept loop.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.serve(ctx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	h := NewHandler(conn, s.Roster, s.Calls)
	if err := h.Run(ctx); err != nil && !isCleanClosure(err) {
		slog.Warn("connection terminated", "remote", conn.RemoteAddr(), "err", err)
	}
}
