// Package adminapi exposes a small read-only HTTP status surface over the
// live signalling state: /health, /api/roster, /api/calls. It is purely an
// observability add-on — the control and media protocols function
// identically whether or not this server is running.
package adminapi

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"asciisfu/internal/relay"
	"asciisfu/internal/signaling"
)

// Server serves JSON snapshots of the roster, active calls, and relay
// throughput for operators.
type Server struct {
	roster *signaling.Roster
	calls  *signaling.CallRegistry
	relay  *relay.Relay
	echo   *echo.Echo
}

// New constructs a Server and registers its routes. relay may be nil if
// metrics are not yet available, in which case /api/calls reports zeroed
// relay counters.
func New(roster *signaling.Roster, calls *signaling.CallRegistry, r *relay.Relay) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[adminapi] %s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s := &Server{roster: roster, calls: calls, relay: r, echo: e}
	e.GET("/health", s.handleHealth)
	e.GET("/api/roster", s.handleRoster)
	e.GET("/api/calls", s.handleCalls)
	return s
}

// ServeHTTP implements http.Handler, delegating to the underlying echo
// router. Exposed so tests can drive the server with httptest without a
// real listening socket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// ListenAndServe blocks serving on addr until it fails or the listener is
// closed by Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server at once via echo's Close: listeners and open
// connections are closed without waiting for in-flight requests.
func (s *Server) Shutdown() error {
	return s.echo.Close()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type rosterResponse struct {
	Users []string `json:"users"`
}

func (s *Server) handleRoster(c echo.Context) error {
	return c.JSON(http.StatusOK, rosterResponse{Users: s.roster.Usernames()})
}

type callResponse struct {
	Participants  []string `json:"participants"`
	SidsRequested int      `json:"sids_requested"`
}

type callsResponse struct {
	Calls               []callResponse `json:"calls"`
	RelayForwarded      uint64         `json:"relay_forwarded_datagrams"`
	RelayForwardedBytes uint64         `json:"relay_forwarded_bytes"`
	RelayDropped        uint64         `json:"relay_dropped_datagrams"`
}

func (s *Server) handleCalls(c echo.Context) error {
	snapshot := s.calls.Snapshot()
	resp := callsResponse{Calls: make([]callResponse, 0, len(snapshot))}
	for _, call := range snapshot {
		users := make([]string, 0, len(call.Participants))
		for u := range call.Participants {
			users = append(users, u)
		}
		resp.Calls = append(resp.Calls, callResponse{
			Participants:  users,
			SidsRequested: call.SidsRequested,
		})
	}
	if s.relay != nil {
		resp.RelayForwarded, resp.RelayForwardedBytes, resp.RelayDropped = s.relay.Stats()
	}
	return c.JSON(http.StatusOK, resp)
}
