// Package devtools implements the DevTools Server (C9): a WebSocket
// endpoint that projects Request Records as CDP Network.* frames to a
// connected front-end, plus the HTTP control surface (including the /json
// tab-discovery endpoint queried during browser launch).
package devtools

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/netwatch-dev/netdebug/internal/cdp"
	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/record"
)

// Server is the DevTools-facing half of the debugger process. It accepts
// at most one active front-end connection at a time, per §4.9 ("subsequent
// connections replace it").
type Server struct {
	cfg Config

	router    chi.Router
	upgrader  websocket.Upgrader
	log       logging.Logger
	projector *cdp.Projector

	mu       sync.Mutex
	conn     *websocket.Conn
	tabURL   string
	listener func(msg map[string]any)
}

// Config configures a Server.
type Config struct {
	// TabURL is the URL reported by /json for the one synthetic "tab" this
	// process exposes — the devtools inspector URL itself.
	TabURL string
	Log    logging.Logger
}

// NewServer builds a Server with its routes installed.
func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = logging.NewStdoutLogger("devtools")
	}

	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		log:       cfg.Log,
		projector: cdp.NewProjector("netdebug-frame", "netdebug-loader"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/json", s.handleListTabs)
	s.router.Get("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleListTabs serves the one synthetic tab entry a browser launcher
// looks up by URL (§4.9 step 2).
func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	tabs := []map[string]string{
		{
			"id":                   "netdebug-tab",
			"url":                  s.cfg.TabURL,
			"webSocketDebuggerUrl": wsURLFor(r),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tabs)
}

func wsURLFor(r *http.Request) string {
	return fmt.Sprintf("ws://%s/ws", r.Host)
}

// handleWebSocket upgrades the connection and makes it the active
// front-end socket, replacing any previous one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logging.Field{Key: "error", Value: err.Error()})
		return
	}

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()

	s.log.Info("devtools front-end connected", logging.Field{Key: "remote", Value: r.RemoteAddr})

	// Inbound messages are parsed and dispatched, but the core listener set
	// is empty by design (§4.9); we still need to read to detect close.
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			return
		}
		s.dispatch(msg)
	}
}

func (s *Server) dispatch(msg map[string]any) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener(msg)
	}
}

// OnInbound registers a listener for inbound messages from the front-end.
// Exported for tests; production wiring leaves this unset.
func (s *Server) OnInbound(fn func(msg map[string]any)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Publish projects r and writes its frames to the active front-end socket,
// if any. If no front-end is connected, the frames are dropped silently
// (§5 "drops outbound frames until a new socket attaches").
func (s *Server) Publish(r *record.Record) {
	frames := s.projector.Project(r)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}

	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			s.log.Warn("failed to write CDP frame", logging.Field{Key: "error", Value: err.Error()})
			return
		}
	}
}
