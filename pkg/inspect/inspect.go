// Package inspect exposes a live Engine over HTTP for debugging and
// tooling: snapshot reads, registry writes, and a WebSocket feed of every
// store update.
package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/storelink-dev/storelink/pkg/store"
)

// Update is one store update as streamed to WebSocket clients.
type Update struct {
	Store string      `json:"store"`
	Patch store.State `json:"patch"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server serves an engine's state over HTTP and WebSocket:
//
//	GET  /state  - deep-cloned JSON snapshot of the global state registry
//	POST /state  - apply a map of identifier to partial state
//	GET  /ws     - stream every store update as an Update message
//
// The server watches the engine from construction until Close, so updates
// that happen while no client is connected are simply dropped.
type Server struct {
	engine *store.Engine
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	cancel func()
}

// New creates an inspector for engine and starts watching its updates.
func New(engine *store.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		logger:  slog.Default(),
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Debug surface; bind it to localhost.
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cancel = engine.Watch(s.broadcast)
	return s
}

// Handler returns the HTTP handler for the inspector routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/state", s.handleGetState)
	r.Post("/state", s.handleSetState)
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Close stops watching the engine and disconnects all clients.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.engine.GlobalState()); err != nil {
		s.logger.Error("snapshot encode error", "error", err)
	}
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	var patch map[string]store.State
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid state patch: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.engine.SetGlobalState(patch)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	s.logger.Debug("inspector client connected", "remote", conn.RemoteAddr())

	// Keep the connection alive until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// broadcast sends one update to every connected client. It runs
// synchronously inside the engine's update fan-out.
func (s *Server) broadcast(storeName string, patch store.State) {
	data, err := json.Marshal(Update{Store: storeName, Patch: patch})
	if err != nil {
		s.logger.Error("update encode error", "store", storeName, "error", err)
		return
	}

	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.clients, client)
			s.mu.Unlock()
			client.Close()
		}
	}
}
