package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/collabd/internal/coordinator"
	"github.com/codefionn/collabd/internal/logger"
)

// TokenAuthenticator resolves bearer tokens to user identities. The
// directory store implements it; tests use a stub.
type TokenAuthenticator interface {
	ResolveToken(token string) (coordinator.Profile, error)
}

// Options configures the gateway server.
type Options struct {
	Addr       string
	SendBuffer int
	Debug      bool
}

// Server is the collaboration gateway: a websocket endpoint for coordinated
// realtime traffic plus a small JSON API for liveness and lock inspection.
type Server struct {
	addr       string
	httpServer *http.Server
	router     *httprouter.Router
	hub        *Hub
	coord      *coordinator.Coordinator
	auth       TokenAuthenticator
	sendBuffer int
	debug      bool
	startedAt  time.Time
}

// NewServer creates the gateway around an existing coordinator.
func NewServer(coord *coordinator.Coordinator, auth TokenAuthenticator, opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}

	s := &Server{
		addr:       opts.Addr,
		router:     httprouter.New(),
		hub:        NewHub(),
		coord:      coord,
		auth:       auth,
		sendBuffer: opts.SendBuffer,
		debug:      opts.Debug,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/api/stats", s.handleStats)
	s.router.GET("/api/locks/:file", s.handleLockInspect)
}

// Start launches the hub and the HTTP listener in the background.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go s.hub.Run()

	go func() {
		logger.Info("Gateway listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the gateway down: no new connections, hub stopped.
func (s *Server) Stop() error {
	logger.Info("Stopping gateway...")

	s.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// handleWebSocket authenticates and upgrades an incoming connection. An
// unresolvable token is the one failure that refuses the connection; every
// later error is scoped to a reply or event on the open socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	profile, err := s.auth.ResolveToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid auth token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s.coord, profile, s.sendBuffer, s.debug)

	// The hub closes any lingering connection for this user before the
	// session registry sees the replacement.
	s.hub.Register(client)
	s.coord.OnConnect(client, profile)

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clients":  s.hub.ClientCount(),
		"sessions": stats.Sessions,
		"projects": stats.Projects,
		"files":    stats.Files,
		"locks":    stats.Locks,
		"uptime":   time.Since(s.startedAt).String(),
	})
}

// handleLockInspect reports the live lock on a file, with the same lazy
// expiry as the websocket getFileLock operation.
func (s *Server) handleLockInspect(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lock := s.coord.GetFileLock(ps.ByName("file"))
	if lock == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "file is not locked"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lock": lock})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}
