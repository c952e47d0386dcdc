// Package server exposes the two external surfaces: the lobby HTTP
// JSON API and the websocket session channel.
package server

import (
	"context"
	"net/http"

	"github.com/gammonhub/gammon-server-go/internal/auth"
	"github.com/gammonhub/gammon-server-go/internal/config"
	"github.com/gammonhub/gammon-server-go/internal/match"
	"github.com/gammonhub/gammon-server-go/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server wires the HTTP routes to the managers.
type Server struct {
	cfg      *config.Config
	auth     *auth.Manager
	matches  *match.Manager
	sessions *session.Coordinator
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// baseCtx outlives individual upgrade requests; websocket events
	// run against it so shutdown cancels them together.
	baseCtx context.Context
}

// New creates the HTTP/websocket server.
func New(ctx context.Context, cfg *config.Config, authMgr *auth.Manager, matchMgr *match.Manager, sessions *session.Coordinator, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		auth:     authMgr,
		matches:  matchMgr,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		baseCtx: ctx,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebsocket)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.HandleFunc("POST /api/matches", s.handleCreateMatch)
	mux.HandleFunc("GET /api/matches", s.handleListMatches)
	mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	mux.HandleFunc("POST /api/matches/{id}/join", s.handleJoinMatch)
	mux.HandleFunc("POST /api/matches/{id}/cancel", s.handleCancelMatch)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// handleWebsocket authenticates the handshake and hands the
// connection to the client pumps.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	user, err := s.auth.Resolve(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, user, s.sessions, s.cfg.Server, s.logger)

	s.logger.Info("websocket connected",
		zap.String("user_id", user.ID),
		zap.String("name", user.Name),
	)

	go client.writePump()
	go client.readPump(s.baseCtx)
}
