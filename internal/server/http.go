package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gammonhub/gammon-server-go/internal/auth"
	"github.com/gammonhub/gammon-server-go/internal/board"
	"github.com/gammonhub/gammon-server-go/internal/match"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// requireUser resolves the bearer token from the Authorization header.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) *auth.User {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		s.writeError(w, http.StatusUnauthorized, "missing bearer token")
		return nil
	}
	token := strings.TrimPrefix(header, prefix)
	user, err := s.auth.Resolve(token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return nil
	}
	return user
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := s.auth.Register(r.Context(), req.Name, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		s.writeError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeError(w, http.StatusBadRequest, "name and password are required")
	case err != nil:
		s.logger.Error("register failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "registration failed")
	default:
		s.writeJSON(w, http.StatusCreated, user)
	}
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, user, err := s.auth.Login(r.Context(), req.Name, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeError(w, http.StatusUnauthorized, "invalid username or password")
	case err != nil:
		s.logger.Error("login failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "login failed")
	default:
		s.writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
	}
}

type createMatchRequest struct {
	Variant string  `json:"variant"`
	Stake   float64 `json:"stake"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	user := s.requireUser(w, r)
	if user == nil {
		return
	}

	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	m, err := s.matches.Create(r.Context(), user.ID, board.Variant(req.Variant), req.Stake)
	switch {
	case errors.Is(err, match.ErrInvalidVariant):
		s.writeError(w, http.StatusBadRequest, "variant must be short or long")
	case errors.Is(err, match.ErrInvalidStake):
		s.writeError(w, http.StatusBadRequest, "stake is below the minimum")
	case err != nil:
		s.logger.Error("create match failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create match")
	default:
		s.writeJSON(w, http.StatusCreated, m)
	}
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := match.Filter{
		Status:  match.Status(q.Get("status")),
		Variant: board.Variant(q.Get("variant")),
	}

	list, err := s.matches.List(r.Context(), f)
	if err != nil {
		s.logger.Error("list matches failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.matches.Get(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, match.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "match not found")
	case err != nil:
		s.logger.Error("get match failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load match")
	default:
		s.writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	user := s.requireUser(w, r)
	if user == nil {
		return
	}

	m, err := s.matches.Join(r.Context(), r.PathValue("id"), user.ID)
	switch {
	case errors.Is(err, match.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "match not found")
	case errors.Is(err, match.ErrNotJoinable):
		s.writeError(w, http.StatusConflict, "match is not available for joining")
	case errors.Is(err, match.ErrOwnMatch):
		s.writeError(w, http.StatusConflict, "cannot join your own match")
	case errors.Is(err, match.ErrConflict):
		s.writeError(w, http.StatusConflict, "match was taken, try another")
	case err != nil:
		s.logger.Error("join match failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to join match")
	default:
		s.writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) handleCancelMatch(w http.ResponseWriter, r *http.Request) {
	user := s.requireUser(w, r)
	if user == nil {
		return
	}

	m, err := s.matches.Cancel(r.Context(), r.PathValue("id"), user.ID)
	switch {
	case errors.Is(err, match.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "match not found")
	case errors.Is(err, match.ErrNotCreator):
		s.writeError(w, http.StatusForbidden, "only the creator can cancel a match")
	case errors.Is(err, match.ErrNotCancellable):
		s.writeError(w, http.StatusConflict, "only a waiting match can be cancelled")
	case err != nil:
		s.logger.Error("cancel match failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to cancel match")
	default:
		s.writeJSON(w, http.StatusOK, m)
	}
}
