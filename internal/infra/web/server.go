package web

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/infra/api/apiv1"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

// Sweeper runs one session expiry pass and reports how many sessions it closed.
type Sweeper interface {
	RunOnce(ctx context.Context) (int, error)
}

// Server is the operator API under /api/v1/admin.
type Server struct {
	sessions usecase.SessionUseCase
	vouchers usecase.VoucherUseCase
	sweeper  Sweeper
	adminKey string
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(
	sessions usecase.SessionUseCase,
	vouchers usecase.VoucherUseCase,
	sweeper Sweeper,
	adminKey string,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "admin").Logger()
	return &Server{
		sessions: sessions,
		vouchers: vouchers,
		sweeper:  sweeper,
		adminKey: adminKey,
		auth:     auth,
		log:      &l,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		// All other admin routes are behind the auth middleware
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/sessions", sessionsListHandler(s.sessions))
			r.Post("/sessions/{id}/disconnect", sessionDisconnectHandler(s.sessions, s.log))
			r.Post("/vouchers", voucherCreateHandler(s.vouchers, s.log))
			r.Post("/sweep", sweepHandler(s.sweeper, s.log))
		})
	})
}

// authMiddleware accepts an admin JWT from the Authorization header or the session cookie.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("admin auth is not configured")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			metrics.IncAdminRequest("auth", "denied")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Key string `json:"key"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.adminKey == "" {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var req loginRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.adminKey)) != 1 {
		metrics.IncAdminRequest("login", "denied")
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("admin login rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("mint admin token")
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}
	metrics.IncAdminRequest("login", "ok")
	apiv1.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}
