// Package web provides the frontdesk HTTP JSON API.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/chat"
	"github.com/evcraddock/frontdesk/internal/logging"
	"github.com/evcraddock/frontdesk/internal/meeting"
	"github.com/evcraddock/frontdesk/internal/metrics"
	"github.com/evcraddock/frontdesk/internal/notify"
	"github.com/evcraddock/frontdesk/internal/photo"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

// Server is the API HTTP server.
type Server struct {
	cfg      Config
	db       *sql.DB
	users    *auth.UserStore
	sessions *auth.SessionStore
	tokens   *auth.Tokens
	logins   *auth.RateLimiter
	visitors *visitor.Service
	meetings *meeting.Service
	chat     *chat.Repository
	photos   *photo.Store
	metrics  *metrics.Metrics
	passkeys *passkeyHandlers
	handler  http.Handler
	now      func() time.Time
}

// NewServer wires the stores and services around database and builds the
// route table.
func NewServer(database *sql.DB, cfg Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		if !cfg.Auth.DevMode {
			return nil, errors.New("FD_JWT_SECRET is required outside dev mode")
		}
		cfg.Auth.JWTSecret = "frontdesk-dev-secret"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	photos, err := photo.NewStore(cfg.PhotoDir)
	if err != nil {
		return nil, err
	}

	users := auth.NewUserStore(database)
	sessions := auth.NewSessionStore(database)
	notifier := notify.New(cfg.SMTP, cfg.Auth.DevMode)
	m := metrics.New()

	s := &Server{
		cfg:      cfg,
		db:       database,
		users:    users,
		sessions: sessions,
		tokens:   auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, sessions),
		logins:   auth.NewRateLimiter(15*time.Minute, 5),
		visitors: visitor.NewService(database, visitor.NewULIDBadges(), users, notifier, m),
		meetings: meeting.NewService(database, users, notifier),
		chat:     chat.NewRepository(database),
		photos:   photos,
		metrics:  m,
		now:      time.Now,
	}

	s.passkeys, err = newPasskeyHandlers(cfg, users, auth.NewPasskeyStore(database), s.issueToken)
	if err != nil {
		return nil, fmt.Errorf("configuring passkeys: %w", err)
	}

	mux := http.NewServeMux()
	s.routes(mux)

	tokenFailures := auth.NewRateLimiter(time.Minute, 20)
	s.handler = logging.RequestLogger(m, auth.RequireAuth(s.tokens, tokenFailures, mux))
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/users", s.handleListUsers)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)

	mux.HandleFunc("GET /api/visitors", s.handleListVisitors)
	mux.HandleFunc("POST /api/visitors", s.handleRegisterVisitor)
	mux.HandleFunc("POST /api/visitors/not-pre-approve", s.handleRegisterVisitor)
	mux.HandleFunc("POST /api/visitors/pre-approve", s.handlePreApprove)
	mux.HandleFunc("GET /api/visitors/{id}", s.handleGetVisitor)
	mux.HandleFunc("GET /api/visitors/{id}/photo", s.handleVisitorPhoto)
	mux.HandleFunc("PUT /api/visitors/{id}/approve", s.decision("Visitor approved", s.visitors.Approve))
	mux.HandleFunc("PUT /api/visitors/{id}/reject", s.decision("Visitor rejected", s.visitors.Reject))
	mux.HandleFunc("PUT /api/visitors/{id}/pending", s.decision("Visitor status set to pending", s.visitors.ResetToPending))
	mux.HandleFunc("PUT /api/visitors/{id}/check-in", s.stamp("Visitor checked in", "Visitor is already checked in", s.visitors.CheckIn))
	mux.HandleFunc("PUT /api/visitors/{id}/check-out", s.stamp("Visitor checked out", "Visitor is already checked out", s.visitors.CheckOut))

	mux.HandleFunc("GET /api/dashboard/stats", s.handleStats)

	mux.HandleFunc("POST /api/meetings/request", s.handleCreateMeeting)
	mux.HandleFunc("PUT /api/meetings/{id}/approve", s.handleApproveMeeting)
	mux.HandleFunc("PUT /api/meetings/{id}/reject", s.handleRejectMeeting)
	mux.HandleFunc("PUT /api/meetings/{id}/start-call", s.handleStartCall)
	mux.HandleFunc("GET /api/meetings/incoming", s.meetingList(s.meetings.Incoming))
	mux.HandleFunc("GET /api/meetings/received", s.meetingList(s.meetings.Received))
	mux.HandleFunc("GET /api/meetings/outgoing", s.meetingList(s.meetings.Outgoing))

	mux.HandleFunc("GET /api/chat/history", s.handleChatHistory)
	mux.HandleFunc("POST /api/chat/message", s.handleChatMessage)
	mux.HandleFunc("GET /api/chat/system", s.handleGetSystemMessage)
	mux.HandleFunc("POST /api/chat/system", s.handleSaveSystemMessage)

	mux.HandleFunc("POST /passkey/register/begin", s.passkeys.handleBeginRegistration)
	mux.HandleFunc("POST /passkey/register/finish", s.passkeys.handleFinishRegistration)
	mux.HandleFunc("POST /passkey/login/begin", s.passkeys.handleBeginLogin)
	mux.HandleFunc("POST /passkey/login/finish", s.passkeys.handleFinishLogin)
	mux.HandleFunc("GET /api/passkeys", s.passkeys.handleList)
	mux.HandleFunc("DELETE /api/passkeys/{id}", s.passkeys.handleDelete)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting frontdesk API", "addr", srv.Addr, "base_url", s.cfg.Auth.BaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Sessions exposes the session store for periodic cleanup.
func (s *Server) Sessions() *auth.SessionStore {
	return s.sessions
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		apiError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
