package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/frontdesk/internal/auth"
)

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// handleRegister creates an account. Anyone may create an employee account;
// other roles need an admin caller.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	role := auth.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role != "" && role != auth.RoleEmployee {
		c, ok := auth.CallerFromRequest(r)
		if !ok || !c.IsAdmin() {
			apiError(w, "only an admin can create "+string(role)+" accounts", http.StatusForbidden)
			return
		}
	}

	u, err := s.users.Register(r.Context(), auth.NewUser{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
		Role:       role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "user registered", "id", u.ID, "username", u.Username, "role", u.Role)
	apiJSON(w, map[string]any{"message": "User registered successfully", "user": u}, http.StatusCreated)
}

// handleLogin exchanges a username and password for an access token.
// Repeated failures from one IP are throttled.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := auth.ClientIP(r)
	if s.logins.Limited(ip) {
		apiError(w, "Too many failed login attempts. Try again later.", http.StatusTooManyRequests)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logins.RecordFailure(ip)
		slog.WarnContext(r.Context(), "login failed", "username", req.Username, "ip", ip)
		apiError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logins.Reset(ip)

	s.issueToken(w, r, u, "password")
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, u *auth.User, method string) {
	token, expiresAt, err := s.tokens.Issue(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "login success", "user", u.ID, "method", method)
	apiJSON(w, map[string]any{
		"access_token": token,
		"expires_at":   expiresAt,
		"user":         u,
	}, http.StatusOK)
}

// handleLogout revokes the presented token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, ok := auth.BearerToken(r)
	if !ok {
		apiError(w, "Authorization required", http.StatusUnauthorized)
		return
	}
	if err := s.tokens.Revoke(r.Context(), raw); err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]string{"message": "Logged out"}, http.StatusOK)
}

// handleListUsers lists every account. Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if !c.IsAdmin() {
		apiError(w, "admin access required", http.StatusForbidden)
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"users": users}, http.StatusOK)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	u, err := s.users.GetByID(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"user": u}, http.StatusOK)
}
