package auth

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RequireAuth is middleware that resolves the bearer token on every request
// and stores the caller in the request context. Requests without a valid
// token get 401, except on public paths, which pass through with a caller
// attached only when a valid token was supplied.
// IPs that present too many invalid tokens get 429.
func RequireAuth(tokens *Tokens, limiter *RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public := isPublicPath(r.URL.Path)
		raw, ok := BearerToken(r)

		if !ok {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "Authorization required")
			return
		}

		ip := ClientIP(r)
		if limiter != nil && limiter.Limited(ip) {
			writeAuthError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		caller, err := tokens.Verify(r.Context(), raw)
		if err != nil {
			if limiter != nil {
				limiter.RecordFailure(ip)
			}
			slog.DebugContext(r.Context(), "rejecting token", "path", r.URL.Path, "err", err)
			if public {
				next.ServeHTTP(w, r)
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// ClientIP returns the remote host without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isPublicPath(path string) bool {
	switch path {
	case "/health", "/metrics", "/api/auth/login", "/api/auth/register",
		"/passkey/login/begin", "/passkey/login/finish":
		return true
	}
	return false
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"message": msg}); err != nil {
		slog.Error("encoding auth error", "err", err)
	}
}

// RateLimiter tracks failed authentication attempts per IP.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	window   time.Duration
	limit    int
	now      func() time.Time
}

// NewRateLimiter allows up to limit failures per IP within window.
func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		now:      time.Now,
	}
}

// RecordFailure records a failed attempt.
func (rl *RateLimiter) RecordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.attempts[ip] = append(rl.prune(ip), rl.now())
}

// Limited reports whether ip has used up its failures for the window.
func (rl *RateLimiter) Limited(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := rl.prune(ip)
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return false
	}
	rl.attempts[ip] = valid
	return len(valid) >= rl.limit
}

// Reset forgets the failures of ip, e.g. after a successful login.
func (rl *RateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.attempts, ip)
}

// prune drops attempts older than the window. The caller holds mu.
func (rl *RateLimiter) prune(ip string) []time.Time {
	cutoff := rl.now().Add(-rl.window)
	valid := rl.attempts[ip][:0]
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
