package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/db"
)

// testServer creates a dev-mode server backed by a temp database.
func testServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()
	dir := t.TempDir()
	d, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	cfg := Config{
		Auth: auth.Config{
			JWTSecret: "test-secret",
			TokenTTL:  time.Hour,
			DevMode:   true,
			BaseURL:   "http://localhost:8080",
		},
		Port:     8080,
		PhotoDir: filepath.Join(dir, "photos"),
		Location: time.UTC,
	}
	srv, err := NewServer(d, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, d
}

func apiRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	reqBody := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	r := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

// addUser creates an account directly in the store and returns its ID and
// an access token.
func addUser(t *testing.T, srv *Server, username string, role auth.Role) (int64, string) {
	t.Helper()
	u, err := srv.users.Register(context.Background(), auth.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw-" + username,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u.ID, login(t, srv, username, "pw-"+username)
}

func login(t *testing.T, srv *Server, username, password string) string {
	t.Helper()
	w := apiRequest(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, w.Code, w.Body.String())
	}
	resp := decode[struct {
		AccessToken string `json:"access_token"`
	}](t, w)
	return resp.AccessToken
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := testServer(t)

	w := apiRequest(t, srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestAPIRequiresToken(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/api/visitors", "/api/dashboard/stats", "/api/meetings/incoming", "/api/chat/history"} {
		if w := apiRequest(t, srv, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", path, w.Code)
		}
		if w := apiRequest(t, srv, http.MethodGet, path, "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s with bad token: status = %d, want 401", path, w.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	hostID, token := addUser(t, srv, "host", auth.RoleEmployee)
	v := registerVisitor(t, srv, token, hostID)

	apiRequest(t, srv, http.MethodPut, visitorPath(v, "approve"), token, nil)

	w := apiRequest(t, srv, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `frontdesk_visitor_transitions_total{action="approve",outcome="performed"} 1`) {
		t.Errorf("missing approve counter in:\n%s", body)
	}
	if !strings.Contains(body, "frontdesk_http_requests_total") {
		t.Error("missing request counter")
	}
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-04-10T09:00:00Z", time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-04-10T09:00:00+02:00", time.Date(2025, 4, 10, 7, 0, 0, 0, time.UTC)},
		{"2025-04-10T09:00:00", time.Date(2025, 4, 10, 9, 0, 0, 0, loc)},
		{"2025-04-10T09:00", time.Date(2025, 4, 10, 9, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.in, loc)
		if err != nil {
			t.Errorf("parseTime(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseTime("tomorrow", loc); err == nil {
		t.Error("expected error for unparseable time")
	}
}
