package web

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

type visitorResponse struct {
	Message string           `json:"message"`
	Already bool             `json:"already"`
	Error   string           `json:"error"`
	Visitor *visitor.Visitor `json:"visitor"`
}

func registerVisitor(t *testing.T, srv *Server, token string, hostID int64) *visitor.Visitor {
	t.Helper()
	w := apiRequest(t, srv, http.MethodPost, "/api/visitors", token, map[string]any{
		"full_name": "Ada Lovelace",
		"email":     "ada@example.com",
		"company":   "Analytical Engines",
		"purpose":   "Interview",
		"host_id":   hostID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register visitor: status %d: %s", w.Code, w.Body.String())
	}
	return decode[visitorResponse](t, w).Visitor
}

func visitorPath(v *visitor.Visitor, action string) string {
	if action == "" {
		return fmt.Sprintf("/api/visitors/%d", v.ID)
	}
	return fmt.Sprintf("/api/visitors/%d/%s", v.ID, action)
}

func TestVisitorLifecycle(t *testing.T) {
	srv, _ := testServer(t)
	hostID, token := addUser(t, srv, "host", auth.RoleEmployee)
	v := registerVisitor(t, srv, token, hostID)

	if v.Status != visitor.Pending || v.PreApproved || v.BadgeID == "" {
		t.Fatalf("registered visitor = %+v", v)
	}

	steps := []struct {
		action  string
		code    int
		status  visitor.Status
		already bool
	}{
		{"approve", http.StatusOK, visitor.Approved, false},
		{"check-in", http.StatusOK, visitor.CheckedIn, false},
		{"check-in", http.StatusCreated, visitor.CheckedIn, true},
		{"check-out", http.StatusOK, visitor.CheckedOut, false},
		{"check-out", http.StatusCreated, visitor.CheckedOut, true},
	}
	for _, step := range steps {
		w := apiRequest(t, srv, http.MethodPut, visitorPath(v, step.action), token, nil)
		if w.Code != step.code {
			t.Fatalf("%s: status = %d, want %d: %s", step.action, w.Code, step.code, w.Body.String())
		}
		resp := decode[visitorResponse](t, w)
		if resp.Visitor.Status != step.status || resp.Already != step.already {
			t.Errorf("%s: status %s already %v, want %s %v", step.action, resp.Visitor.Status, resp.Already, step.status, step.already)
		}
	}
}

func TestVisitorTransitionErrors(t *testing.T) {
	srv, _ := testServer(t)
	hostID, hostToken := addUser(t, srv, "host", auth.RoleEmployee)
	_, otherToken := addUser(t, srv, "other", auth.RoleEmployee)
	_, guardToken := addUser(t, srv, "guard", auth.RoleSecurity)
	v := registerVisitor(t, srv, hostToken, hostID)

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		code   int
		kind   string
	}{
		{"check in while pending", hostToken, http.MethodPut, visitorPath(v, "check-in"), http.StatusBadRequest, "invalid_transition"},
		{"check out while pending", hostToken, http.MethodPut, visitorPath(v, "check-out"), http.StatusBadRequest, "invalid_transition"},
		{"approve by other employee", otherToken, http.MethodPut, visitorPath(v, "approve"), http.StatusForbidden, "forbidden"},
		{"approve by security", guardToken, http.MethodPut, visitorPath(v, "approve"), http.StatusForbidden, "forbidden"},
		{"approve missing visitor", hostToken, http.MethodPut, "/api/visitors/9999/approve", http.StatusNotFound, "not_found"},
		{"read by other employee", otherToken, http.MethodGet, visitorPath(v, ""), http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, tt.method, tt.path, tt.token, nil)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.code, w.Body.String())
			}
			if resp := decode[visitorResponse](t, w); resp.Error != tt.kind {
				t.Errorf("error = %q, want %q", resp.Error, tt.kind)
			}
		})
	}

	if w := apiRequest(t, srv, http.MethodGet, visitorPath(v, ""), guardToken, nil); w.Code != http.StatusOK {
		t.Errorf("security read: status = %d, want 200", w.Code)
	}
	if w := apiRequest(t, srv, http.MethodGet, "/api/visitors/abc", hostToken, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", w.Code)
	}
}

func TestVisitorListIsScoped(t *testing.T) {
	srv, _ := testServer(t)
	aliceID, aliceToken := addUser(t, srv, "alice", auth.RoleEmployee)
	bobID, bobToken := addUser(t, srv, "bob", auth.RoleEmployee)
	_, adminToken := addUser(t, srv, "root", auth.RoleAdmin)

	registerVisitor(t, srv, aliceToken, aliceID)
	registerVisitor(t, srv, aliceToken, aliceID)
	registerVisitor(t, srv, bobToken, bobID)

	for _, tt := range []struct {
		token string
		want  int
	}{
		{aliceToken, 2},
		{bobToken, 1},
		{adminToken, 3},
	} {
		w := apiRequest(t, srv, http.MethodGet, "/api/visitors", tt.token, nil)
		resp := decode[struct {
			Visitors []visitor.Visitor `json:"visitors"`
		}](t, w)
		if len(resp.Visitors) != tt.want {
			t.Errorf("visitors = %d, want %d", len(resp.Visitors), tt.want)
		}
	}
}

func TestRegisterVisitorValidation(t *testing.T) {
	srv, _ := testServer(t)
	hostID, token := addUser(t, srv, "host", auth.RoleEmployee)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"missing name", map[string]any{"email": "a@example.com", "purpose": "x", "host_id": hostID}, http.StatusBadRequest},
		{"missing contact", map[string]any{"full_name": "A", "purpose": "x", "host_id": hostID}, http.StatusBadRequest},
		{"missing purpose", map[string]any{"full_name": "A", "phone": "555", "host_id": hostID}, http.StatusBadRequest},
		{"unknown host", map[string]any{"full_name": "A", "phone": "555", "purpose": "x", "host_id": 9999}, http.StatusBadRequest},
		{"bad photo", map[string]any{"full_name": "A", "phone": "555", "purpose": "x", "host_id": hostID, "photo": "not base64!"}, http.StatusBadRequest},
		{"phone only", map[string]any{"full_name": "A", "phone": "555", "purpose": "x", "host_id": hostID}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, http.MethodPost, "/api/visitors", token, tt.body)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.code, w.Body.String())
			}
		})
	}
}

func TestVisitorPhoto(t *testing.T) {
	srv, _ := testServer(t)
	hostID, token := addUser(t, srv, "host", auth.RoleEmployee)
	_, otherToken := addUser(t, srv, "other", auth.RoleEmployee)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	w := apiRequest(t, srv, http.MethodPost, "/api/visitors", token, map[string]any{
		"full_name": "Ada",
		"phone":     "555",
		"purpose":   "Delivery",
		"host_id":   hostID,
		"photo":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", w.Code, w.Body.String())
	}
	v := decode[visitorResponse](t, w).Visitor
	if !v.HasPhoto() {
		t.Fatal("expected photo reference")
	}

	w = apiRequest(t, srv, http.MethodGet, visitorPath(v, "photo"), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("photo: status = %d", w.Code)
	}
	if w.Body.String() != string(png) {
		t.Error("served photo differs from upload")
	}
	if w := apiRequest(t, srv, http.MethodGet, visitorPath(v, "photo"), otherToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("out of scope photo: status = %d, want 404", w.Code)
	}
}

func TestPreApproveWindow(t *testing.T) {
	srv, _ := testServer(t)
	_, token := addUser(t, srv, "host", auth.RoleEmployee)
	now := time.Now().UTC()

	preApprove := func(start, end time.Time) *httptestResponse {
		w := apiRequest(t, srv, http.MethodPost, "/api/visitors/pre-approve", token, map[string]any{
			"full_name":             "Grace Hopper",
			"email":                 "grace@example.com",
			"purpose":               "Talk",
			"approval_window_start": start.Format(time.RFC3339),
			"approval_window_end":   end.Format(time.RFC3339),
		})
		return &httptestResponse{code: w.Code, resp: decode[visitorResponse](t, w)}
	}

	open := preApprove(now.Add(-time.Hour), now.Add(time.Hour))
	if open.code != http.StatusCreated {
		t.Fatalf("pre-approve: status = %d: %s", open.code, open.resp.Message)
	}
	if open.resp.Visitor.Status != visitor.Approved || !open.resp.Visitor.PreApproved {
		t.Errorf("pre-approved visitor = %+v", open.resp.Visitor)
	}
	if w := apiRequest(t, srv, http.MethodPut, visitorPath(open.resp.Visitor, "check-in"), token, nil); w.Code != http.StatusOK {
		t.Errorf("check in within window: status = %d", w.Code)
	}

	expired := preApprove(now.Add(-3*time.Hour), now.Add(-2*time.Hour))
	w := apiRequest(t, srv, http.MethodPut, visitorPath(expired.resp.Visitor, "check-in"), token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("check in after window: status = %d, want 400", w.Code)
	}
	if resp := decode[visitorResponse](t, w); resp.Error != "window_expired" {
		t.Errorf("error = %q, want window_expired", resp.Error)
	}

	if bad := preApprove(now.Add(time.Hour), now); bad.code != http.StatusBadRequest {
		t.Errorf("inverted window: status = %d, want 400", bad.code)
	}
}

func TestPreApproveWindowValidation(t *testing.T) {
	srv, _ := testServer(t)
	_, token := addUser(t, srv, "host", auth.RoleEmployee)

	tests := []struct {
		name      string
		start     string
		end       string
		wantField string
	}{
		{"missing both", "", "", "approval_window_start"},
		{"missing end", "2025-04-10T09:00:00Z", "", "approval_window_end"},
		{"unparseable start", "tomorrow morning", "2025-04-10T11:00:00Z", "approval_window_start"},
		{"unparseable end", "2025-04-10T09:00:00Z", "11 o'clock", "approval_window_end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, http.MethodPost, "/api/visitors/pre-approve", token, map[string]any{
				"full_name":             "No Window",
				"phone":                 "555",
				"purpose":               "Talk",
				"approval_window_start": tt.start,
				"approval_window_end":   tt.end,
			})
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decode[visitorResponse](t, w)
			if resp.Error != "validation" {
				t.Errorf("error kind = %q, want validation", resp.Error)
			}
			if !strings.HasPrefix(resp.Message, tt.wantField+" ") {
				t.Errorf("message = %q, want it to name %s", resp.Message, tt.wantField)
			}
		})
	}
}

func TestResetToPending(t *testing.T) {
	srv, _ := testServer(t)
	hostID, token := addUser(t, srv, "host", auth.RoleEmployee)
	v := registerVisitor(t, srv, token, hostID)

	apiRequest(t, srv, http.MethodPut, visitorPath(v, "approve"), token, nil)
	w := apiRequest(t, srv, http.MethodPut, visitorPath(v, "pending"), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pending: status = %d", w.Code)
	}
	if resp := decode[visitorResponse](t, w); resp.Visitor.Status != visitor.Pending {
		t.Errorf("status = %s, want pending", resp.Visitor.Status)
	}
}

type httptestResponse struct {
	code int
	resp visitorResponse
}
