// Package client provides an HTTP client for the frontdesk API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/dashboard"
	"github.com/evcraddock/frontdesk/internal/meeting"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

// Client is an HTTP client for the frontdesk API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client. token may be empty for login.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %s", http.StatusText(e.StatusCode))
	}
	return e.Message
}

// LoginResponse is the response from POST /api/auth/login.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *auth.User `json:"user"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp LoginResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the client's token.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var resp struct {
		User *auth.User `json:"user"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Users lists every account. Admin only.
func (c *Client) Users(ctx context.Context) ([]*auth.User, error) {
	var resp struct {
		Users []*auth.User `json:"users"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/auth/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// VisitorRequest is the body for registering or pre-approving a visitor.
type VisitorRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Company     string `json:"company,omitempty"`
	Purpose     string `json:"purpose"`
	HostID      int64  `json:"host_id,omitempty"`
	Photo       string `json:"photo,omitempty"`
	WindowStart string `json:"approval_window_start,omitempty"`
	WindowEnd   string `json:"approval_window_end,omitempty"`
}

type visitorEnvelope struct {
	Message string           `json:"message"`
	Already bool             `json:"already"`
	Visitor *visitor.Visitor `json:"visitor"`
}

// ListVisitors returns the visitors the caller may see.
func (c *Client) ListVisitors(ctx context.Context) ([]*visitor.Visitor, error) {
	var resp struct {
		Visitors []*visitor.Visitor `json:"visitors"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/visitors", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Visitors, nil
}

// GetVisitor returns one visitor.
func (c *Client) GetVisitor(ctx context.Context, id int64) (*visitor.Visitor, error) {
	var resp visitorEnvelope
	if err := c.send(ctx, http.MethodGet, fmt.Sprintf("/api/visitors/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Visitor, nil
}

// RegisterVisitor registers a walk-in visitor for a host.
func (c *Client) RegisterVisitor(ctx context.Context, req VisitorRequest) (*visitor.Visitor, error) {
	var resp visitorEnvelope
	if err := c.send(ctx, http.MethodPost, "/api/visitors", req, &resp); err != nil {
		return nil, err
	}
	return resp.Visitor, nil
}

// PreApprove creates a pre-approved visitor hosted by the caller.
func (c *Client) PreApprove(ctx context.Context, req VisitorRequest) (*visitor.Visitor, error) {
	var resp visitorEnvelope
	if err := c.send(ctx, http.MethodPost, "/api/visitors/pre-approve", req, &resp); err != nil {
		return nil, err
	}
	return resp.Visitor, nil
}

// TransitionResult is the outcome of a lifecycle action.
type TransitionResult struct {
	Message string
	// Already is set when the action had been performed before and nothing changed.
	Already bool
	Visitor *visitor.Visitor
}

// Transition applies a lifecycle action: approve, reject, pending,
// check-in or check-out.
func (c *Client) Transition(ctx context.Context, id int64, action string) (*TransitionResult, error) {
	var resp visitorEnvelope
	path := fmt.Sprintf("/api/visitors/%d/%s", id, url.PathEscape(action))
	if err := c.send(ctx, http.MethodPut, path, nil, &resp); err != nil {
		return nil, err
	}
	return &TransitionResult{Message: resp.Message, Already: resp.Already, Visitor: resp.Visitor}, nil
}

// Stats returns the dashboard report. tz optionally names the time zone
// that decides which day is today.
func (c *Client) Stats(ctx context.Context, tz string) (*dashboard.Report, error) {
	path := "/api/dashboard/stats"
	if tz != "" {
		path += "?tz=" + url.QueryEscape(tz)
	}
	var report dashboard.Report
	if err := c.send(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// MeetingRequest is the body for requesting a meeting.
type MeetingRequest struct {
	Recipients    []int64 `json:"recipients"`
	Purpose       string  `json:"purpose"`
	ScheduleStart string  `json:"schedule_start"`
	ScheduleEnd   string  `json:"schedule_end"`
	MeetLink      string  `json:"meet_link"`
	Notes         string  `json:"notes,omitempty"`
}

// RequestMeeting sends a meeting request.
func (c *Client) RequestMeeting(ctx context.Context, req MeetingRequest) (*meeting.Meeting, error) {
	var resp struct {
		Meeting *meeting.Meeting `json:"meeting"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/meetings/request", req, &resp); err != nil {
		return nil, err
	}
	return resp.Meeting, nil
}

// Meetings lists meetings by direction: incoming, received or outgoing.
func (c *Client) Meetings(ctx context.Context, which string) ([]*meeting.Meeting, error) {
	var resp struct {
		Meetings []*meeting.Meeting `json:"meetings"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/meetings/"+url.PathEscape(which), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Meetings, nil
}

// RespondMeeting approves or rejects a meeting the caller was invited to.
func (c *Client) RespondMeeting(ctx context.Context, id int64, approve bool, reason string) error {
	if approve {
		return c.send(ctx, http.MethodPut, fmt.Sprintf("/api/meetings/%d/approve", id), nil, nil)
	}
	body := map[string]string{"reason": reason}
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/api/meetings/%d/reject", id), body, nil)
}

// StartCall marks a meeting's call as started. Only the requestor may.
func (c *Client) StartCall(ctx context.Context, id int64) (*meeting.Meeting, error) {
	var resp struct {
		Meeting *meeting.Meeting `json:"meeting"`
	}
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/meetings/%d/start-call", id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Meeting, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.send(ctx, http.MethodGet, "/health", nil, nil)
}

// send performs a request with an optional JSON body and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "err", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Message = errResp.Message
			apiErr.Kind = errResp.Error
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
