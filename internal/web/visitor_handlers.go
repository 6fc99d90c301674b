package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

type visitorRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
	Purpose     string `json:"purpose"`
	HostID      int64  `json:"host_id"`
	Photo       string `json:"photo"`
	WindowStart string `json:"approval_window_start"`
	WindowEnd   string `json:"approval_window_end"`
}

func (req visitorRequest) details() visitor.Details {
	return visitor.Details{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Purpose:  req.Purpose,
	}
}

// window parses the approval window, reporting a missing or malformed end
// as a validation error on that field.
func (req visitorRequest) window(loc *time.Location) (start, end time.Time, err error) {
	fields := []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"approval_window_start", req.WindowStart, &start},
		{"approval_window_end", req.WindowEnd, &end},
	}
	for _, f := range fields {
		if f.value == "" {
			return time.Time{}, time.Time{}, &visitor.ValidationError{Field: f.name, Reason: "is required"}
		}
		t, perr := parseTime(f.value, loc)
		if perr != nil {
			return time.Time{}, time.Time{}, &visitor.ValidationError{Field: f.name, Reason: "is not a valid time"}
		}
		*f.dst = t
	}
	return start, end, nil
}

// savePhoto stores the request's photo, if any, and returns a cleanup that
// removes it again should the visitor not be created.
func (s *Server) savePhoto(r *http.Request, d *visitor.Details, payload string) (func(), error) {
	if payload == "" {
		return func() {}, nil
	}
	ref, err := s.photos.Save(payload)
	if err != nil {
		return nil, err
	}
	d.PhotoPath = ref
	return func() {
		if err := s.photos.Remove(ref); err != nil {
			slog.WarnContext(r.Context(), "removing orphaned photo", "photo", ref, "err", err)
		}
	}, nil
}

// handleRegisterVisitor registers a walk-in visitor for a host's decision.
func (s *Server) handleRegisterVisitor(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	var req visitorRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	in := visitor.RegisterInput{Details: req.details(), HostID: req.HostID}
	cleanup, err := s.savePhoto(r, &in.Details, req.Photo)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := s.visitors.Register(r.Context(), in)
	if err != nil {
		cleanup()
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"message": "Visitor registered successfully", "visitor": v}, http.StatusCreated)
}

// handlePreApprove creates an approved visitor hosted by the caller.
func (s *Server) handlePreApprove(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req visitorRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	in := visitor.PreApproveInput{Details: req.details()}
	var err error
	if in.WindowStart, in.WindowEnd, err = req.window(s.cfg.Location); err != nil {
		writeError(w, r, err)
		return
	}

	cleanup, err := s.savePhoto(r, &in.Details, req.Photo)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := s.visitors.PreApprove(r.Context(), c, in)
	if err != nil {
		cleanup()
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"message": "Visitor pre-approved successfully", "visitor": v}, http.StatusCreated)
}

// handleListVisitors lists the visitors within the caller's scope.
func (s *Server) handleListVisitors(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	visitors, err := s.visitors.List(r.Context(), visitor.ScopeFor(c.Role, c.ID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"visitors": visitors}, http.StatusOK)
}

func (s *Server) handleGetVisitor(w http.ResponseWriter, r *http.Request) {
	v, ok := s.scopedVisitor(w, r)
	if !ok {
		return
	}
	apiJSON(w, map[string]any{"visitor": v}, http.StatusOK)
}

// handleVisitorPhoto serves the stored photo of a visitor within scope.
func (s *Server) handleVisitorPhoto(w http.ResponseWriter, r *http.Request) {
	v, ok := s.scopedVisitor(w, r)
	if !ok {
		return
	}
	if !v.HasPhoto() {
		apiError(w, "visitor has no photo", http.StatusNotFound)
		return
	}
	p, err := s.photos.Path(*v.PhotoPath)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.ServeFile(w, r, p)
}

func (s *Server) scopedVisitor(w http.ResponseWriter, r *http.Request) (*visitor.Visitor, bool) {
	c, ok := requireCaller(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	v, err := s.visitors.Get(r.Context(), visitor.ScopeFor(c.Role, c.ID), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return v, true
}

type decideFunc func(context.Context, auth.Caller, int64) (*visitor.Visitor, error)

// decision adapts approve, reject and reset, which act on behalf of the caller.
func (s *Server) decision(message string, fn decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireCaller(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		v, err := fn(r.Context(), c, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		apiJSON(w, map[string]any{"message": message, "visitor": v}, http.StatusOK)
	}
}

type stampFunc func(context.Context, int64) (*visitor.Visitor, visitor.Outcome, error)

// stamp adapts check-in and check-out. Repeating one is answered with 201
// and already set, rather than an error.
func (s *Server) stamp(message, already string, fn stampFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireCaller(w, r); !ok {
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		v, outcome, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if outcome == visitor.AlreadyDone {
			apiJSON(w, map[string]any{"message": already, "already": true, "visitor": v}, http.StatusCreated)
			return
		}
		apiJSON(w, map[string]any{"message": message, "visitor": v}, http.StatusOK)
	}
}
