package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/chat"
	"github.com/evcraddock/frontdesk/internal/meeting"
	"github.com/evcraddock/frontdesk/internal/photo"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

// maxBodySize covers a base64-encoded photo at photo.MaxSize plus the
// surrounding JSON.
const maxBodySize = photo.MaxSize*4/3 + 64<<10

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"message": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "err", err)
	}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		apiError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	apiError(w, "invalid JSON body", http.StatusBadRequest)
	return false
}

// pathID parses the {id} path segment.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		apiError(w, "invalid ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// requireCaller returns the authenticated caller, answering 401 if there is none.
func requireCaller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	c, ok := auth.CallerFromRequest(r)
	if !ok {
		apiError(w, "Authorization required", http.StatusUnauthorized)
	}
	return c, ok
}

// writeError maps a domain error to a status code and JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := classify(err)
	if code == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		apiError(w, "internal error", code)
		return
	}
	apiJSON(w, map[string]string{"message": err.Error(), "error": kind}, code)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, visitor.ErrNotFound),
		errors.Is(err, meeting.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrPasskeyNotFound),
		errors.Is(err, photo.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, visitor.ErrForbidden),
		errors.Is(err, meeting.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, visitor.ErrWindowExpired):
		return http.StatusBadRequest, "window_expired"
	case errors.Is(err, visitor.ErrInvalidTransition):
		return http.StatusBadRequest, "invalid_transition"
	case errors.Is(err, meeting.ErrAlreadyResponded):
		return http.StatusBadRequest, "already_responded"
	case errors.Is(err, visitor.ErrValidation),
		errors.Is(err, meeting.ErrValidation),
		errors.Is(err, chat.ErrValidation),
		errors.Is(err, auth.ErrInvalidUser),
		errors.Is(err, photo.ErrInvalidImage):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

// parseTime accepts RFC 3339, or a local date-time without offset which is
// read in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// requestLocation returns the zone named by ?tz=, or the server default.
func (s *Server) requestLocation(r *http.Request) (*time.Location, error) {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		return s.cfg.Location, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", tz)
	}
	return loc, nil
}
