package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
)

// Recorder receives one observation per completed request.
type Recorder interface {
	RecordRequest(method string, code int, elapsed time.Duration)
}

// statusWriter captures the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs each request and reports it to rec, which may be nil.
// Probe and scrape endpoints are counted but not logged.
func RequestLogger(rec Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		if rec != nil {
			rec.RecordRequest(r.Method, sw.status, elapsed)
		}
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}

		level := slog.LevelInfo
		if sw.status >= 500 {
			level = slog.LevelError
		} else if sw.status >= 400 {
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", elapsed.String(),
			"ip", auth.ClientIP(r),
		}
		if c, ok := auth.CallerFromRequest(r); ok {
			attrs = append(attrs, "user", c.ID)
		}
		slog.Log(r.Context(), level, "request", attrs...)
	})
}
