// Package logging configures slog for the frontdesk server.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the default logger on stdout. Dev mode logs debug-level
// text; otherwise info-level JSON.
func Setup(devMode bool) {
	slog.SetDefault(New(os.Stdout, devMode))
}

// New returns a logger writing to w in the format Setup would choose.
func New(w io.Writer, devMode bool) *slog.Logger {
	if devMode {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
