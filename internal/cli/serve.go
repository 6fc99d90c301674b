package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/logging"
	"github.com/evcraddock/frontdesk/internal/web"
)

const sessionCleanupInterval = time.Hour

func newServeCmd() *cobra.Command {
	var (
		port    int
		envFile string
		dev     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the frontdesk HTTP API.

Configuration comes from FD_* environment variables, optionally loaded from
an env file first. Variables already set in the environment win over the
file. The admin account named by FD_ADMIN_USERNAME is created on first start
from FD_ADMIN_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portSet := cmd.Flags().Changed("port")
			return runServe(cmd.Context(), envFile, port, portSet, dev)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (overrides FD_PORT)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "env file to load before reading FD_* variables")
	cmd.Flags().BoolVar(&dev, "dev", false, "dev mode: text logs, dev JWT secret, notifications logged instead of sent")

	return cmd
}

func runServe(ctx context.Context, envFile string, port int, portSet, dev bool) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := web.ConfigFromEnv()
	if err != nil {
		return err
	}
	if portSet {
		cfg.Port = port
	}
	if dev {
		cfg.Auth.DevMode = true
	}
	logging.Setup(cfg.Auth.DevMode)

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	created, err := auth.NewUserStore(database).EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}
	if created {
		slog.Info("created admin account", "username", cfg.Auth.AdminUsername)
	}

	srv, err := web.NewServer(database, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupSessions(ctx, srv.Sessions())

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// loadEnvFile loads path into the environment. A missing file is not an
// error unless it was named explicitly.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == ".env" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// cleanupSessions deletes expired sessions every hour until ctx is done.
func cleanupSessions(ctx context.Context, sessions *auth.SessionStore) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Cleanup(ctx)
			if err != nil {
				slog.Warn("cleaning up sessions", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("removed expired sessions", "count", n)
			}
		}
	}
}
