package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-qr-attendance/pkg/logger"
)

const (
	shutdownTimeout    = 10 * time.Second
	uploadDrainTimeout = 2 * time.Minute
	cleanupInterval    = time.Hour
)

// NewServeCommand runs the HTTP API and, when enabled, the capture loop.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the attendance kiosk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	cfg, err := rootOpts.LoadConfig()
	if err != nil {
		return exitErr(ExitCommandError, fmt.Errorf("load config: %w", err))
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return exitErr(ExitCommandError, fmt.Errorf("init logger: %w", err))
	}
	defer func() { _ = logr.Sync() }()

	app, err := NewApp(ctx, cfg, logr)
	if err != nil {
		return exitErr(ExitFailure, err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logr.Warn("close resources", zap.Error(err))
		}
	}()

	if _, err := app.sessions.Start(ctx); err != nil {
		return exitErr(ExitFailure, err)
	}

	// The upload worker outlives ctx so queued uploads drain on shutdown.
	app.uploads.Start(context.Background())
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), uploadDrainTimeout)
		defer cancel()
		if err := app.uploads.Stop(drainCtx); err != nil {
			logr.Warn("queued uploads abandoned", zap.Error(err))
		}
	}()

	if cfg.Capture.Enabled {
		if err := app.capture.Start(ctx); err != nil {
			logr.Error("capture not started", zap.Error(err))
		}
	}
	go app.cleanupExports(ctx, cfg.Export.Retention)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.Router(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			app.capture.Stop()
			return exitErr(ExitFailure, err)
		}
	}

	logr.Info("shutting down")
	app.capture.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	return nil
}

func (a *App) cleanupExports(ctx context.Context, retention time.Duration) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		removed, err := a.exports.Cleanup(retention)
		if err != nil {
			a.logger.Warn("export cleanup failed", zap.Error(err))
		} else if len(removed) > 0 {
			a.logger.Info("old exports removed", zap.Int("count", len(removed)))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
