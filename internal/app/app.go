// Package app runs the webhook server together with the review worker pool.
package app

import (
	"log/slog"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/server"
)

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewApp assembles the application.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher core.JobDispatcher, logger *slog.Logger) *App {
	logger.Info("review-warden initialized",
		"max_workers", cfg.MaxWorkers,
		"storage", cfg.Storage.RepoPath,
		"dry_run", cfg.Review.DryRun,
		"ledger", cfg.Database.Enabled(),
	)
	return &App{cfg: cfg, server: srv, dispatcher: dispatcher, logger: logger}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting review-warden", "server_port", a.cfg.Server.Port, "max_workers", a.cfg.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down review-warden")

	// Stop accepting webhooks before draining the queue.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("review-warden stopped")
	return nil
}
