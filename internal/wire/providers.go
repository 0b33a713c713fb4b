package wire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/wire"

	"github.com/sevigo/review-warden/internal/app"
	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/db"
	"github.com/sevigo/review-warden/internal/github"
	"github.com/sevigo/review-warden/internal/gitutil"
	"github.com/sevigo/review-warden/internal/jobs"
	"github.com/sevigo/review-warden/internal/logger"
	"github.com/sevigo/review-warden/internal/packages"
	"github.com/sevigo/review-warden/internal/review"
	"github.com/sevigo/review-warden/internal/reviewers"
	"github.com/sevigo/review-warden/internal/server"
	"github.com/sevigo/review-warden/internal/storage"
)

// jobTimeout bounds one webhook-triggered review, clone included.
const jobTimeout = 15 * time.Minute

// AppSet provides everything the webhook server needs.
var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	provideConfig,
	gitutil.NewClient,
	packages.NewLister,
	reviewers.Default,
	jobs.NewReviewJob,
	provideLogger,
	provideStore,
	provideClientFactory,
	provideDispatcher,
	wire.Bind(new(jobs.Workspace), new(*gitutil.Client)),
	wire.Bind(new(review.Recorder), new(storage.Store)),
)

// provideConfig loads the configuration and rejects settings the server cannot run with.
func provideConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.NewLogger(cfg.Logging, nil)
}

// provideStore opens the review ledger, or a no-op store when no database is configured.
func provideStore(cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	if !cfg.Database.Enabled() {
		logger.Info("no database configured, review runs will not be recorded")
		return storage.NewNopStore(), func() {}, nil
	}
	conn, cleanup, err := db.NewDatabase(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStore(conn.DB), cleanup, nil
}

func provideClientFactory(cfg *config.Config, logger *slog.Logger) jobs.ClientFactory {
	return func(ctx context.Context, installationID int64) (github.Client, string, error) {
		return github.CreateInstallationClient(ctx, cfg, installationID, logger)
	}
}

func provideDispatcher(cfg *config.Config, job core.Job, logger *slog.Logger) core.JobDispatcher {
	return jobs.NewDispatcher(job, cfg.MaxWorkers, jobTimeout, logger)
}
