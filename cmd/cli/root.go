package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/db"
	"github.com/sevigo/review-warden/internal/github"
	"github.com/sevigo/review-warden/internal/logger"
	"github.com/sevigo/review-warden/internal/storage"
)

var githubToken string

var rootCmd = &cobra.Command{
	Use:   "review-warden",
	Short: "review-warden reviews GitHub pull requests with a fixed set of checks.",
	Long: `review-warden runs deterministic checks (missing changelog entries,
leftover conflict markers) against a pull request diff and posts a single
review, superseding the reviews it left before.`,
	SilenceUsage: true,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token (or RW_GITHUB_TOKEN)")

	if err := viper.BindPFlag("github.token", rootCmd.PersistentFlags().Lookup("github-token")); err != nil {
		slog.Error("error binding flag", "error", err)
		os.Exit(1)
	}
}

// cliEnv is what every subcommand needs: validated config, a logger and a
// platform client authenticated with a personal access token.
type cliEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	client github.Client
}

func newCLIEnv(ctx context.Context) (*cliEnv, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Logs go to stderr so stdout only carries the review output.
	log := logger.NewLogger(cfg.Logging, os.Stderr)

	var opts []github.Option
	if cfg.GitHub.BotLogin != "" {
		opts = append(opts, github.WithActor(cfg.GitHub.BotLogin))
	}
	return &cliEnv{
		cfg:    cfg,
		logger: log,
		client: github.NewPATClient(ctx, cfg.GitHub.Token, log, opts...),
	}, nil
}

// openStore opens the review ledger when a database is configured.
func (e *cliEnv) openStore() (storage.Store, func(), error) {
	if !e.cfg.Database.Enabled() {
		return storage.NewNopStore(), func() {}, nil
	}
	conn, cleanup, err := db.NewDatabase(e.cfg.Database, e.logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStore(conn.DB), cleanup, nil
}
