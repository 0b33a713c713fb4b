// Package config loads the application configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/review-warden/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server     ServerConfig  `mapstructure:"server"`
	GitHub     GitHubConfig  `mapstructure:"github"`
	Review     ReviewConfig  `mapstructure:"review"`
	Storage    StorageConfig `mapstructure:"storage"`
	Database   *DBConfig     `mapstructure:"database"`
	Logging    logger.Config `mapstructure:"logging"`
	MaxWorkers int           `mapstructure:"max_workers"`
}

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// GitHubConfig holds GitHub credentials for both App and token authentication.
type GitHubConfig struct {
	AppID          int64  `mapstructure:"app_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	Token          string `mapstructure:"token"`
	// BotLogin overrides the authenticated actor lookup.
	BotLogin string `mapstructure:"bot_login"`
	// BotName is used in the review footer.
	BotName string `mapstructure:"bot_name"`
}

// ReviewConfig controls a single review run.
type ReviewConfig struct {
	Remote               string        `mapstructure:"remote"`
	RepoPath             string        `mapstructure:"repo_path"`
	DryRun               bool          `mapstructure:"dry_run"`
	// CheckoutHead checks out the pull request head before checks run, so
	// package and changelog lookups see the head's working tree.
	CheckoutHead         bool          `mapstructure:"checkout_head"`
	CheckTimeout         time.Duration `mapstructure:"check_timeout"`
	APITimeout           time.Duration `mapstructure:"api_timeout"`
	// SyncTimeout bounds each git fetch, merge-base, diff and checkout.
	SyncTimeout          time.Duration `mapstructure:"sync_timeout"`
	ReconcileConcurrency int           `mapstructure:"reconcile_concurrency"`
}

// StorageConfig defines where repositories are cloned in server mode.
type StorageConfig struct {
	RepoPath string `mapstructure:"repo_path"`
}

// DBConfig holds the Postgres connection settings for the review ledger.
type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Enabled reports whether a database has been configured.
func (c *DBConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("github.private_key_path", "keys/review-warden.private-key.pem")
	v.SetDefault("github.bot_name", "Review Warden")
	v.SetDefault("review.remote", "origin")
	v.SetDefault("review.repo_path", ".")
	v.SetDefault("review.dry_run", false)
	v.SetDefault("review.check_timeout", 2*time.Minute)
	v.SetDefault("review.api_timeout", 30*time.Second)
	v.SetDefault("review.sync_timeout", 5*time.Minute)
	v.SetDefault("review.checkout_head", false)
	v.SetDefault("review.reconcile_concurrency", 4)
	v.SetDefault("storage.repo_path", "data/repos")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "review_warden")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("max_workers", 5)
}

// LoadConfig reads configuration from config.yaml and RW_* environment
// variables using the global Viper instance, so flags bound by the CLI
// take precedence.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load reads configuration into a Config using the given Viper instance.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.review-warden")

	v.SetEnvPrefix("RW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys Viper already knows about.
	for _, key := range []string{"github.app_id", "github.webhook_secret", "github.token", "github.bot_login", "database.host", "database.username", "database.password"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Database == nil {
		cfg.Database = &DBConfig{}
	}
	return &cfg, nil
}

// Validate checks the settings needed to review a pull request from the CLI.
func (c *Config) Validate() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("github token must be set (RW_GITHUB_TOKEN or --github-token)")
	}
	return c.Review.validate()
}

// ValidateServer checks the settings needed to run the webhook server.
func (c *Config) ValidateServer() error {
	if c.GitHub.AppID == 0 {
		return fmt.Errorf("github.app_id must be set")
	}
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("github.webhook_secret must be set")
	}
	if c.Storage.RepoPath == "" {
		return fmt.Errorf("storage.repo_path must be set")
	}
	return c.Review.validate()
}

func (r ReviewConfig) validate() error {
	if r.Remote == "" {
		return fmt.Errorf("review.remote must not be empty")
	}
	if r.CheckTimeout <= 0 {
		return fmt.Errorf("review.check_timeout must be positive, got %s", r.CheckTimeout)
	}
	if r.APITimeout <= 0 {
		return fmt.Errorf("review.api_timeout must be positive, got %s", r.APITimeout)
	}
	if r.SyncTimeout <= 0 {
		return fmt.Errorf("review.sync_timeout must be positive, got %s", r.SyncTimeout)
	}
	if r.ReconcileConcurrency < 1 || r.ReconcileConcurrency > 32 {
		return fmt.Errorf("review.reconcile_concurrency must be between 1 and 32, got %d", r.ReconcileConcurrency)
	}
	return nil
}
