package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "origin", cfg.Review.Remote)
	assert.Equal(t, ".", cfg.Review.RepoPath)
	assert.False(t, cfg.Review.DryRun)
	assert.Equal(t, 2*time.Minute, cfg.Review.CheckTimeout)
	assert.Equal(t, 30*time.Second, cfg.Review.APITimeout)
	assert.Equal(t, 5*time.Minute, cfg.Review.SyncTimeout)
	assert.False(t, cfg.Review.CheckoutHead)
	assert.Equal(t, 4, cfg.Review.ReconcileConcurrency)
	assert.Equal(t, "Review Warden", cfg.GitHub.BotName)
	assert.Equal(t, 5, cfg.MaxWorkers)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NotNil(t, cfg.Database)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yml := `
review:
  remote: upstream
  dry_run: true
  check_timeout: 10s
  sync_timeout: 90s
  checkout_head: true
github:
  app_id: 99
database:
  host: db.internal
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o600))
	t.Setenv("RW_GITHUB_TOKEN", "ghp_test")
	t.Setenv("RW_REVIEW_REMOTE", "fork")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "fork", cfg.Review.Remote, "env must win over the file")
	assert.True(t, cfg.Review.DryRun)
	assert.Equal(t, 10*time.Second, cfg.Review.CheckTimeout)
	assert.Equal(t, 90*time.Second, cfg.Review.SyncTimeout)
	assert.True(t, cfg.Review.CheckoutHead)
	assert.Equal(t, int64(99), cfg.GitHub.AppID)
	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestConfig_Validate(t *testing.T) {
	valid := ReviewConfig{Remote: "origin", CheckTimeout: time.Minute, APITimeout: time.Second, SyncTimeout: time.Minute, ReconcileConcurrency: 2}

	tests := []struct {
		name    string
		cfg     Config
		server  bool
		wantErr bool
	}{
		{name: "cli ok", cfg: Config{GitHub: GitHubConfig{Token: "t"}, Review: valid}},
		{name: "cli missing token", cfg: Config{Review: valid}, wantErr: true},
		{
			name:    "cli bad concurrency",
			cfg:     Config{GitHub: GitHubConfig{Token: "t"}, Review: ReviewConfig{Remote: "origin", CheckTimeout: time.Minute, APITimeout: time.Second, SyncTimeout: time.Minute}},
			wantErr: true,
		},
		{
			name:    "cli missing sync timeout",
			cfg:     Config{GitHub: GitHubConfig{Token: "t"}, Review: ReviewConfig{Remote: "origin", CheckTimeout: time.Minute, APITimeout: time.Second, ReconcileConcurrency: 2}},
			wantErr: true,
		},
		{
			name:   "server ok",
			cfg:    Config{GitHub: GitHubConfig{AppID: 1, WebhookSecret: "s"}, Storage: StorageConfig{RepoPath: "repos"}, Review: valid},
			server: true,
		},
		{
			name:    "server missing secret",
			cfg:     Config{GitHub: GitHubConfig{AppID: 1}, Storage: StorageConfig{RepoPath: "repos"}, Review: valid},
			server:  true,
			wantErr: true,
		},
		{
			name:    "server missing app id",
			cfg:     Config{GitHub: GitHubConfig{WebhookSecret: "s"}, Storage: StorageConfig{RepoPath: "repos"}, Review: valid},
			server:  true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.server {
				err = tt.cfg.ValidateServer()
			} else {
				err = tt.cfg.Validate()
			}
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
