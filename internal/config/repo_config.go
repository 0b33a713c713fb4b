package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RepoConfigFile is the per-repository configuration file name.
const RepoConfigFile = ".review-warden.yml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// RepoConfig represents the structure of the .review-warden.yml file.
type RepoConfig struct {
	// Glob patterns, relative to the repository root, matching package directories.
	// Example: ["packages/*", "apps/*"]
	Packages []string `yaml:"packages"`

	// Name of the changelog file inside each package.
	ChangelogFile string `yaml:"changelog_file"`

	// Reviewer names that must not run for this repository.
	DisabledChecks []string `yaml:"disabled_checks"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		Packages:       []string{"packages/*"},
		ChangelogFile:  "CHANGELOG.md",
		DisabledChecks: []string{},
	}
}

// IsDisabled reports whether the named check is turned off.
func (c *RepoConfig) IsDisabled(name string) bool {
	for _, d := range c.DisabledChecks {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}

// Validate rejects patterns that could escape the repository.
func (c *RepoConfig) Validate() error {
	for _, p := range c.Packages {
		clean := path.Clean(filepath.ToSlash(p))
		if path.IsAbs(clean) || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
			return fmt.Errorf("package pattern %q must be relative", p)
		}
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("package pattern %q escapes the repository", p)
		}
		if _, err := path.Match(clean, ""); err != nil {
			return fmt.Errorf("invalid package pattern %q: %w", p, err)
		}
	}
	if c.ChangelogFile == "" || strings.ContainsAny(c.ChangelogFile, `/\`) {
		return fmt.Errorf("changelog_file must be a plain file name, got %q", c.ChangelogFile)
	}
	return nil
}

// LoadRepoConfig loads and parses the .review-warden.yml file from a repository path.
// When the file does not exist, the defaults are returned together with ErrConfigNotFound.
func LoadRepoConfig(repoPath string) (*RepoConfig, error) {
	configPath := filepath.Join(repoPath, RepoConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRepoConfig(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", RepoConfigFile, err)
	}

	cfg := DefaultRepoConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	if cfg.ChangelogFile == "" {
		cfg.ChangelogFile = "CHANGELOG.md"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return cfg, nil
}

// LoadRepoConfigOrDefault is LoadRepoConfig with a missing file treated as defaults.
func LoadRepoConfigOrDefault(repoPath string) (*RepoConfig, error) {
	cfg, err := LoadRepoConfig(repoPath)
	if errors.Is(err, ErrConfigNotFound) {
		return cfg, nil
	}
	return cfg, err
}
