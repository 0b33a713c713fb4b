// Package packages discovers the packages of a monorepo checkout.
package packages

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
)

// manifestFiles mark a directory as a package.
var manifestFiles = []string{"package.json", "go.mod", "Cargo.toml", "pyproject.toml"}

// Lister returns the packages of the repository checked out at repoPath.
type Lister interface {
	List(repoPath string) ([]core.Package, error)
}

type globLister struct {
	logger *slog.Logger
}

// NewLister returns a Lister driven by the "packages" globs of .review-warden.yml.
func NewLister(logger *slog.Logger) Lister {
	return &globLister{logger: logger}
}

// List matches every configured pattern against the checkout and keeps the
// directories that contain a manifest. Results are sorted by path. An
// invalid repository config falls back to the default globs.
func (l *globLister) List(repoPath string) ([]core.Package, error) {
	cfg, err := config.LoadRepoConfigOrDefault(repoPath)
	if errors.Is(err, config.ErrConfigParsing) {
		l.logger.Warn("ignoring invalid repository config", "path", repoPath, "error", err)
		cfg, err = config.DefaultRepoConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var pkgs []core.Package
	for _, pattern := range cfg.Packages {
		matches, err := filepath.Glob(filepath.Join(repoPath, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("invalid package pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(repoPath, match)
			if err != nil {
				l.logger.Warn("skipping package outside repository", "path", match, "error", err)
				continue
			}
			rel = filepath.ToSlash(rel)
			if seen[rel] || !isPackageDir(match) {
				continue
			}
			seen[rel] = true
			pkgs = append(pkgs, core.Package{
				Name:          path.Base(rel),
				Path:          rel,
				ChangelogPath: path.Join(rel, cfg.ChangelogFile),
			})
		}
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Path < pkgs[j].Path })
	l.logger.Debug("discovered packages", "repo", repoPath, "count", len(pkgs))
	return pkgs, nil
}

func isPackageDir(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, name := range manifestFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
