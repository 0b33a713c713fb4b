package reviewers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/packages"
)

const changelogTitle = "Missing changelog entries"

// ChangelogReviewer warns about modified packages whose changelog was not updated.
type ChangelogReviewer struct {
	lister packages.Lister
	logger *slog.Logger
}

// NewChangelogReviewer creates the changelog-presence check.
func NewChangelogReviewer(lister packages.Lister, logger *slog.Logger) *ChangelogReviewer {
	return &ChangelogReviewer{lister: lister, logger: logger}
}

// Name implements core.Reviewer.
func (r *ChangelogReviewer) Name() string { return "changelog" }

// Review implements core.Reviewer.
func (r *ChangelogReviewer) Review(ctx context.Context, input *core.ReviewInput) (*core.Finding, error) {
	pkgs, err := r.lister.List(input.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	changed := make(map[string]bool, len(input.Diff))
	for _, fd := range input.Diff {
		changed[fd.Path] = true
	}

	var missing []core.Package
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !ownsAnyFile(pkg, input.Diff) {
			continue
		}
		if !fileExists(filepath.Join(input.RepoPath, filepath.FromSlash(pkg.ChangelogPath))) {
			continue
		}
		if changed[pkg.ChangelogPath] {
			continue
		}
		missing = append(missing, pkg)
	}

	if len(missing) == 0 {
		return nil, nil
	}
	r.logger.DebugContext(ctx, "packages without changelog entries", "count", len(missing))

	var sb strings.Builder
	sb.WriteString("If you made some API or behavioural changes, please add appropriate entry to the following changelogs:\n")
	for _, pkg := range missing {
		fmt.Fprintf(&sb, "- %s\n", changelogLink(input.PullRequest, pkg.ChangelogPath))
	}

	return &core.Finding{
		Severity: core.SeverityWarn,
		Title:    changelogTitle,
		Body:     strings.TrimSuffix(sb.String(), "\n"),
	}, nil
}

// ownsAnyFile reports whether at least one changed file lives inside the package.
func ownsAnyFile(pkg core.Package, diff []core.FileDiff) bool {
	for _, fd := range diff {
		if isWithin(pkg.Path, fd.Path) {
			return true
		}
	}
	return false
}

func isWithin(root, file string) bool {
	rel, err := filepath.Rel(filepath.FromSlash(root), filepath.FromSlash(file))
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// changelogLink renders a markdown link to the file at the pull request head.
func changelogLink(pr *core.PullRequest, relPath string) string {
	if pr == nil {
		return relPath
	}
	repoURL := fmt.Sprintf("https://github.com/%s/%s", pr.Owner, pr.Repo)
	if idx := strings.LastIndex(pr.HTMLURL, "/pull/"); idx > 0 {
		repoURL = pr.HTMLURL[:idx]
	}
	return fmt.Sprintf("[%s](%s)", relPath, repoURL+"/blob/"+pr.HeadSHA+"/"+path.Clean(relPath))
}
