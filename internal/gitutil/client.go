// Package gitutil provides a client for working with Git repositories.
package gitutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoMergeBase is returned when two commits share no history.
var ErrNoMergeBase = errors.New("commits have no common ancestor")

const (
	defaultFetchRetries = 3
	defaultRetryDelay   = 2 * time.Second
)

// Client handles interacting with Git repositories.
type Client struct {
	Logger *slog.Logger
	// FetchRetries is the number of retries after a failed fetch.
	FetchRetries int
	// RetryDelay is the base delay, doubled on every retry.
	RetryDelay time.Duration
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Logger:       logger,
		FetchRetries: defaultFetchRetries,
		RetryDelay:   defaultRetryDelay,
	}
}

// Open opens a Git repository at a given path.
func (c *Client) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// Fetch makes a single ref (branch, tag or commit SHA) from the remote
// available in the local repository. Transient failures are retried with
// exponential backoff.
func (c *Client) Fetch(ctx context.Context, path, remote, ref string) error {
	c.Logger.InfoContext(ctx, "fetching ref", "remote", remote, "ref", ref)

	args := []string{"-c", "core.longpaths=true", "fetch", "--no-tags", "--force", remote, ref}

	var err error
	for i := 0; i <= c.FetchRetries; i++ {
		if i > 0 {
			delay := c.RetryDelay * time.Duration(1<<(i-1))
			c.Logger.WarnContext(ctx, "git fetch failed, retrying",
				"attempt", i,
				"max_retries", c.FetchRetries,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = path
		if out, cmdErr := cmd.CombinedOutput(); cmdErr != nil {
			err = fmt.Errorf("git fetch %s %s failed: %s: %w", remote, ref, strings.TrimSpace(string(out)), cmdErr)
			continue
		}

		c.Logger.DebugContext(ctx, "fetch complete", "ref", ref)
		return nil
	}
	return err
}

// MergeBase returns the best common ancestor of two commits.
func (c *Client) MergeBase(ctx context.Context, path, a, b string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}

	first, err := commitObject(repo, a)
	if err != nil {
		return "", err
	}
	second, err := commitObject(repo, b)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	bases, err := first.MergeBase(second)
	if err != nil {
		return "", fmt.Errorf("failed to compute merge base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("%w: %s and %s", ErrNoMergeBase, a, b)
	}
	return bases[0].Hash.String(), nil
}

// Checkout force-checks out a commit in detached HEAD mode.
func (c *Client) Checkout(ctx context.Context, path, sha string) error {
	c.Logger.InfoContext(ctx, "checking out commit", "sha", sha)
	cmd := exec.CommandContext(ctx, "git", "-c", "core.longpaths=true", "checkout", "--force", "--detach", sha)
	cmd.Dir = path
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git checkout %s failed: %s: %w", sha, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Clone clones a repository to a specific path. It does not checkout a specific SHA.
func (c *Client) Clone(ctx context.Context, repoURL, path, token string) error {
	authURL, err := c.getAuthenticatedURL(repoURL, token)
	if err != nil {
		return err
	}

	c.Logger.InfoContext(ctx, "cloning repository", "url", repoURL, "path", path)
	cmd := exec.CommandContext(ctx, "git", "-c", "core.longpaths=true", "clone", "--no-checkout", authURL, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone failed: %s: %w", redact(string(out), token), err)
	}
	return nil
}

// EnsureClone makes sure a clone of repoURL exists at path and that its
// "origin" remote carries the current token. Installation tokens expire, so
// an existing clone gets its remote URL refreshed on every call.
func (c *Client) EnsureClone(ctx context.Context, repoURL, path, token string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.Clone(ctx, repoURL, path, token)
	}
	if _, err := c.Open(path); err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			c.Logger.WarnContext(ctx, "directory is not a repository, re-cloning", "path", path)
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("failed to remove broken clone at %s: %w", path, err)
			}
			return c.Clone(ctx, repoURL, path, token)
		}
		return err
	}

	authURL, err := c.getAuthenticatedURL(repoURL, token)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "git", "remote", "set-url", "origin", authURL)
	cmd.Dir = path
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git remote set-url failed: %s: %w", redact(string(out), token), err)
	}
	return nil
}

func (c *Client) getAuthenticatedURL(repoURL, token string) (string, error) {
	// Handle local paths directly. file:// is intentionally unsupported for security.
	if !strings.Contains(repoURL, "://") {
		return repoURL, nil
	}

	if !strings.HasPrefix(repoURL, "https://") && !strings.HasPrefix(repoURL, "http://") {
		return "", fmt.Errorf("invalid repository URL: %s", repoURL)
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse repository URL '%s': %w", repoURL, err)
	}
	if token != "" {
		parsedURL.User = url.UserPassword("x-access-token", token)
	}
	return parsedURL.String(), nil
}

func commitObject(repo *git.Repository, sha string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", sha, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object for %s: %w", sha, err)
	}
	return commit, nil
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}
