package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/github"
	"github.com/sevigo/review-warden/internal/review"
)

// ClientFactory returns a platform client for a GitHub App installation and
// the token used to access its repositories.
type ClientFactory func(ctx context.Context, installationID int64) (github.Client, string, error)

// Workspace manages the local clones reviews run in.
type Workspace interface {
	review.Git
	EnsureClone(ctx context.Context, repoURL, path, token string) error
}

// ReviewJob reviews the pull request named by a webhook event inside a
// persistent clone under the configured storage path.
type ReviewJob struct {
	cfg       *config.Config
	newClient ClientFactory
	workspace Workspace
	reviewers []core.Reviewer
	recorder  review.Recorder
	logger    *slog.Logger

	// repoLocks serializes jobs that share a clone.
	repoLocks sync.Map
}

// NewReviewJob wires a review job. Recorder may be nil.
func NewReviewJob(cfg *config.Config, newClient ClientFactory, workspace Workspace, reviewers []core.Reviewer, recorder review.Recorder, logger *slog.Logger) core.Job {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if newClient == nil {
		panic("client factory cannot be nil")
	}
	if workspace == nil {
		panic("workspace cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{
		cfg:       cfg,
		newClient: newClient,
		workspace: workspace,
		reviewers: reviewers,
		recorder:  recorder,
		logger:    logger,
	}
}

// Run executes the review for a given GitHub event.
func (j *ReviewJob) Run(ctx context.Context, event *core.GitHubEvent) error {
	if err := validateEvent(event); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}
	log := j.logger.With("repo", event.RepoFullName, "pr", event.PRNumber)

	client, token, err := j.newClient(ctx, event.InstallationID)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	repoPath := filepath.Join(j.cfg.Storage.RepoPath, filepath.FromSlash(event.RepoFullName))
	unlock := j.lockRepo(repoPath)
	defer unlock()

	if err := j.workspace.EnsureClone(ctx, event.RepoCloneURL, repoPath, token); err != nil {
		return fmt.Errorf("%w: prepare clone: %w", review.ErrSync, err)
	}

	opts := review.OptionsFromConfig(j.cfg)
	opts.CheckoutHead = true

	runner := review.NewRunner(client, j.workspace, j.reviewers, opts, j.logger)
	if j.recorder != nil {
		runner.WithRecorder(j.recorder)
	}

	res, err := runner.Run(ctx, review.Request{
		Owner:    event.RepoOwner,
		Repo:     event.RepoName,
		Number:   event.PRNumber,
		RepoPath: repoPath,
	})
	if err != nil {
		return err
	}

	log.Info("review job completed",
		"submitted", res.Submitted(),
		"findings", len(res.Findings),
		"failed_checks", len(res.CheckErrors),
		"reconcile_error", res.ReconcileErr,
	)
	return nil
}

func (j *ReviewJob) lockRepo(path string) func() {
	v, _ := j.repoLocks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// validateEvent ensures the event contains all required fields and names a
// repository that stays inside the storage directory.
func validateEvent(event *core.GitHubEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if event.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if event.RepoFullName == "" || !filepath.IsLocal(filepath.FromSlash(event.RepoFullName)) {
		return fmt.Errorf("invalid repository full name %q", event.RepoFullName)
	}
	if event.RepoCloneURL == "" {
		return fmt.Errorf("repository clone URL cannot be empty")
	}
	if event.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", event.PRNumber)
	}
	if event.InstallationID <= 0 {
		return fmt.Errorf("installation ID must be positive, got: %d", event.InstallationID)
	}
	return nil
}
