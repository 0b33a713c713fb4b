// Package review orchestrates a single pull request review: it syncs the
// repository, runs every reviewer check concurrently, submits one combined
// review and reconciles the reviews it supersedes.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/github"
)

// Git is the local repository access the runner needs.
type Git interface {
	Fetch(ctx context.Context, path, remote, ref string) error
	MergeBase(ctx context.Context, path, a, b string) (string, error)
	Diff(ctx context.Context, path, from, to string) ([]core.FileDiff, error)
	Checkout(ctx context.Context, path, sha string) error
}

// Recorder persists a summary of every submitted review.
type Recorder interface {
	SaveRun(ctx context.Context, run *core.ReviewRun) error
}

// Options tune a Runner. Zero values fall back to sane defaults.
type Options struct {
	Remote  string
	BotName string
	// DryRun composes the review but performs no writes on the platform.
	DryRun bool
	// CheckoutHead checks out the head commit before running checks, so
	// checks that read the working tree see the pull request's files.
	CheckoutHead         bool
	CheckTimeout         time.Duration
	APITimeout           time.Duration
	// SyncTimeout bounds each git call. Fetches may legitimately take
	// longer than platform API calls.
	SyncTimeout          time.Duration
	ReconcileConcurrency int
}

// OptionsFromConfig maps the review section of the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Remote:               cfg.Review.Remote,
		BotName:              cfg.GitHub.BotName,
		DryRun:               cfg.Review.DryRun,
		CheckoutHead:         cfg.Review.CheckoutHead,
		CheckTimeout:         cfg.Review.CheckTimeout,
		APITimeout:           cfg.Review.APITimeout,
		SyncTimeout:          cfg.Review.SyncTimeout,
		ReconcileConcurrency: cfg.Review.ReconcileConcurrency,
	}
}

// Request identifies the pull request to review and the local clone to use.
type Request struct {
	Owner    string
	Repo     string
	Number   int
	RepoPath string
}

// Result describes what a run did. It is returned for successful runs,
// including runs that produced no findings.
type Result struct {
	PullRequest  *core.PullRequest
	Actor        string
	MergeBaseSHA string
	// Findings are ordered by reviewer registration.
	Findings    []core.Finding
	CheckErrors []*CheckError
	Event       core.ReviewEvent
	Body        string
	Comments    []core.InlineComment
	// Review is the created review; nil when nothing was submitted.
	Review      *core.Review
	PastReviews []core.Review
	// ReconcileErr joins every reconciliation failure. It does not fail the run.
	ReconcileErr error
	DryRun       bool
}

// Submitted reports whether a review was created.
func (r *Result) Submitted() bool {
	return r.Review != nil
}

// Runner runs the review pipeline for one pull request at a time. It holds
// no per-run state, so a single Runner may serve concurrent runs on
// different repository paths.
type Runner struct {
	client     github.Client
	git        Git
	reviewers  []core.Reviewer
	recorder   Recorder
	reconciler *Reconciler
	opts       Options
	logger     *slog.Logger
}

const (
	defaultCheckTimeout = 2 * time.Minute
	defaultAPITimeout   = 30 * time.Second
	defaultSyncTimeout  = 5 * time.Minute
)

// NewRunner creates a Runner. Reviewers run in the given order and their
// findings keep that order in the composed review.
func NewRunner(client github.Client, git Git, reviewers []core.Reviewer, opts Options, logger *slog.Logger) *Runner {
	if client == nil {
		panic("github client is required")
	}
	if git == nil {
		panic("git client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaultCheckTimeout
	}
	if opts.APITimeout <= 0 {
		opts.APITimeout = defaultAPITimeout
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = defaultSyncTimeout
	}
	return &Runner{
		client:     client,
		git:        git,
		reviewers:  reviewers,
		reconciler: NewReconciler(client, logger, opts.ReconcileConcurrency, opts.APITimeout),
		opts:       opts,
		logger:     logger,
	}
}

// WithRecorder sets where submitted reviews are recorded.
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.recorder = rec
	return r
}

// Run reviews one pull request. Lookup, sync and submission failures are
// returned as errors and leave earlier reviews untouched; failing checks and
// reconciliation problems are reported in the Result instead.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	log := r.logger.With("repo", req.Owner+"/"+req.Repo, "pr", req.Number)

	pr, actor, err := r.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "starting review", "head", pr.HeadSHA, "base", pr.BaseSHA, "actor", actor)

	mergeBase, diff, err := r.sync(ctx, req.RepoPath, pr)
	if err != nil {
		return nil, err
	}

	input := &core.ReviewInput{
		PullRequest:  pr,
		MergeBaseSHA: mergeBase,
		Diff:         diff,
		RepoPath:     req.RepoPath,
	}
	findings, checkErrs := r.runChecks(ctx, input, r.activeReviewers(ctx, req.RepoPath))

	res := &Result{
		PullRequest:  pr,
		Actor:        actor,
		MergeBaseSHA: mergeBase,
		Findings:     findings,
		CheckErrors:  checkErrs,
		DryRun:       r.opts.DryRun,
	}

	if len(findings) == 0 {
		log.InfoContext(ctx, "no findings, nothing to submit", "failed_checks", len(checkErrs))
		return res, nil
	}

	res.Event = ReviewEvent(findings)
	res.Body = ReviewBody(findings, pr.HeadSHA, r.opts.BotName)
	res.Comments = ReviewComments(findings)

	if r.opts.DryRun {
		log.InfoContext(ctx, "dry run, review not submitted", "event", res.Event, "comments", len(res.Comments))
		return res, nil
	}

	past, err := r.reconciler.actorReviews(ctx, pr, actor)
	if err != nil {
		return nil, err
	}
	res.PastReviews = past

	created, err := r.submit(ctx, pr, res)
	if err != nil {
		return nil, err
	}
	res.Review = created
	log.InfoContext(ctx, "review submitted", "review_id", created.ID, "url", created.HTMLURL, "event", res.Event)

	if err := r.reconciler.Reconcile(ctx, pr, past, created); err != nil {
		log.WarnContext(ctx, "reconciliation incomplete", "error", err)
		res.ReconcileErr = err
	}

	r.record(ctx, res)
	return res, nil
}

func (r *Runner) lookup(ctx context.Context, req Request) (*core.PullRequest, string, error) {
	callCtx, cancel := r.callContext(ctx)
	pr, err := r.client.GetPullRequest(callCtx, req.Owner, req.Repo, req.Number)
	cancel()
	if err != nil {
		return nil, "", fmt.Errorf("%w: get pull request %s/%s#%d: %w", ErrLookup, req.Owner, req.Repo, req.Number, err)
	}

	callCtx, cancel = r.callContext(ctx)
	actor, err := r.client.GetAuthenticatedActor(callCtx)
	cancel()
	if err != nil {
		return nil, "", fmt.Errorf("%w: get authenticated actor: %w", ErrLookup, err)
	}
	return pr, actor, nil
}

// sync makes base and head available locally and computes the diff the
// pull request introduces relative to its merge base.
func (r *Runner) sync(ctx context.Context, repoPath string, pr *core.PullRequest) (string, []core.FileDiff, error) {
	for _, ref := range []string{pr.BaseSHA, pr.HeadSHA} {
		if err := r.withSyncTimeout(ctx, func(ctx context.Context) error {
			return r.git.Fetch(ctx, repoPath, r.opts.Remote, ref)
		}); err != nil {
			return "", nil, fmt.Errorf("%w: fetch %s: %w", ErrSync, ref, err)
		}
	}

	var mergeBase string
	if err := r.withSyncTimeout(ctx, func(ctx context.Context) error {
		var err error
		mergeBase, err = r.git.MergeBase(ctx, repoPath, pr.BaseSHA, pr.HeadSHA)
		return err
	}); err != nil {
		return "", nil, fmt.Errorf("%w: merge base of %s and %s: %w", ErrSync, pr.BaseSHA, pr.HeadSHA, err)
	}

	var diff []core.FileDiff
	if err := r.withSyncTimeout(ctx, func(ctx context.Context) error {
		var err error
		diff, err = r.git.Diff(ctx, repoPath, mergeBase, pr.HeadSHA)
		return err
	}); err != nil {
		return "", nil, fmt.Errorf("%w: diff %s..%s: %w", ErrSync, mergeBase, pr.HeadSHA, err)
	}

	if r.opts.CheckoutHead {
		if err := r.withSyncTimeout(ctx, func(ctx context.Context) error {
			return r.git.Checkout(ctx, repoPath, pr.HeadSHA)
		}); err != nil {
			return "", nil, fmt.Errorf("%w: checkout %s: %w", ErrSync, pr.HeadSHA, err)
		}
	}
	return mergeBase, diff, nil
}

// activeReviewers drops the checks a repository disabled in its own config.
// An unreadable config keeps every check enabled.
func (r *Runner) activeReviewers(ctx context.Context, repoPath string) []core.Reviewer {
	repoCfg, err := config.LoadRepoConfigOrDefault(repoPath)
	if err != nil {
		r.logger.WarnContext(ctx, "ignoring invalid repository config", "path", repoPath, "error", err)
		return r.reviewers
	}

	active := make([]core.Reviewer, 0, len(r.reviewers))
	for _, rv := range r.reviewers {
		if repoCfg.IsDisabled(rv.Name()) {
			r.logger.DebugContext(ctx, "check disabled by repository config", "check", rv.Name())
			continue
		}
		active = append(active, rv)
	}
	return active
}

type checkOutcome struct {
	finding *core.Finding
	err     error
}

// runChecks runs every reviewer concurrently and collects their findings in
// registration order. A failing check only loses its own finding.
func (r *Runner) runChecks(ctx context.Context, input *core.ReviewInput, reviewers []core.Reviewer) ([]core.Finding, []*CheckError) {
	outcomes := make([]checkOutcome, len(reviewers))

	var g errgroup.Group
	for i, rv := range reviewers {
		g.Go(func() error {
			f, err := r.runCheck(ctx, rv, input)
			outcomes[i] = checkOutcome{finding: f, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var findings []core.Finding
	var checkErrs []*CheckError
	for i, o := range outcomes {
		name := reviewers[i].Name()
		switch {
		case o.err != nil:
			r.logger.ErrorContext(ctx, "check failed", "check", name, "error", o.err)
			checkErrs = append(checkErrs, &CheckError{Reviewer: name, Err: o.err})
		case o.finding != nil:
			r.logger.DebugContext(ctx, "check reported a finding", "check", name, "severity", o.finding.Severity)
			findings = append(findings, *o.finding)
		}
	}
	return findings, checkErrs
}

// runCheck bounds a single check by the check timeout and turns panics into
// errors. A check that ignores its context is abandoned once it times out.
func (r *Runner) runCheck(ctx context.Context, rv core.Reviewer, input *core.ReviewInput) (*core.Finding, error) {
	checkCtx, cancel := context.WithTimeout(ctx, r.opts.CheckTimeout)
	defer cancel()

	done := make(chan checkOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- checkOutcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		f, err := rv.Review(checkCtx, input)
		done <- checkOutcome{finding: f, err: err}
	}()

	select {
	case o := <-done:
		return o.finding, o.err
	case <-checkCtx.Done():
		return nil, fmt.Errorf("check did not finish: %w", checkCtx.Err())
	}
}

func (r *Runner) submit(ctx context.Context, pr *core.PullRequest, res *Result) (*core.Review, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	created, err := r.client.CreateReview(callCtx, pr.Owner, pr.Repo, pr.Number, pr.HeadSHA, res.Body, res.Event, toDraftComments(res.Comments))
	if err != nil {
		return nil, fmt.Errorf("%w: create review on %s#%d: %w", ErrSubmission, pr.FullName(), pr.Number, err)
	}
	return created, nil
}

func (r *Runner) record(ctx context.Context, res *Result) {
	if r.recorder == nil {
		return
	}
	run := &core.ReviewRun{
		RepoFullName:      res.PullRequest.FullName(),
		PRNumber:          res.PullRequest.Number,
		HeadSHA:           res.PullRequest.HeadSHA,
		MergeBaseSHA:      res.MergeBaseSHA,
		ReviewID:          res.Review.ID,
		ReviewURL:         res.Review.HTMLURL,
		Event:             res.Event,
		Findings:          len(res.Findings),
		ReconcileFailures: countJoined(res.ReconcileErr),
		CreatedAt:         time.Now().UTC(),
	}
	if err := r.recorder.SaveRun(ctx, run); err != nil {
		r.logger.WarnContext(ctx, "failed to record review run", "review_id", run.ReviewID, "error", err)
	}
}

// withSyncTimeout runs one git call under the sync timeout. go-git's
// merge-base and patch walks do not watch the context, so a call that
// outlives its deadline is abandoned and reported as timed out.
func (r *Runner) withSyncTimeout(ctx context.Context, call func(context.Context) error) error {
	syncCtx, cancel := context.WithTimeout(ctx, r.opts.SyncTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- call(syncCtx) }()

	select {
	case err := <-done:
		return err
	case <-syncCtx.Done():
		return syncCtx.Err()
	}
}

func (r *Runner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opts.APITimeout)
}

// countJoined counts the errors combined by errors.Join.
func countJoined(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
