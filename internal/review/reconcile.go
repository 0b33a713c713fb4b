package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/github"
)

// Reconciler cleans up the actor's older reviews once a newer one exists.
type Reconciler struct {
	client      github.Client
	logger      *slog.Logger
	concurrency int
	apiTimeout  time.Duration
}

func NewReconciler(client github.Client, logger *slog.Logger, concurrency int, apiTimeout time.Duration) *Reconciler {
	if client == nil {
		panic("github client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Reconciler{client: client, logger: logger, concurrency: concurrency, apiTimeout: apiTimeout}
}

// Reconcile marks every past review as superseded by latest and deletes the
// inline comments of the most recent past review. Earlier reviews keep their
// comments because GitHub already hides them as outdated. Every failure is
// collected and returned joined; none of them stops the remaining work.
func (r *Reconciler) Reconcile(ctx context.Context, pr *core.PullRequest, past []core.Review, latest *core.Review) error {
	if latest == nil || len(past) == 0 {
		return nil
	}

	stale := make([]core.Review, 0, len(past))
	for _, p := range past {
		if p.ID != latest.ID {
			stale = append(stale, p)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	body := SupersededBody(latest.HTMLURL)
	last := stale[len(stale)-1]

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	editErrs := make([]error, len(stale))
	for i, p := range stale {
		g.Go(func() error {
			callCtx, cancel := r.callContext(gctx)
			defer cancel()
			if err := r.client.UpdateReview(callCtx, pr.Owner, pr.Repo, pr.Number, p.ID, body); err != nil {
				editErrs[i] = &ReconcileError{Op: "update", ReviewID: p.ID, Err: err}
			}
			return nil
		})
	}

	listCtx, cancel := r.callContext(ctx)
	comments, listErr := r.client.ListReviewComments(listCtx, pr.Owner, pr.Repo, pr.Number, last.ID)
	cancel()
	if listErr != nil {
		listErr = &ReconcileError{Op: "list comments of", ReviewID: last.ID, Err: listErr}
	}

	deleteErrs := make([]error, len(comments))
	for i, c := range comments {
		g.Go(func() error {
			callCtx, cancel := r.callContext(gctx)
			defer cancel()
			if err := r.client.DeleteReviewComment(callCtx, pr.Owner, pr.Repo, c.ID); err != nil {
				deleteErrs[i] = &ReconcileError{Op: "delete", ReviewID: last.ID, CommentID: c.ID, Err: err}
			}
			return nil
		})
	}

	_ = g.Wait()

	errs := append(editErrs, listErr)
	errs = append(errs, deleteErrs...)
	err := errors.Join(errs...)

	r.logger.Info("reconciled past reviews",
		"repo", pr.FullName(),
		"pr", pr.Number,
		"superseded", len(stale),
		"comments_deleted", len(comments),
		"failed", countErrors(errs),
	)
	return err
}

// ReconcileLatest treats the actor's most recent review on the pull request
// as current and reconciles every earlier one against it. It recovers pull
// requests left in a partially reconciled state.
func (r *Reconciler) ReconcileLatest(ctx context.Context, owner, repo string, number int) (*core.Review, error) {
	callCtx, cancel := r.callContext(ctx)
	pr, err := r.client.GetPullRequest(callCtx, owner, repo, number)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: get pull request %s/%s#%d: %w", ErrLookup, owner, repo, number, err)
	}

	callCtx, cancel = r.callContext(ctx)
	actor, err := r.client.GetAuthenticatedActor(callCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: get authenticated actor: %w", ErrLookup, err)
	}

	own, err := r.actorReviews(ctx, pr, actor)
	if err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return nil, nil
	}

	latest := own[len(own)-1]
	return &latest, r.Reconcile(ctx, pr, own[:len(own)-1], &latest)
}

// actorReviews lists the reviews authored by actor, oldest first.
func (r *Reconciler) actorReviews(ctx context.Context, pr *core.PullRequest, actor string) ([]core.Review, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	reviews, err := r.client.ListReviews(callCtx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return nil, fmt.Errorf("%w: list reviews of %s#%d: %w", ErrLookup, pr.FullName(), pr.Number, err)
	}
	return filterByAuthor(reviews, actor), nil
}

func (r *Reconciler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.apiTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.apiTimeout)
}

// filterByAuthor keeps reviews by login in submission order. Reviews without
// a submission time keep their listed position relative to each other.
func filterByAuthor(reviews []core.Review, login string) []core.Review {
	var own []core.Review
	for _, rv := range reviews {
		if rv.Author == login {
			own = append(own, rv)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].SubmittedAt.Before(own[j].SubmittedAt)
	})
	return own
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
