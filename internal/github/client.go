// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/review-warden/internal/core"
)

const perPage = 100

// DraftReviewComment represents a single comment to be posted as part of a review.
type DraftReviewComment struct {
	Path     string
	Position int
	Body     string
}

// Client defines the pull request review operations the reviewer needs.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*core.PullRequest, error)
	GetAuthenticatedActor(ctx context.Context) (string, error)
	ListReviews(ctx context.Context, owner, repo string, number int) ([]core.Review, error)
	CreateReview(ctx context.Context, owner, repo string, number int, commitID, body string, event core.ReviewEvent, comments []DraftReviewComment) (*core.Review, error)
	UpdateReview(ctx context.Context, owner, repo string, number int, reviewID int64, body string) error
	ListReviewComments(ctx context.Context, owner, repo string, number int, reviewID int64) ([]core.ReviewComment, error)
	DeleteReviewComment(ctx context.Context, owner, repo string, commentID int64) error
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
	// actor is the login reviews are posted as, when known up front.
	actor string
}

// Option customizes a client created by NewGitHubClient.
type Option func(*gitHubClient)

// WithActor fixes the login used to identify this bot's own reviews and
// skips the /user lookup, which installation tokens are not allowed to call.
func WithActor(login string) Option {
	return func(g *gitHubClient) {
		g.actor = login
	}
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger, opts ...Option) Client {
	g := &gitHubClient{client: client, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewPATClient creates a new GitHub client authenticated with a Personal Access Token (PAT).
// This is useful for CLI tools or local development where an App installation is not available.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger, opts ...Option) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return NewGitHubClient(github.NewClient(tc), logger, opts...)
}

// NewHTTPClient builds a client on top of an arbitrary http.Client and base URL,
// e.g. for GitHub Enterprise or tests.
func NewHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger, opts ...Option) (Client, error) {
	client := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
	}
	return NewGitHubClient(client, logger, opts...), nil
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*core.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	if pr.GetBase().GetSHA() == "" || pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("pull request %s/%s#%d has no base or head SHA", owner, repo, number)
	}

	return &core.PullRequest{
		Owner:    owner,
		Repo:     repo,
		Number:   pr.GetNumber(),
		Title:    pr.GetTitle(),
		Draft:    pr.GetDraft(),
		BaseRef:  pr.GetBase().GetRef(),
		BaseSHA:  pr.GetBase().GetSHA(),
		HeadRef:  pr.GetHead().GetRef(),
		HeadSHA:  pr.GetHead().GetSHA(),
		CloneURL: pr.GetBase().GetRepo().GetCloneURL(),
		HTMLURL:  pr.GetHTMLURL(),
	}, nil
}

// GetAuthenticatedActor returns the login of the account reviews are posted as.
func (g *gitHubClient) GetAuthenticatedActor(ctx context.Context) (string, error) {
	if g.actor != "" {
		return g.actor, nil
	}
	user, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		g.logger.Error("failed to get authenticated user", "error", err)
		return "", err
	}
	if user.GetLogin() == "" {
		return "", fmt.Errorf("authenticated user has no login")
	}
	return user.GetLogin(), nil
}

// ListReviews returns every review on a pull request in submission order.
// It handles pagination automatically.
func (g *gitHubClient) ListReviews(ctx context.Context, owner, repo string, number int) ([]core.Review, error) {
	var all []core.Review
	opts := &github.ListOptions{PerPage: perPage}

	for {
		reviews, resp, err := g.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list reviews", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		for _, r := range reviews {
			all = append(all, toCoreReview(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateReview submits a new pull request review with a summary and position-anchored comments.
func (g *gitHubClient) CreateReview(ctx context.Context, owner, repo string, number int, commitID, body string, event core.ReviewEvent, comments []DraftReviewComment) (*core.Review, error) {
	ghComments := make([]*github.DraftReviewComment, 0, len(comments))
	for _, c := range comments {
		ghComments = append(ghComments, &github.DraftReviewComment{
			Path:     github.Ptr(c.Path),
			Position: github.Ptr(c.Position),
			Body:     github.Ptr(c.Body),
		})
	}

	reviewRequest := &github.PullRequestReviewRequest{
		Body:     github.Ptr(body),
		Event:    github.Ptr(string(event)),
		Comments: ghComments,
	}
	if commitID != "" {
		reviewRequest.CommitID = github.Ptr(commitID)
	}

	created, _, err := g.client.PullRequests.CreateReview(ctx, owner, repo, number, reviewRequest)
	if err != nil {
		g.logger.Error("failed to create pull request review", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	review := toCoreReview(created)
	return &review, nil
}

// UpdateReview replaces the body of an existing review.
func (g *gitHubClient) UpdateReview(ctx context.Context, owner, repo string, number int, reviewID int64, body string) error {
	_, _, err := g.client.PullRequests.UpdateReview(ctx, owner, repo, number, reviewID, body)
	if err != nil {
		g.logger.Error("failed to update review", "owner", owner, "repo", repo, "pr", number, "review_id", reviewID, "error", err)
	}
	return err
}

// ListReviewComments returns the inline comments attached to a single review.
func (g *gitHubClient) ListReviewComments(ctx context.Context, owner, repo string, number int, reviewID int64) ([]core.ReviewComment, error) {
	var all []core.ReviewComment
	opts := &github.ListOptions{PerPage: perPage}

	for {
		comments, resp, err := g.client.PullRequests.ListReviewComments(ctx, owner, repo, number, reviewID, opts)
		if err != nil {
			g.logger.Error("failed to list review comments", "owner", owner, "repo", repo, "pr", number, "review_id", reviewID, "error", err)
			return nil, err
		}
		for _, c := range comments {
			all = append(all, core.ReviewComment{
				ID:       c.GetID(),
				ReviewID: c.GetPullRequestReviewID(),
				Path:     c.GetPath(),
				Position: c.GetPosition(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// DeleteReviewComment deletes a single inline review comment.
func (g *gitHubClient) DeleteReviewComment(ctx context.Context, owner, repo string, commentID int64) error {
	_, err := g.client.PullRequests.DeleteComment(ctx, owner, repo, commentID)
	if err != nil {
		g.logger.Error("failed to delete review comment", "owner", owner, "repo", repo, "comment_id", commentID, "error", err)
	}
	return err
}

func toCoreReview(r *github.PullRequestReview) core.Review {
	review := core.Review{
		ID:       r.GetID(),
		HTMLURL:  r.GetHTMLURL(),
		Body:     r.GetBody(),
		State:    r.GetState(),
		Author:   r.GetUser().GetLogin(),
		CommitID: r.GetCommitID(),
	}
	if r.SubmittedAt != nil {
		review.SubmittedAt = r.SubmittedAt.Time
	}
	switch r.GetState() {
	case "APPROVED":
		review.Event = core.EventApprove
	case "CHANGES_REQUESTED":
		review.Event = core.EventRequestChanges
	default:
		review.Event = core.EventComment
	}
	return review
}
