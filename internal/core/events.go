package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// GitHubEvent represents a simplified, internal view of a GitHub webhook event
// that should trigger a review.
type GitHubEvent struct {
	RepoOwner    string
	RepoName     string
	RepoFullName string
	RepoCloneURL string

	PRNumber int
	HeadSHA  string

	// Trigger is the webhook action or command that produced the event.
	Trigger        string
	InstallationID int64
}

// reviewActions are the pull_request actions that change what needs reviewing.
var reviewActions = map[string]bool{
	"opened":           true,
	"synchronize":      true,
	"reopened":         true,
	"ready_for_review": true,
}

// EventFromPullRequest transforms a raw PullRequestEvent into a GitHubEvent.
// Draft pull requests and actions that don't change the code are rejected.
func EventFromPullRequest(event *github.PullRequestEvent) (*GitHubEvent, error) {
	action := event.GetAction()
	if !reviewActions[action] {
		return nil, fmt.Errorf("pull request action %q does not trigger a review", action)
	}

	pr := event.GetPullRequest()
	if pr == nil || pr.GetNumber() <= 0 {
		return nil, fmt.Errorf("pull request information is missing from the event")
	}
	if pr.GetDraft() {
		return nil, fmt.Errorf("pull request #%d is a draft", pr.GetNumber())
	}

	repo := event.GetRepo()
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &GitHubEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		RepoCloneURL:   repo.GetCloneURL(),
		PRNumber:       pr.GetNumber(),
		HeadSHA:        pr.GetHead().GetSHA(),
		Trigger:        action,
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

// EventFromIssueComment transforms a raw IssueCommentEvent into a GitHubEvent.
// Only "/review" comments on pull requests are accepted.
func EventFromIssueComment(event *github.IssueCommentEvent) (*GitHubEvent, error) {
	if event.GetAction() != "" && event.GetAction() != "created" {
		return nil, fmt.Errorf("comment action %q is ignored", event.GetAction())
	}

	if !event.GetIssue().IsPullRequest() {
		return nil, fmt.Errorf("comment is not on a pull request")
	}

	if !strings.EqualFold(strings.TrimSpace(event.GetComment().GetBody()), "/review") {
		return nil, fmt.Errorf("comment is not a review command")
	}

	repo := event.GetRepo()
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	prNumber := event.GetIssue().GetNumber()
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &GitHubEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		RepoCloneURL:   repo.GetCloneURL(),
		PRNumber:       prNumber,
		Trigger:        "/review",
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

func validateRepo(repo *github.Repository) error {
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return fmt.Errorf("repository or owner information is missing from the event")
	}
	return nil
}
