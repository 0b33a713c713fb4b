// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
	"time"
)

// Severity ranks a finding. Higher values are more severe.
type Severity int

const (
	SeveritySuccess Severity = iota + 1
	SeverityWarn
	SeverityError
)

// String returns the upper-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "SUCCESS"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ReviewEvent is the verdict submitted along with a pull request review.
type ReviewEvent string

const (
	EventComment        ReviewEvent = "COMMENT"
	EventApprove        ReviewEvent = "APPROVE"
	EventRequestChanges ReviewEvent = "REQUEST_CHANGES"
)

// InlineComment is a comment anchored to a position in a file's diff.
type InlineComment struct {
	Path     string
	Position int
	Body     string
}

// Finding is the output of a single reviewer check.
// Checks that have nothing to report return a nil *Finding instead of a
// SUCCESS finding.
type Finding struct {
	Severity Severity
	Title    string
	Body     string
	Comments []InlineComment
}

// HasSection reports whether the finding contributes a section to the review body.
func (f *Finding) HasSection() bool {
	return f.Title != "" && f.Body != ""
}

// ReviewInput is the shared, read-only input handed to every reviewer.
type ReviewInput struct {
	PullRequest  *PullRequest
	MergeBaseSHA string
	Diff         []FileDiff
	// RepoPath is the local checkout the diff was computed in.
	RepoPath string
}

// Reviewer is a single, independent check run against a pull request diff.
// Implementations must not share mutable state with other reviewers since
// all of them run concurrently over the same ReviewInput.
type Reviewer interface {
	Name() string
	Review(ctx context.Context, input *ReviewInput) (*Finding, error)
}

// ReviewerFunc adapts a plain function to the Reviewer interface.
type ReviewerFunc struct {
	ID string
	Fn func(ctx context.Context, input *ReviewInput) (*Finding, error)
}

// Name returns the reviewer identifier.
func (r ReviewerFunc) Name() string { return r.ID }

// Review calls the wrapped function.
func (r ReviewerFunc) Review(ctx context.Context, input *ReviewInput) (*Finding, error) {
	return r.Fn(ctx, input)
}

// Review is a pull request review as stored on the code-hosting platform.
type Review struct {
	ID          int64
	HTMLURL     string
	Body        string
	Event       ReviewEvent
	State       string
	Author      string
	CommitID    string
	SubmittedAt time.Time
}

// ReviewComment is an inline comment attached to a submitted review.
type ReviewComment struct {
	ID       int64
	ReviewID int64
	Path     string
	Position int
}

// ReviewRun is a ledger entry describing one submitted automated review.
type ReviewRun struct {
	ID                int64
	RepoFullName      string
	PRNumber          int
	HeadSHA           string
	MergeBaseSHA      string
	ReviewID          int64
	ReviewURL         string
	Event             ReviewEvent
	Findings          int
	ReconcileFailures int
	CreatedAt         time.Time
}
