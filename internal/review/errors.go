package review

import (
	"errors"
	"fmt"
)

// Failure categories of a review run. Lookup, sync and submission failures
// abort the run; check and reconciliation failures are isolated per item.
var (
	ErrLookup         = errors.New("lookup failed")
	ErrSync           = errors.New("sync failed")
	ErrCheck          = errors.New("check failed")
	ErrSubmission     = errors.New("submission failed")
	ErrReconciliation = errors.New("reconciliation failed")
)

// CheckError records a reviewer that failed, panicked or timed out.
type CheckError struct {
	Reviewer string
	Err      error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: reviewer %q: %v", ErrCheck, e.Reviewer, e.Err)
}

// Unwrap exposes both the category and the cause to errors.Is/As.
func (e *CheckError) Unwrap() []error {
	return []error{ErrCheck, e.Err}
}

// ReconcileError records a single past review or comment that could not be cleaned up.
type ReconcileError struct {
	Op        string
	ReviewID  int64
	CommentID int64
	Err       error
}

func (e *ReconcileError) Error() string {
	if e.CommentID != 0 {
		return fmt.Sprintf("%s: %s comment %d of review %d: %v", ErrReconciliation, e.Op, e.CommentID, e.ReviewID, e.Err)
	}
	return fmt.Sprintf("%s: %s review %d: %v", ErrReconciliation, e.Op, e.ReviewID, e.Err)
}

// Unwrap exposes both the category and the cause to errors.Is/As.
func (e *ReconcileError) Unwrap() []error {
	return []error{ErrReconciliation, e.Err}
}
