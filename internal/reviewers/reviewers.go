// Package reviewers contains the checks run against every pull request.
package reviewers

import (
	"log/slog"

	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/packages"
)

// Default returns the fixed, ordered list of reviewers. The order is the
// order of sections and inline comments in the composed review.
func Default(lister packages.Lister, logger *slog.Logger) []core.Reviewer {
	return []core.Reviewer{
		NewChangelogReviewer(lister, logger),
		NewConflictMarkerReviewer(),
	}
}
