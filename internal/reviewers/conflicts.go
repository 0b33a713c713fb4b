package reviewers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sevigo/review-warden/internal/core"
)

// ConflictMarkerReviewer fails pull requests that add leftover merge conflict markers.
type ConflictMarkerReviewer struct{}

// NewConflictMarkerReviewer creates the conflict-marker check.
func NewConflictMarkerReviewer() *ConflictMarkerReviewer {
	return &ConflictMarkerReviewer{}
}

// Name implements core.Reviewer.
func (r *ConflictMarkerReviewer) Name() string { return "conflict-markers" }

// Review implements core.Reviewer.
func (r *ConflictMarkerReviewer) Review(_ context.Context, input *core.ReviewInput) (*core.Finding, error) {
	var comments []core.InlineComment
	var files []string

	for _, fd := range input.Diff {
		added := fd.AddedLines()

		// A bare "=======" is a valid setext heading or rule in many formats,
		// so it only counts next to an unambiguous marker.
		hasOpenOrClose := false
		for _, l := range added {
			if marker(l.Content) == "<<<<<<<" || marker(l.Content) == ">>>>>>>" {
				hasOpenOrClose = true
				break
			}
		}

		found := 0
		for _, l := range added {
			m := marker(l.Content)
			if m == "" || (m == "=======" && !hasOpenOrClose) {
				continue
			}
			found++
			comments = append(comments, core.InlineComment{
				Path:     fd.Path,
				Position: l.Position,
				Body:     fmt.Sprintf("This looks like a leftover merge conflict marker (`%s`).", m),
			})
		}
		if found > 0 {
			files = append(files, fmt.Sprintf("- `%s` (%d)", fd.Path, found))
		}
	}

	if len(comments) == 0 {
		return nil, nil
	}

	return &core.Finding{
		Severity: core.SeverityError,
		Title:    "Merge conflict markers",
		Body:     "Resolve the merge conflicts left in the following files:\n" + strings.Join(files, "\n"),
		Comments: comments,
	}, nil
}

func marker(line string) string {
	switch {
	case line == "=======":
		return "======="
	case line == "<<<<<<<" || strings.HasPrefix(line, "<<<<<<< "):
		return "<<<<<<<"
	case line == ">>>>>>>" || strings.HasPrefix(line, ">>>>>>> "):
		return ">>>>>>>"
	default:
		return ""
	}
}
