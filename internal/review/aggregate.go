package review

import (
	"fmt"
	"strings"

	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/github"
)

const reviewGreeting = "Hi there! 👋 I've found some issues in your pull request that should be addressed 👇"

// ReviewEvent requests changes when any finding is an error and comments otherwise.
// Approval is left to humans, so APPROVE is never returned.
func ReviewEvent(findings []core.Finding) core.ReviewEvent {
	for _, f := range findings {
		if f.Severity >= core.SeverityError {
			return core.EventRequestChanges
		}
	}
	return core.EventComment
}

// ReviewBody renders one collapsible section per finding that has both a
// title and a body, in finding order, between a greeting and a footer naming
// the commit the checks ran against.
func ReviewBody(findings []core.Finding, commitSHA, botName string) string {
	sections := make([]string, 0, len(findings))
	for _, f := range findings {
		if !f.HasSection() {
			continue
		}
		sections = append(sections, fmt.Sprintf("<details>\n  <summary><strong>%s</strong>: %s</summary>\n\n\\\n%s\n</details>",
			severityPrefix(f.Severity), f.Title, f.Body))
	}

	if botName == "" {
		botName = "Review Warden"
	}
	return fmt.Sprintf("%s\n\n%s\n\n*Generated by %s 🤖 against %s*\n",
		reviewGreeting, strings.Join(sections, "\n"), botName, commitSHA)
}

// ReviewComments concatenates the inline comments of all findings in order.
// Comments at the same place from different checks are all kept.
func ReviewComments(findings []core.Finding) []core.InlineComment {
	var comments []core.InlineComment
	for _, f := range findings {
		comments = append(comments, f.Comments...)
	}
	return comments
}

// SupersededBody is the body written over reviews replaced by a newer one.
func SupersededBody(latestURL string) string {
	return fmt.Sprintf("*The review previously left here is no longer valid, jump to the latest one 👉 %s*", latestURL)
}

func severityPrefix(s core.Severity) string {
	switch s {
	case core.SeveritySuccess:
		return "✅ Success"
	case core.SeverityWarn:
		return "⚠️ Warning"
	case core.SeverityError:
		return "❌ Error"
	default:
		return "ℹ️ Info"
	}
}

func toDraftComments(comments []core.InlineComment) []github.DraftReviewComment {
	drafts := make([]github.DraftReviewComment, 0, len(comments))
	for _, c := range comments {
		drafts = append(drafts, github.DraftReviewComment{Path: c.Path, Position: c.Position, Body: c.Body})
	}
	return drafts
}
