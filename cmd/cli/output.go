package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/review"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

const markdownWidth = 100

// printer writes human-readable command output.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) header(target string) {
	titleColor.Fprintln(p.w, "🔎 review-warden")
	dimColor.Fprintf(p.w, "   Target: %s\n\n", target)
}

func (p *printer) result(res *review.Result) {
	pr := res.PullRequest
	dimColor.Fprintf(p.w, "   %s (head %s, merge base %s)\n", pr.Title, shortSHA(pr.HeadSHA), shortSHA(res.MergeBaseSHA))

	for _, ce := range res.CheckErrors {
		errorColor.Fprintf(p.w, "   ✗ check %s failed: %v\n", ce.Reviewer, ce.Err)
	}

	if len(res.Findings) == 0 {
		successColor.Fprintln(p.w, "\n✅ No issues found, nothing posted.")
		return
	}

	for _, f := range res.Findings {
		p.severityBadge(f.Severity)
		title := f.Title
		if title == "" {
			title = fmt.Sprintf("%d inline comment(s)", len(f.Comments))
		}
		boldColor.Fprintf(p.w, " %s\n", title)
	}
	fmt.Fprintln(p.w)

	if res.DryRun {
		warnColor.Fprintf(p.w, "Dry run: a %s review would be posted with %d inline comment(s).\n\n", res.Event, len(res.Comments))
		fmt.Fprintln(p.w, renderMarkdown(res.Body))
		for _, c := range res.Comments {
			dimColor.Fprintf(p.w, "   %s@%d: %s\n", c.Path, c.Position, c.Body)
		}
		return
	}

	successColor.Fprintf(p.w, "✅ Posted %s review: %s\n", res.Event, res.Review.HTMLURL)
	if len(res.PastReviews) > 0 {
		dimColor.Fprintf(p.w, "   Superseded %d earlier review(s)\n", len(res.PastReviews))
	}
	if res.ReconcileErr != nil {
		warnColor.Fprintf(p.w, "⚠️  Some earlier reviews could not be updated, run `review-warden reconcile` to retry:\n")
		for _, line := range strings.Split(res.ReconcileErr.Error(), "\n") {
			dimColor.Fprintf(p.w, "   %s\n", line)
		}
	}
}

func (p *printer) reconciled(latest *core.Review, err error) {
	if latest == nil {
		if err == nil {
			dimColor.Fprintln(p.w, "No reviews by this account, nothing to reconcile.")
		}
		return
	}
	if err == nil {
		successColor.Fprintf(p.w, "✅ Earlier reviews now point to %s\n", latest.HTMLURL)
		return
	}
	if errors.Is(err, review.ErrReconciliation) {
		warnColor.Fprintf(p.w, "⚠️  Reconciliation against %s is incomplete\n", latest.HTMLURL)
	}
}

func (p *printer) severityBadge(s core.Severity) {
	switch s {
	case core.SeverityError:
		color.New(color.BgRed, color.FgWhite, color.Bold).Fprintf(p.w, " %s ", s)
	case core.SeverityWarn:
		color.New(color.BgYellow, color.FgBlack).Fprintf(p.w, " %s ", s)
	default:
		color.New(color.BgGreen, color.FgWhite).Fprintf(p.w, " %s ", s)
	}
}

// renderMarkdown renders a review body for the terminal, falling back to
// the raw markdown when rendering fails.
func renderMarkdown(body string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return strings.TrimRight(out, "\n")
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
