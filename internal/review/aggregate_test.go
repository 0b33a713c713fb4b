package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/review-warden/internal/core"
)

func TestReviewEvent(t *testing.T) {
	tests := []struct {
		name     string
		findings []core.Finding
		want     core.ReviewEvent
	}{
		{"single warning", []core.Finding{{Severity: core.SeverityWarn}}, core.EventComment},
		{"success only", []core.Finding{{Severity: core.SeveritySuccess}}, core.EventComment},
		{"any error", []core.Finding{{Severity: core.SeverityWarn}, {Severity: core.SeverityError}}, core.EventRequestChanges},
		{"no findings", nil, core.EventComment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReviewEvent(tt.findings))
		})
	}
}

func TestReviewBody(t *testing.T) {
	findings := []core.Finding{
		{Severity: core.SeverityWarn, Title: "Missing changelog entries", Body: "- [a](b)"},
		{Severity: core.SeverityError, Comments: []core.InlineComment{{Path: "x.go", Position: 1, Body: "boom"}}},
		{Severity: core.SeverityError, Title: "Conflict markers", Body: "fix them"},
	}

	want := "Hi there! 👋 I've found some issues in your pull request that should be addressed 👇\n\n" +
		"<details>\n  <summary><strong>⚠️ Warning</strong>: Missing changelog entries</summary>\n\n\\\n- [a](b)\n</details>\n" +
		"<details>\n  <summary><strong>❌ Error</strong>: Conflict markers</summary>\n\n\\\nfix them\n</details>\n\n" +
		"*Generated by Review Warden 🤖 against abc123*\n"

	assert.Equal(t, want, ReviewBody(findings, "abc123", "Review Warden"))
	assert.Equal(t, ReviewBody(findings, "abc123", "Review Warden"), ReviewBody(findings, "abc123", "Review Warden"))
}

func TestReviewBody_SectionOrderFollowsFindings(t *testing.T) {
	a := core.Finding{Severity: core.SeverityWarn, Title: "A", Body: "a"}
	b := core.Finding{Severity: core.SeveritySuccess, Title: "B", Body: "b"}

	body := ReviewBody([]core.Finding{a, b}, "sha", "bot")
	assert.Less(t, strings.Index(body, "</strong>: A"), strings.Index(body, "</strong>: B"))
	assert.Contains(t, body, "✅ Success")
	assert.Contains(t, body, "*Generated by bot 🤖 against sha*")
}

func TestReviewComments(t *testing.T) {
	c1 := core.InlineComment{Path: "a.go", Position: 3, Body: "one"}
	c2 := core.InlineComment{Path: "a.go", Position: 3, Body: "two"}
	c3 := core.InlineComment{Path: "b.go", Position: 1, Body: "three"}

	got := ReviewComments([]core.Finding{
		{Comments: []core.InlineComment{c1}},
		{},
		{Comments: []core.InlineComment{c2, c3}},
	})
	assert.Equal(t, []core.InlineComment{c1, c2, c3}, got)
	assert.Empty(t, ReviewComments(nil))
}

func TestSupersededBody(t *testing.T) {
	assert.Equal(t,
		"*The review previously left here is no longer valid, jump to the latest one 👉 https://github.com/o/r/pull/1#pullrequestreview-9*",
		SupersededBody("https://github.com/o/r/pull/1#pullrequestreview-9"))
}
