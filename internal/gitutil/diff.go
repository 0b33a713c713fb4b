package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/sevigo/review-warden/internal/core"
)

const devNull = "/dev/null"

// Diff returns the per-file changes between two commits of the repository at path.
func (c *Client) Diff(ctx context.Context, path, from, to string) ([]core.FileDiff, error) {
	repo, err := c.Open(path)
	if err != nil {
		return nil, err
	}

	fromCommit, err := commitObject(repo, from)
	if err != nil {
		return nil, err
	}
	toCommit, err := commitObject(repo, to)
	if err != nil {
		return nil, err
	}

	patch, err := fromCommit.PatchContext(ctx, toCommit)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", from, to, err)
	}

	var buf bytes.Buffer
	if err := patch.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode patch %s..%s: %w", from, to, err)
	}

	files, err := ParseUnifiedDiff(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff %s..%s: %w", from, to, err)
	}
	c.Logger.DebugContext(ctx, "computed diff", "from", from, "to", to, "files", len(files))
	return files, nil
}

// ParseUnifiedDiff converts a multi-file unified diff into FileDiffs, assigning
// every hunk line its GitHub diff position.
func ParseUnifiedDiff(data []byte) ([]core.FileDiff, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	parsed, err := godiff.ParseMultiFileDiff(data)
	if err != nil {
		return nil, err
	}

	files := make([]core.FileDiff, 0, len(parsed))
	for _, fd := range parsed {
		files = append(files, convertFileDiff(fd))
	}
	return files, nil
}

func convertFileDiff(fd *godiff.FileDiff) core.FileDiff {
	oldPath := strings.TrimPrefix(fd.OrigName, "a/")
	newPath := strings.TrimPrefix(fd.NewName, "b/")

	out := core.FileDiff{Path: newPath, OldPath: oldPath}
	switch {
	case fd.OrigName == devNull:
		out.Status = core.FileAdded
		out.OldPath = ""
	case fd.NewName == devNull:
		out.Status = core.FileDeleted
		out.Path = oldPath
	case oldPath != newPath:
		out.Status = core.FileRenamed
	default:
		out.Status = core.FileModified
	}

	// Position 1 is the line right below the first hunk header; every later
	// hunk header occupies a position of its own.
	position := 0
	for i, h := range fd.Hunks {
		if i > 0 {
			position++
		}
		hunk := core.Hunk{
			OldStart: int(h.OrigStartLine),
			OldLines: int(h.OrigLines),
			NewStart: int(h.NewStartLine),
			NewLines: int(h.NewLines),
		}

		newLine := hunk.NewStart
		for _, raw := range splitLines(h.Body) {
			position++
			if raw == "" {
				// Some tools strip the leading space of empty context lines.
				raw = " "
			}
			line := core.DiffLine{Content: raw[1:], Position: position}
			switch raw[0] {
			case '+':
				line.Kind = core.LineAdded
				line.NewLine = newLine
				newLine++
			case '-':
				line.Kind = core.LineRemoved
			case ' ':
				line.Kind = core.LineContext
				line.NewLine = newLine
				newLine++
			default:
				// "\ No newline at end of file"
				continue
			}
			hunk.Lines = append(hunk.Lines, line)
		}
		out.Hunks = append(out.Hunks, hunk)
	}
	return out
}

func splitLines(body []byte) []string {
	s := strings.TrimSuffix(string(body), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
