package core

import "fmt"

// PullRequest is the subset of pull request metadata the reviewer works with.
type PullRequest struct {
	Owner    string
	Repo     string
	Number   int
	Title    string
	Draft    bool
	BaseRef  string
	BaseSHA  string
	HeadRef  string
	HeadSHA  string
	CloneURL string
	HTMLURL  string
}

// FullName returns "owner/repo".
func (p *PullRequest) FullName() string {
	return fmt.Sprintf("%s/%s", p.Owner, p.Repo)
}

// FileStatus describes how a file changed between two commits.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileDeleted  FileStatus = "deleted"
	FileRenamed  FileStatus = "renamed"
)

// LineKind is the kind of a single line inside a diff hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// DiffLine is one line of a hunk body.
type DiffLine struct {
	Kind    LineKind
	Content string
	// NewLine is the line number in the new file, 0 for removed lines.
	NewLine int
	// Position is the GitHub diff position: the 1-based offset of this line
	// below the first hunk header of the file.
	Position int
}

// Hunk is a contiguous block of changes.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []DiffLine
}

// FileDiff holds the changes made to a single file.
type FileDiff struct {
	Path    string
	OldPath string
	Status  FileStatus
	Hunks   []Hunk
}

// AddedLines returns all added lines of the file in diff order.
func (f FileDiff) AddedLines() []DiffLine {
	var added []DiffLine
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineAdded {
				added = append(added, l)
			}
		}
	}
	return added
}

// Package is a monorepo package with an optional changelog.
// Paths are relative to the repository root and use forward slashes.
type Package struct {
	Name          string
	Path          string
	ChangelogPath string
}
