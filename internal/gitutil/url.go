package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	prURLRegex   = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)
	prShortRegex = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)#(\d+)$`)
)

// ParsePullRequestURL parses a pull request reference and extracts the owner, repo, and PR number.
// Supported formats:
//
//	https://github.com/{owner}/{repo}/pull/{number}
//	{owner}/{repo}#{number}
func ParsePullRequestURL(ref string) (owner, repo string, prNumber int, err error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")

	matches := prURLRegex.FindStringSubmatch(ref)
	if len(matches) != 4 {
		matches = prShortRegex.FindStringSubmatch(ref)
	}
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("invalid pull request reference: %s", ref)
	}

	prNumber, err = strconv.Atoi(matches[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid PR number '%s': %w", matches[3], err)
	}
	if prNumber <= 0 {
		return "", "", 0, fmt.Errorf("PR number must be positive, got %d", prNumber)
	}

	return matches[1], matches[2], prNumber, nil
}
