package core

import (
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo() *github.Repository {
	return &github.Repository{
		Name:     github.Ptr("expo"),
		FullName: github.Ptr("expo/expo"),
		CloneURL: github.Ptr("https://github.com/expo/expo.git"),
		Owner:    &github.User{Login: github.Ptr("expo")},
	}
}

func TestEventFromPullRequest(t *testing.T) {
	tests := []struct {
		name    string
		event   *github.PullRequestEvent
		wantErr bool
	}{
		{
			name: "opened",
			event: &github.PullRequestEvent{
				Action:       github.Ptr("opened"),
				PullRequest:  &github.PullRequest{Number: github.Ptr(7), Head: &github.PullRequestBranch{SHA: github.Ptr("abc")}},
				Repo:         testRepo(),
				Installation: &github.Installation{ID: github.Ptr(int64(42))},
			},
		},
		{
			name: "closed is ignored",
			event: &github.PullRequestEvent{
				Action:       github.Ptr("closed"),
				PullRequest:  &github.PullRequest{Number: github.Ptr(7)},
				Repo:         testRepo(),
				Installation: &github.Installation{ID: github.Ptr(int64(42))},
			},
			wantErr: true,
		},
		{
			name: "draft is ignored",
			event: &github.PullRequestEvent{
				Action:       github.Ptr("synchronize"),
				PullRequest:  &github.PullRequest{Number: github.Ptr(7), Draft: github.Ptr(true)},
				Repo:         testRepo(),
				Installation: &github.Installation{ID: github.Ptr(int64(42))},
			},
			wantErr: true,
		},
		{
			name: "missing installation",
			event: &github.PullRequestEvent{
				Action:      github.Ptr("reopened"),
				PullRequest: &github.PullRequest{Number: github.Ptr(7)},
				Repo:        testRepo(),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := EventFromPullRequest(tt.event)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "expo", ev.RepoOwner)
			assert.Equal(t, "expo/expo", ev.RepoFullName)
			assert.Equal(t, 7, ev.PRNumber)
			assert.Equal(t, "abc", ev.HeadSHA)
			assert.Equal(t, int64(42), ev.InstallationID)
		})
	}
}

func TestEventFromIssueComment(t *testing.T) {
	prIssue := &github.Issue{
		Number:           github.Ptr(12),
		PullRequestLinks: &github.PullRequestLinks{URL: github.Ptr("https://api.github.com/repos/expo/expo/pulls/12")},
	}

	ev, err := EventFromIssueComment(&github.IssueCommentEvent{
		Action:       github.Ptr("created"),
		Issue:        prIssue,
		Comment:      &github.IssueComment{Body: github.Ptr("  /Review ")},
		Repo:         testRepo(),
		Installation: &github.Installation{ID: github.Ptr(int64(1))},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, ev.PRNumber)
	assert.Equal(t, "/review", ev.Trigger)

	_, err = EventFromIssueComment(&github.IssueCommentEvent{
		Action:       github.Ptr("created"),
		Issue:        prIssue,
		Comment:      &github.IssueComment{Body: github.Ptr("looks good")},
		Repo:         testRepo(),
		Installation: &github.Installation{ID: github.Ptr(int64(1))},
	})
	assert.Error(t, err)

	_, err = EventFromIssueComment(&github.IssueCommentEvent{
		Action:       github.Ptr("created"),
		Issue:        &github.Issue{Number: github.Ptr(3)},
		Comment:      &github.IssueComment{Body: github.Ptr("/review")},
		Repo:         testRepo(),
		Installation: &github.Installation{ID: github.Ptr(int64(1))},
	})
	assert.Error(t, err, "plain issues are not reviewable")
}
