package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/github"
	"github.com/sevigo/review-warden/internal/logger"
	"github.com/sevigo/review-warden/internal/review"
	"github.com/sevigo/review-warden/mocks"
)

type fakeWorkspace struct {
	cloneURL, clonePath, token string
	cloneErr                   error
	checkedOut                 string
}

func (w *fakeWorkspace) EnsureClone(_ context.Context, repoURL, path, token string) error {
	w.cloneURL, w.clonePath, w.token = repoURL, path, token
	return w.cloneErr
}

func (w *fakeWorkspace) Fetch(context.Context, string, string, string) error { return nil }

func (w *fakeWorkspace) MergeBase(context.Context, string, string, string) (string, error) {
	return "mb", nil
}

func (w *fakeWorkspace) Diff(context.Context, string, string, string) ([]core.FileDiff, error) {
	return []core.FileDiff{{Path: "a.go", Status: core.FileModified}}, nil
}

func (w *fakeWorkspace) Checkout(_ context.Context, _, sha string) error {
	w.checkedOut = sha
	return nil
}

func validEvent() *core.GitHubEvent {
	return &core.GitHubEvent{
		RepoOwner:      "expo",
		RepoName:       "expo",
		RepoFullName:   "expo/expo",
		RepoCloneURL:   "https://github.com/expo/expo.git",
		PRNumber:       42,
		HeadSHA:        "head",
		InstallationID: 7,
	}
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		GitHub:  config.GitHubConfig{BotName: "Review Warden"},
		Review:  config.ReviewConfig{Remote: "origin", ReconcileConcurrency: 2},
		Storage: config.StorageConfig{RepoPath: t.TempDir()},
	}
}

func TestReviewJob_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	pr := &core.PullRequest{Owner: "expo", Repo: "expo", Number: 42, BaseSHA: "base", HeadSHA: "head"}

	client.EXPECT().GetPullRequest(gomock.Any(), "expo", "expo", 42).Return(pr, nil)
	client.EXPECT().GetAuthenticatedActor(gomock.Any()).Return("review-warden[bot]", nil)
	client.EXPECT().ListReviews(gomock.Any(), "expo", "expo", 42).Return(nil, nil)
	client.EXPECT().CreateReview(gomock.Any(), "expo", "expo", 42, "head", gomock.Any(), core.EventComment, gomock.Any()).
		Return(&core.Review{ID: 1, HTMLURL: "u"}, nil)

	cfg := testConfig(t)
	ws := &fakeWorkspace{}
	var gotInstallation int64
	factory := func(_ context.Context, id int64) (github.Client, string, error) {
		gotInstallation = id
		return client, "installation-token", nil
	}
	warn := core.ReviewerFunc{ID: "warn", Fn: func(context.Context, *core.ReviewInput) (*core.Finding, error) {
		return &core.Finding{Severity: core.SeverityWarn, Title: "T", Body: "B"}, nil
	}}

	job := NewReviewJob(cfg, factory, ws, []core.Reviewer{warn}, nil, logger.Discard())
	require.NoError(t, job.Run(context.Background(), validEvent()))

	assert.Equal(t, int64(7), gotInstallation)
	assert.Equal(t, "installation-token", ws.token)
	assert.Equal(t, filepath.Join(cfg.Storage.RepoPath, "expo", "expo"), ws.clonePath)
	assert.Equal(t, "head", ws.checkedOut)
}

func TestReviewJob_Failures(t *testing.T) {
	t.Run("invalid event", func(t *testing.T) {
		job := NewReviewJob(testConfig(t), func(context.Context, int64) (github.Client, string, error) {
			t.Fatal("client must not be created")
			return nil, "", nil
		}, &fakeWorkspace{}, nil, nil, logger.Discard())

		e := validEvent()
		e.RepoFullName = "../etc"
		assert.Error(t, job.Run(context.Background(), e))
	})

	t.Run("client creation", func(t *testing.T) {
		job := NewReviewJob(testConfig(t), func(context.Context, int64) (github.Client, string, error) {
			return nil, "", errors.New("bad key")
		}, &fakeWorkspace{}, nil, nil, logger.Discard())
		assert.ErrorContains(t, job.Run(context.Background(), validEvent()), "bad key")
	})

	t.Run("clone", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		job := NewReviewJob(testConfig(t), func(context.Context, int64) (github.Client, string, error) {
			return client, "tok", nil
		}, &fakeWorkspace{cloneErr: errors.New("disk full")}, nil, nil, logger.Discard())
		assert.ErrorIs(t, job.Run(context.Background(), validEvent()), review.ErrSync)
	})
}

func TestValidateEvent(t *testing.T) {
	assert.NoError(t, validateEvent(validEvent()))
	assert.Error(t, validateEvent(nil))

	mutations := map[string]func(e *core.GitHubEvent){
		"owner":        func(e *core.GitHubEvent) { e.RepoOwner = "" },
		"name":         func(e *core.GitHubEvent) { e.RepoName = "" },
		"full name":    func(e *core.GitHubEvent) { e.RepoFullName = "" },
		"absolute":     func(e *core.GitHubEvent) { e.RepoFullName = "/expo/expo" },
		"clone url":    func(e *core.GitHubEvent) { e.RepoCloneURL = "" },
		"pr number":    func(e *core.GitHubEvent) { e.PRNumber = 0 },
		"installation": func(e *core.GitHubEvent) { e.InstallationID = 0 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			e := validEvent()
			mutate(e)
			assert.Error(t, validateEvent(e))
		})
	}
}
