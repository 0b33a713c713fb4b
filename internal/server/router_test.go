package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/jobs"
	"github.com/sevigo/review-warden/internal/logger"
)

const secret = "s3cr3t"

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*core.GitHubEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, e *core.GitHubEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Stop() {}

const pullRequestPayload = `{
  "action": %q,
  "number": 42,
  "pull_request": {"number": 42, "draft": %t, "head": {"sha": "head"}},
  "repository": {"name": "expo", "full_name": "expo/expo", "clone_url": "https://github.com/expo/expo.git", "owner": {"login": "expo"}},
  "installation": {"id": 7}
}`

const commentPayload = `{
  "action": "created",
  "issue": {"number": 42, "pull_request": {"url": "https://api.github.com/repos/expo/expo/pulls/42"}},
  "comment": {"body": %q},
  "repository": {"name": "expo", "full_name": "expo/expo", "clone_url": "https://github.com/expo/expo.git", "owner": {"login": "expo"}},
  "installation": {"id": 7}
}`

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func send(t *testing.T, h http.Handler, eventType, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/github", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-Hub-Signature-256", signature)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(d core.JobDispatcher) http.Handler {
	cfg := &config.Config{GitHub: config.GitHubConfig{WebhookSecret: secret}}
	return NewRouter(cfg, d, logger.Discard())
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&recordingDispatcher{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestWebhook_PullRequest(t *testing.T) {
	tests := []struct {
		action   string
		draft    bool
		accepted bool
	}{
		{"opened", false, true},
		{"synchronize", false, true},
		{"reopened", false, true},
		{"ready_for_review", false, true},
		{"opened", true, false},
		{"closed", false, false},
		{"labeled", false, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s draft=%t", tt.action, tt.draft), func(t *testing.T) {
			d := &recordingDispatcher{}
			body := fmt.Sprintf(pullRequestPayload, tt.action, tt.draft)
			rec := send(t, newTestRouter(d), "pull_request", body, sign(body))

			if tt.accepted {
				assert.Equal(t, http.StatusAccepted, rec.Code)
				require.Len(t, d.events, 1)
				assert.Equal(t, "expo/expo", d.events[0].RepoFullName)
				assert.Equal(t, 42, d.events[0].PRNumber)
				assert.Equal(t, "head", d.events[0].HeadSHA)
				assert.Equal(t, int64(7), d.events[0].InstallationID)
			} else {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Empty(t, d.events)
			}
		})
	}
}

func TestWebhook_ReviewComment(t *testing.T) {
	d := &recordingDispatcher{}
	h := newTestRouter(d)

	body := fmt.Sprintf(commentPayload, "/review")
	assert.Equal(t, http.StatusAccepted, send(t, h, "issue_comment", body, sign(body)).Code)

	body = fmt.Sprintf(commentPayload, "looks good")
	assert.Equal(t, http.StatusOK, send(t, h, "issue_comment", body, sign(body)).Code)

	require.Len(t, d.events, 1)
	assert.Equal(t, "/review", d.events[0].Trigger)
}

func TestWebhook_InvalidSignature(t *testing.T) {
	d := &recordingDispatcher{}
	body := fmt.Sprintf(pullRequestPayload, "opened", false)
	rec := send(t, newTestRouter(d), "pull_request", body, "sha256=deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, d.events)
}

func TestWebhook_QueueFull(t *testing.T) {
	d := &recordingDispatcher{err: fmt.Errorf("%w: busy", jobs.ErrQueueFull)}
	body := fmt.Sprintf(pullRequestPayload, "opened", false)
	rec := send(t, newTestRouter(d), "pull_request", body, sign(body))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebhook_UnhandledEvent(t *testing.T) {
	body := `{"ref": "refs/heads/main"}`
	rec := send(t, newTestRouter(&recordingDispatcher{}), "push", body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not handled")
}
