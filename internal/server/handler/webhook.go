// Package handler provides the HTTP handlers of the webhook server.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/review-warden/internal/config"
	"github.com/sevigo/review-warden/internal/core"
	"github.com/sevigo/review-warden/internal/jobs"
)

// WebhookHandler turns GitHub webhooks into queued review jobs.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given configuration and dispatcher.
func NewWebhookHandler(cfg *config.Config, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle validates the payload signature and dispatches reviewable events.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	if err != nil {
		h.logger.Warn("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warn("could not parse webhook", "type", eventType, "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PingEvent:
		_, _ = fmt.Fprint(w, "pong")
	case *github.PullRequestEvent:
		h.dispatch(r.Context(), w, e.GetRepo().GetFullName(), func() (*core.GitHubEvent, error) {
			return core.EventFromPullRequest(e)
		})
	case *github.IssueCommentEvent:
		h.dispatch(r.Context(), w, e.GetRepo().GetFullName(), func() (*core.GitHubEvent, error) {
			return core.EventFromIssueComment(e)
		})
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

func (h *WebhookHandler) dispatch(ctx context.Context, w http.ResponseWriter, repo string, convert func() (*core.GitHubEvent, error)) {
	reviewEvent, err := convert()
	if err != nil {
		h.logger.Debug("ignoring event", "reason", err.Error(), "repo", repo)
		_, _ = fmt.Fprint(w, "Event ignored")
		return
	}

	if err := h.dispatcher.Dispatch(ctx, reviewEvent); err != nil {
		h.logger.Error("failed to dispatch review job", "error", err, "repo", reviewEvent.RepoFullName, "pr", reviewEvent.PRNumber)
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Failed to start review job", status)
		return
	}

	h.logger.Info("review job dispatched", "repo", reviewEvent.RepoFullName, "pr", reviewEvent.PRNumber, "trigger", reviewEvent.Trigger)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Review job accepted")
}
