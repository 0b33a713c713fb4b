package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/review-warden/internal/config"
)

// CreateInstallationClient creates a GitHub client that is authenticated as a specific
// application installation. It returns the client and the raw installation token,
// which is also needed to fetch from the repository.
//
// Installation tokens cannot call /user, so the actor is resolved from the App's
// slug ("<slug>[bot]") unless github.bot_login is configured.
func CreateInstallationClient(ctx context.Context, cfg *config.Config, installationID int64, logger *slog.Logger) (Client, string, error) {
	logger.Info("creating GitHub installation client", "installation_id", installationID)

	privateKey, err := os.ReadFile(cfg.GitHub.PrivateKeyPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read private key from %s: %w", cfg.GitHub.PrivateKeyPath, err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.GitHub.AppID, privateKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	actor := cfg.GitHub.BotLogin
	if actor == "" {
		app, _, err := appClient.Apps.Get(ctx, "")
		if err != nil {
			return nil, "", fmt.Errorf("failed to look up GitHub App: %w", err)
		}
		if app.GetSlug() == "" {
			return nil, "", fmt.Errorf("GitHub App has no slug")
		}
		actor = app.GetSlug() + "[bot]"
	}

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create installation token for installation ID %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return nil, "", fmt.Errorf("received an empty installation token")
	}
	logger.Info("created installation token", "installation_id", installationID, "expires_at", token.GetExpiresAt(), "actor", actor)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.GetToken()})
	tc := oauth2.NewClient(ctx, ts)

	return NewGitHubClient(github.NewClient(tc), logger, WithActor(actor)), token.GetToken(), nil
}
