package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/review-warden/internal/gitutil"
	"github.com/sevigo/review-warden/internal/packages"
	"github.com/sevigo/review-warden/internal/review"
	"github.com/sevigo/review-warden/internal/reviewers"
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Review a GitHub pull request",
	Long: `Review a GitHub pull request using a local clone of its repository.

The base and head commits are fetched from the configured remote, every
check runs against the diff between the merge base and the head, and one
review is posted. Earlier reviews by the same account are marked as
superseded.

Package discovery and changelog lookups read the files of the working
tree. Unless --checkout is given they see whatever is checked out in
--repo, so packages or changelogs added by the pull request are only
found with --checkout, which detaches HEAD at the pull request head.

Examples:
  review-warden review https://github.com/owner/repo/pull/123
  review-warden review owner/repo#123 --repo ../repo --dry-run
  review-warden review owner/repo#123 --checkout`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().String("repo", "", "path to a local clone of the repository (default \".\")")
	reviewCmd.Flags().String("remote", "", "git remote to fetch from (default \"origin\")")
	reviewCmd.Flags().Bool("dry-run", false, "compose the review without posting it")
	reviewCmd.Flags().Bool("checkout", false, "check out the pull request head before running checks")

	for key, flag := range map[string]string{
		"review.repo_path":     "repo",
		"review.remote":        "remote",
		"review.dry_run":       "dry-run",
		"review.checkout_head": "checkout",
	} {
		if err := viper.BindPFlag(key, reviewCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	owner, repo, number, err := gitutil.ParsePullRequestURL(args[0])
	if err != nil {
		return fmt.Errorf("invalid PR reference: %w\n\nExpected https://github.com/owner/repo/pull/123 or owner/repo#123", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := newCLIEnv(ctx)
	if err != nil {
		return err
	}

	store, cleanup, err := env.openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	rs := reviewers.Default(packages.NewLister(env.logger), env.logger)
	runner := review.NewRunner(env.client, gitutil.NewClient(env.logger), rs, review.OptionsFromConfig(env.cfg), env.logger).
		WithRecorder(store)

	ui := newPrinter(os.Stdout)
	ui.header(fmt.Sprintf("%s/%s#%d", owner, repo, number))

	res, err := runner.Run(ctx, review.Request{
		Owner:    owner,
		Repo:     repo,
		Number:   number,
		RepoPath: env.cfg.Review.RepoPath,
	})
	if err != nil {
		return err
	}

	ui.result(res)
	return nil
}
