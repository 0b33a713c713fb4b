package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-warden/internal/gitutil"
	"github.com/sevigo/review-warden/internal/review"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [pr-url]",
	Short: "Mark earlier reviews as superseded by the latest one",
	Long: `Treat the most recent review posted by the configured account as current
and mark every earlier one as superseded, deleting the inline comments of
the one right before it. Use it to repair a pull request after a run that
posted its review but could not finish cleaning up.`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	owner, repo, number, err := gitutil.ParsePullRequestURL(args[0])
	if err != nil {
		return fmt.Errorf("invalid PR reference: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := newCLIEnv(ctx)
	if err != nil {
		return err
	}

	reconciler := review.NewReconciler(env.client, env.logger, env.cfg.Review.ReconcileConcurrency, env.cfg.Review.APITimeout)
	latest, err := reconciler.ReconcileLatest(ctx, owner, repo, number)

	ui := newPrinter(os.Stdout)
	ui.reconciled(latest, err)
	return err
}
