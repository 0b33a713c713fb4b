package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-warden/internal/gitutil"
	"github.com/sevigo/review-warden/internal/storage"
)

var outputJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [pr-url]",
	Short: "Show the last review recorded for a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if !env.cfg.Database.Enabled() {
			return errors.New("no database configured, review runs are not recorded")
		}

		store, cleanup, err := env.openStore()
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := store.LatestRun(ctx, owner+"/"+repo, number)
		if errors.Is(err, storage.ErrNotFound) {
			dimColor.Println("No review recorded for this pull request.")
			return nil
		}
		if err != nil {
			return err
		}

		if outputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REVIEW\tEVENT\tHEAD\tFINDINGS\tRECONCILE FAILURES\tCREATED")
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			run.ReviewID, run.Event, shortSHA(run.HeadSHA), run.Findings, run.ReconcileFailures,
			run.CreatedAt.Local().Format(time.DateTime))
		if err := w.Flush(); err != nil {
			return err
		}
		dimColor.Println(run.ReviewURL)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "print the run as JSON")
	rootCmd.AddCommand(statusCmd)
}
