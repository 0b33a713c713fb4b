package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-warden/internal/logger"
	"github.com/sevigo/review-warden/internal/packages"
)

var packagesRepo string

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List the packages the changelog check knows about",
	RunE: func(_ *cobra.Command, _ []string) error {
		pkgs, err := packages.NewLister(logger.Discard()).List(packagesRepo)
		if err != nil {
			return err
		}
		if len(pkgs) == 0 {
			dimColor.Println("No packages found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH\tCHANGELOG")
		for _, p := range pkgs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Path, p.ChangelogPath)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	packagesCmd.Flags().StringVar(&packagesRepo, "repo", ".", "path to the repository")
	rootCmd.AddCommand(packagesCmd)
}
