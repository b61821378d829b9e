package main

import (
	"os"

	"github.com/spf13/cobra"
)

var runSources []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape, merge and analyze in one go",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := scrapeStage(ctx, st, os.Stdout, runSources); err != nil {
			return err
		}
		if err := mergeStage(ctx, st, os.Stdout); err != nil {
			return err
		}
		return analyzeStage(ctx, st, os.Stdout)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runSources, "sources", []string{"all"}, "sources to scrape before merging")
	rootCmd.AddCommand(runCmd)
}
