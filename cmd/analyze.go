package main

import (
	"os"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Render market charts and reports from the combined table",
	Long:  "Writes charts/*.png, reports/insights.md, reports/summary.xlsx and reports/stores.geojson.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return analyzeStage(ctx, st, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
