package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/azretail/chainscan/internal/model"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape store listings from one source or all of them",
	Long:  "Fetches a chain's store locator, normalizes coordinates and writes <data_dir>/<chain>.csv.",
}

func newScrapeSourceCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			return scrapeStage(ctx, st, os.Stdout, []string{name})
		},
	}
}

func init() {
	for _, c := range model.Chains() {
		scrapeCmd.AddCommand(newScrapeSourceCmd(c.Slug(), fmt.Sprintf("Scrape %s store listings", c)))
	}
	scrapeCmd.AddCommand(newScrapeSourceCmd("all", "Scrape every enabled source in parallel"))
	rootCmd.AddCommand(scrapeCmd)
}
