package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azretail/chainscan/internal/config"
	"github.com/azretail/chainscan/internal/dataset"
	"github.com/azretail/chainscan/internal/extract"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "chainscan",
	Short: "Supermarket store locator scraper and market analysis",
	Long: "Scrapes the store locators of OBA, ARAZ, BRAVO, TAM and RAHAT, normalizes their " +
		"coordinates, merges them into one table and renders market-share charts and reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(commandMode(cmd)); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// commandMode names the top-level command cmd belongs to, e.g. "scrape"
// for "chainscan scrape oba".
func commandMode(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// describeError turns failed preconditions into a sentence for the terminal.
func describeError(err error) string {
	var missing *dataset.MissingSourceError
	switch {
	case errors.As(err, &missing):
		names := make([]string, len(missing.Chains))
		slugs := make([]string, len(missing.Chains))
		for i, c := range missing.Chains {
			names[i] = string(c)
			slugs[i] = c.Slug()
		}
		dir := "data"
		if cfg != nil {
			dir = cfg.Paths.DataDir
		}
		hint := "all"
		if len(slugs) == 1 {
			hint = slugs[0]
		}
		return fmt.Sprintf("no scraped table for %s in %s; run `chainscan scrape %s` first",
			strings.Join(names, ", "), dir, hint)
	case errors.Is(err, extract.ErrNoListings):
		return fmt.Sprintf("%v; the site layout has probably changed", err)
	case errors.Is(err, errNoCombined):
		return err.Error()
	case errors.Is(err, context.Canceled):
		return "interrupted"
	default:
		return err.Error()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "chainscan:", describeError(err))
		os.Exit(1)
	}
}
