package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsmantis/mantis/internal/app"
	"github.com/opsmantis/mantis/internal/config"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the manual retrieval index",
	Long: `Reindex regenerates the retrieval index from the configured manuals
directory. The new index replaces the old one atomically; in-flight
lookups finish against the index they started with.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer func() { _ = a.Close() }()

	status, err := a.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	fmt.Println(status)
	return nil
}
