// Package cmd implements the mantis command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mantis",
	Short: "Mantis is a machine troubleshooting assistant",
	Long: `Mantis answers questions about machine operation by combining
manual retrieval with a language model. Questions are planned into steps,
each step is dispatched to a capability (manual lookup, web search, or
free-form reasoning), and the results are synthesized into a structured
answer with source and confidence.

Running mantis without a subcommand starts the interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
