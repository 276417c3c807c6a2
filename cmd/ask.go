package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsmantis/mantis/internal/app"
	"github.com/opsmantis/mantis/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	question := strings.Join(args, " ")
	result, err := a.Engine.Run(ctx, nil, question)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	renderer := newMarkdownRenderer()
	fmt.Println(renderer.render(formatAnswer(result.Answer)))
	return nil
}
