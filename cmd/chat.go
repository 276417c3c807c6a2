package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/spf13/cobra"

	"github.com/opsmantis/mantis/internal/app"
	"github.com/opsmantis/mantis/internal/config"
	"github.com/opsmantis/mantis/internal/workflow"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive troubleshooting session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer func() { _ = a.Close() }()

	renderer := newMarkdownRenderer()

	fmt.Println("Mantis troubleshooting assistant. Ask about machine operation or errors.")
	fmt.Println("Commands: /reindex rebuilds the manual index, /clear resets the conversation, exit quits.")
	fmt.Println()

	var history []*ai.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye.")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			fmt.Println("Goodbye.")
			return nil
		case input == "/clear":
			history = nil
			fmt.Println("Conversation cleared.")
			continue
		case input == "/reindex":
			status, err := a.RebuildIndex(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
				continue
			}
			fmt.Println(status)
			continue
		}

		result := streamRun(ctx, a, history, input)
		if result == nil {
			continue
		}

		fmt.Println(renderer.render(formatAnswer(result.Answer)))
		history = result.Messages
	}
}

// streamRun executes one run while printing progress, and returns the
// final result (nil if the run produced none, e.g. on cancellation).
func streamRun(ctx context.Context, a *app.App, history []*ai.Message, input string) *workflow.Result {
	var result *workflow.Result
	for ev := range a.Engine.Stream(ctx, history, input) {
		switch ev.Type {
		case workflow.EventTypeStage:
			fmt.Printf("… %s\n", ev.Stage)
		case workflow.EventTypeStep:
			fmt.Printf("  step %d done\n", ev.Step)
		case workflow.EventTypeError:
			fmt.Fprintf(os.Stderr, "Run failed: %v\n", ev.Err)
		case workflow.EventTypeComplete:
			result = ev.Result
		}
	}
	return result
}
