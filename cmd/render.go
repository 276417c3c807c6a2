package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/opsmantis/mantis/internal/workflow"
)

// markdownRenderer converts Markdown to styled terminal output, degrading
// to plain text when the terminal cannot be styled.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer() *markdownRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return &markdownRenderer{}
	}
	return &markdownRenderer{renderer: r}
}

func (m *markdownRenderer) render(markdown string) string {
	if m.renderer == nil {
		return markdown
	}
	out, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// formatAnswer lays out a structured answer as Markdown for the terminal.
func formatAnswer(answer workflow.Answer) string {
	var sb strings.Builder
	sb.WriteString(answer.Content)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "**Source:** %s · **Confidence:** %s\n", answer.AnswerSource, answer.Confidence)
	if len(answer.FollowUpQuestions) > 0 {
		sb.WriteString("\n**You might also ask:**\n")
		for _, q := range answer.FollowUpQuestions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}
	return sb.String()
}
