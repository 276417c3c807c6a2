// Package capability registers the tools a plan step can invoke and maps
// free-text step descriptions onto them. A step names its capability with
// a parenthesized token ("(web_search)"); steps without a recognized token
// are handed to the language model as free-form reasoning.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/log"
)

// Capability is a named tool a plan step can invoke. history carries the
// conversation as paired human/assistant turns; capabilities that do not
// need it ignore it.
type Capability interface {
	Name() string
	Invoke(ctx context.Context, arg string, history []*ai.Message) (string, error)
}

// Generator abstracts the LLM call used for free-form step reasoning.
type Generator interface {
	Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

const freeFormPrompt = `You are an assistant capable of processing a single step of a plan. Given the current step and any previous tool output, complete the step or provide information.`

// Dispatcher routes a plan step to a registered capability, or to free-form
// model reasoning when no capability token is present.
//
// Dispatcher is safe for concurrent use; each Dispatch call is independent.
type Dispatcher struct {
	gen    Generator
	caps   []Capability
	names  []string
	logger *slog.Logger
}

// NewDispatcher registers the given capabilities in order. Order matters:
// when a step mentions several capability tokens, the first registered
// match wins.
func NewDispatcher(gen Generator, caps []Capability, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewNop()
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.Name()
	}
	return &Dispatcher{gen: gen, caps: caps, names: names, logger: logger}
}

// Names returns the registered capability names in registration order.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Dispatch executes one plan step. ordinal is the step's 1-based position
// in the plan, prevOutput the accumulated output of earlier steps, and
// history the conversation so far.
//
// Failures never surface as Go errors: any capability or model failure is
// converted into a textual result with failed set, so the workflow can
// route to error handling while keeping the text for the final synthesis.
func (d *Dispatcher) Dispatch(ctx context.Context, step string, ordinal int, prevOutput string, history []*ai.Message) (result string, failed bool) {
	parsed := ParseStep(step, ordinal, d.names)
	if !parsed.Found {
		d.logger.Info("no capability token in step, using free-form reasoning", "step", step)
		text, err := d.freeForm(ctx, step, prevOutput)
		if err != nil {
			d.logger.Error("free-form reasoning failed", "step", step, "error", err)
			return fmt.Sprintf("Error processing step %q: %v", step, err), true
		}
		return text, false
	}

	d.logger.Info("dispatching capability", "capability", parsed.Name, "arg", parsed.Arg)

	c := d.capability(parsed.Name)
	text, err := c.Invoke(ctx, parsed.Arg, PairedHistory(history))
	if err != nil {
		d.logger.Error("capability failed", "capability", parsed.Name, "error", err)
		return fmt.Sprintf("Error executing tool '%s': %v", parsed.Name, err), true
	}
	return text, false
}

func (d *Dispatcher) capability(name string) Capability {
	for _, c := range d.caps {
		if c.Name() == name {
			return c
		}
	}
	// Unreachable: ParseStep only matches registered names.
	panic("capability: unregistered name " + name)
}

func (d *Dispatcher) freeForm(ctx context.Context, step, prevOutput string) (string, error) {
	prompt := fmt.Sprintf("Plan Step: %s\nPrevious Tool Output: %s", step, prevOutput)
	resp, err := d.gen.Generate(ctx,
		ai.WithSystem(freeFormPrompt),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(prompt))),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// PairedHistory filters a message transcript down to completed
// human/assistant exchanges: each user message followed by a model reply
// is kept as a pair, everything else (system messages, a trailing
// unanswered user message) is dropped.
func PairedHistory(messages []*ai.Message) []*ai.Message {
	var out []*ai.Message
	var pendingUser *ai.Message
	for _, m := range messages {
		switch m.Role {
		case ai.RoleUser:
			pendingUser = m
		case ai.RoleModel:
			if pendingUser != nil {
				out = append(out, pendingUser, m)
				pendingUser = nil
			}
		}
	}
	return out
}
