package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/log"
)

// planMarker prefixes the model's plan in its planning response.
const planMarker = "PLAN:"

const plannerPrompt = `You are an expert planning assistant focused solely on providing information by looking up documentation. Your task is to formulate a plan that uses the 'manual_lookup_structured' tool to answer the user's query. The plan must contain exactly one step. Clearly state the tool name in parentheses after the task, e.g., '1. Look up [user's main query or relevant keywords] (manual_lookup_structured)'. Start your response with 'PLAN:'.`

// Fallback values when planning cannot produce an actionable plan.
const (
	fallbackStep         = "Provide a general answer based on query."
	fallbackPlanOutput   = "Planner could not generate a clear plan based on the input."
	noInputDiagnostic    = "Planner could not find user input."
	maxPlanStepsAbsolute = 9
)

// Planner is the plan stage: it turns the latest user question into a
// numbered list of step descriptions.
type Planner struct {
	gen      Generator
	maxSteps int
	logger   *slog.Logger
}

// NewPlanner creates a Planner. maxSteps caps the accepted plan length
// and is clamped to [1, 9]; the ordinal-prefix parsing only recognizes
// single-digit numbering anyway.
func NewPlanner(gen Generator, maxSteps int, logger *slog.Logger) *Planner {
	if maxSteps < 1 || maxSteps > maxPlanStepsAbsolute {
		maxSteps = maxPlanStepsAbsolute
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Planner{gen: gen, maxSteps: maxSteps, logger: logger}
}

// Plan mutates state with a parsed plan and a routing decision. It never
// returns an error: planning failures degrade to a canned single-step
// plan routed straight to synthesis, and a missing user message is the
// terminal error_no_input decision.
func (p *Planner) Plan(ctx context.Context, s *State) {
	query, ok := s.LatestUserQuery()
	if !ok {
		p.logger.Error("no user message found for planning")
		s.Decision = DecisionErrorNoInput
		s.ToolOutput = noInputDiagnostic
		return
	}

	resp, err := p.gen.Generate(ctx,
		ai.WithSystem(plannerPrompt),
		ai.WithMessages(s.Transcript()...),
	)
	if err != nil {
		p.logger.Warn("planning call failed, falling back to canned plan", "error", err)
		p.fallback(s)
		return
	}

	steps := parsePlan(resp.Text())
	if len(steps) == 0 {
		p.logger.Warn("planner produced no numbered steps", "response", resp.Text())
		p.fallback(s)
		return
	}
	if len(steps) > p.maxSteps {
		p.logger.Warn("plan truncated", "steps", len(steps), "max", p.maxSteps)
		steps = steps[:p.maxSteps]
	}

	p.logger.Info("plan generated", "query", query, "steps", len(steps))
	s.Plan = steps
	s.NextStepIndex = 0
	s.Decision = DecisionExecuteStep
}

func (p *Planner) fallback(s *State) {
	s.Plan = []string{fallbackStep}
	s.NextStepIndex = 0
	s.Decision = DecisionSynthesize
	s.ToolOutput = fallbackPlanOutput
}

// parsePlan extracts numbered step lines from a planning response. Text
// before the PLAN: marker is discarded; if the marker is absent the whole
// response is the candidate. Only lines starting with "1." through "9."
// are kept.
func parsePlan(response string) []string {
	planText := response
	if _, after, found := strings.Cut(response, planMarker); found {
		planText = after
	}

	var steps []string
	for _, line := range strings.Split(planText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if hasOrdinalPrefix(line) {
			steps = append(steps, line)
		}
	}
	return steps
}

func hasOrdinalPrefix(line string) bool {
	if len(line) < 2 {
		return false
	}
	return line[0] >= '1' && line[0] <= '9' && line[1] == '.'
}
