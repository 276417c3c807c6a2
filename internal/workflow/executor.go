package workflow

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/log"
)

// Dispatcher maps a free-text plan step onto a capability and runs it.
// failed reports a capability failure that should route to error
// handling; the result text is still meaningful in that case.
type Dispatcher interface {
	Dispatch(ctx context.Context, step string, ordinal int, prevOutput string, history []*ai.Message) (result string, failed bool)
}

// Executor is the execute stage. Each Execute call is one routing tick
// running at most one plan step; the router loops the stage while steps
// remain.
type Executor struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewExecutor(dispatcher Dispatcher, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Executor{dispatcher: dispatcher, logger: logger}
}

// Execute runs plan[NextStepIndex] and advances the index. An exhausted
// or empty plan routes to synthesis without touching ToolOutput.
func (e *Executor) Execute(ctx context.Context, s *State) {
	if s.NextStepIndex >= len(s.Plan) {
		e.logger.Info("no more steps in the plan, proceeding to synthesis")
		s.Decision = DecisionSynthesize
		return
	}

	step := s.Plan[s.NextStepIndex]
	e.logger.Info("executing step",
		"step", s.NextStepIndex+1,
		"total", len(s.Plan),
		"description", step,
	)

	result, failed := e.dispatcher.Dispatch(ctx, step, s.NextStepIndex+1, s.ToolOutput, s.Messages)

	s.ToolOutput = result
	s.NextStepIndex++

	switch {
	case failed:
		s.Decision = DecisionHandleExecutionError
	case s.NextStepIndex < len(s.Plan):
		s.Decision = DecisionExecuteStep
	default:
		s.Decision = DecisionSynthesize
	}
}
