package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/log"
)

// Result is the outcome of one run: always a well-formed structured
// answer, even when the run degraded.
type Result struct {
	// Answer is the structured final answer.
	Answer Answer
	// Raw is the serialized form of the answer as appended to the
	// transcript, empty only for terminal error_no_input runs.
	Raw string
	// Decision is the terminal routing tag.
	Decision Decision
	// Messages is the full transcript including the appended answer,
	// suitable for carrying into the next run of the conversation.
	Messages []*ai.Message
}

// Engine drives the state machine: plan once, then apply Route and the
// selected stage repeatedly until a terminal decision. Each Run owns an
// independent State; an Engine may serve concurrent runs.
type Engine struct {
	planner     *Planner
	executor    *Executor
	synthesizer *Synthesizer
	logger      *slog.Logger
}

func NewEngine(planner *Planner, executor *Executor, synthesizer *Synthesizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		planner:     planner,
		executor:    executor,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Run executes one blocking run. history is the prior conversation;
// query is the new user message, appended as a user turn when non-empty.
// The returned Result is always well formed; the error is non-nil only
// when ctx is canceled before the run terminates.
func (e *Engine) Run(ctx context.Context, history []*ai.Message, query string) (*Result, error) {
	return e.run(ctx, history, query, nil, nil)
}

// Stream executes one run while emitting progress events. The channel is
// closed after the final EventTypeComplete (or EventTypeError) event.
// Abandoning the run is done by canceling ctx; the goroutine then drops
// pending events and exits.
func (e *Engine) Stream(ctx context.Context, history []*ai.Message, query string) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		emit := func(ev Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}
		cb := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			emit(Event{Type: EventTypeText, TextChunk: chunk.Text()})
			return nil
		}
		result, err := e.run(ctx, history, query, emit, cb)
		if err != nil {
			emit(Event{Type: EventTypeError, Err: err})
			return
		}
		emit(Event{Type: EventTypeComplete, Result: result})
	}()
	return ch
}

func (e *Engine) run(ctx context.Context, history []*ai.Message, query string, emit func(Event), cb StreamCallback) (res *Result, err error) {
	state := &State{
		Messages: append(append([]*ai.Message{}, history...), userMessage(query)...),
	}

	// Nothing escaping a stage may crash the caller; a panicking stage or
	// capability degrades to the standard error answer instead.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("run panicked, degrading",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = e.abandoned(state)
			err = nil
		}
	}()

	e.stage(emit, "plan")
	e.planner.Plan(ctx, state)

	// Each plan step takes one tick plus one decision re-check; the cap
	// leaves generous headroom before declaring the run stuck.
	maxTicks := 2*len(state.Plan) + 8

	for tick := 0; ; tick++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tick > maxTicks {
			e.logger.Error("run exceeded tick cap, abandoning",
				"ticks", tick,
				"plan_steps", len(state.Plan),
				"decision", state.Decision,
			)
			return e.abandoned(state), nil
		}

		if !knownDecision(state.Decision) {
			e.logger.Warn("unrecognized routing decision, using defensive default",
				"decision", state.Decision,
			)
		}

		switch Route(state) {
		case StageExecute:
			e.stage(emit, "execute")
			before := state.NextStepIndex
			e.executor.Execute(ctx, state)
			if emit != nil && state.NextStepIndex > before {
				emit(Event{Type: EventTypeStep, Step: state.NextStepIndex, StepOutput: state.ToolOutput})
			}
		case StageSynthesize:
			e.stage(emit, "synthesize")
			e.synthesizer.Synthesize(ctx, state, cb)
		case StageTerminal:
			return e.result(state), nil
		}
	}
}

func (e *Engine) stage(emit func(Event), name string) {
	e.logger.Info("entering stage", "stage", name)
	if emit != nil {
		emit(Event{Type: EventTypeStage, Stage: name})
	}
}

// result converts a terminal state into a Result. Runs that ended before
// synthesis (no user input) get a degraded answer built from the
// diagnostic so callers always see the same shape.
func (e *Engine) result(s *State) *Result {
	r := &Result{
		Raw:      s.FinalAnswerContent,
		Decision: s.Decision,
		Messages: s.Messages,
	}

	if s.FinalAnswerContent == "" {
		content := s.ToolOutput
		if content == "" {
			content = "The conversation contained no user message to answer."
		}
		r.Answer = Answer{
			Content:      content,
			AnswerSource: SourceNone,
			Confidence:   ConfidenceLow,
		}
		return r
	}

	if err := json.Unmarshal([]byte(s.FinalAnswerContent), &r.Answer); err != nil {
		e.logger.Error("final answer is not valid JSON", "error", err)
		r.Answer = errorAnswer()
	}
	return r
}

// abandoned builds the degraded result for a run killed by the driver.
func (e *Engine) abandoned(s *State) *Result {
	answer := errorAnswer()
	serialized, _ := json.Marshal(answer)
	return &Result{
		Answer:   answer,
		Raw:      string(serialized),
		Decision: DecisionError,
		Messages: s.Messages,
	}
}

func knownDecision(d Decision) bool {
	switch d {
	case DecisionExecuteStep, DecisionSynthesize, DecisionHandleExecutionError,
		DecisionEnd, DecisionEndWithError, DecisionErrorNoInput, DecisionError:
		return true
	}
	return false
}

func userMessage(query string) []*ai.Message {
	if query == "" {
		return nil
	}
	return []*ai.Message{ai.NewUserMessage(ai.NewTextPart(query))}
}
