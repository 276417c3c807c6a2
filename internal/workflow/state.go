// Package workflow implements the plan/execute/synthesize state machine
// that drives a troubleshooting run. A run plans a numbered list of steps
// from the user's question, executes the steps one routing tick at a time
// through the capability dispatcher, and synthesizes a structured final
// answer. Branching is an explicit transition function over the shared
// run state, applied by a driver loop until a terminal decision.
package workflow

import "github.com/firebase/genkit/go/ai"

// Decision is the routing tag a stage leaves behind for the router.
type Decision string

const (
	// DecisionExecuteStep requests another execute tick.
	DecisionExecuteStep Decision = "execute_step"
	// DecisionSynthesize requests final answer synthesis.
	DecisionSynthesize Decision = "synthesize"
	// DecisionHandleExecutionError routes to synthesis with error context
	// after a failed capability invocation.
	DecisionHandleExecutionError Decision = "handle_execution_error"
	// DecisionEnd terminates the run after successful synthesis.
	DecisionEnd Decision = "end"
	// DecisionEndWithError terminates the run after degraded synthesis.
	DecisionEndWithError Decision = "end_with_error"
	// DecisionErrorNoInput terminates the run when no user message exists.
	DecisionErrorNoInput Decision = "error_no_input"
	// DecisionError marks a run abandoned by the driver itself, for
	// example when the tick cap is hit. Stages never set it.
	DecisionError Decision = "error"
)

// State is the mutable record one run owns. Runs never share a State;
// within a run, stages mutate it strictly one at a time.
type State struct {
	// Messages is the conversation transcript, newest last. Stages
	// append to it but never rewrite history.
	Messages []*ai.Message

	// Plan holds the numbered step descriptions produced by planning.
	Plan []string

	// NextStepIndex points at the next plan step to execute.
	NextStepIndex int

	// ToolOutput accumulates the textual result of the latest executed
	// step, or a diagnostic when a stage fails.
	ToolOutput string

	// FinalAnswerContent is the serialized structured answer set by the
	// synthesize stage.
	FinalAnswerContent string

	// Decision is the routing tag for the next transition.
	Decision Decision
}

// LatestUserQuery returns the most recent user-authored message text.
func (s *State) LatestUserQuery() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == ai.RoleUser {
			return s.Messages[i].Text(), true
		}
	}
	return "", false
}

// Transcript returns the user and model messages in order, dropping
// system or tool messages, for use as prompt context.
func (s *State) Transcript() []*ai.Message {
	out := make([]*ai.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role == ai.RoleUser || m.Role == ai.RoleModel {
			out = append(out, m)
		}
	}
	return out
}

// Answer source values.
const (
	SourceManual           = "manual"
	SourceWebSearch        = "web_search"
	SourceGeneralKnowledge = "general_knowledge"
	SourceMixed            = "mixed"
	SourceNone             = "none"
)

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Answer is the structured final response of a run.
type Answer struct {
	// Content is the comprehensive answer to the user's question.
	Content string `json:"content"`
	// AnswerSource is the primary source of the answer: manual,
	// web_search, general_knowledge, mixed or none.
	AnswerSource string `json:"answer_source"`
	// Confidence is high, medium or low.
	Confidence string `json:"confidence"`
	// FollowUpQuestions suggests questions the user might ask next.
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
}
