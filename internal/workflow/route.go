package workflow

// Stage identifies a node of the state machine.
type Stage int

const (
	// StageExecute runs the next plan step.
	StageExecute Stage = iota
	// StageSynthesize produces the structured final answer.
	StageSynthesize
	// StageTerminal ends the run.
	StageTerminal
)

// String implements fmt.Stringer for logging and progress events.
func (s Stage) String() string {
	switch s {
	case StageExecute:
		return "execute"
	case StageSynthesize:
		return "synthesize"
	case StageTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Route is the pure transition function consulted after every stage tick.
//
// An execute_step tag is never trusted blindly: the plan bounds are
// re-checked at routing time so a stale tag cannot loop forever. An
// unrecognized or empty tag falls back to executing if unfinished plan
// steps remain, else to synthesis.
func Route(s *State) Stage {
	switch s.Decision {
	case DecisionExecuteStep:
		if s.NextStepIndex < len(s.Plan) {
			return StageExecute
		}
		return StageSynthesize
	case DecisionSynthesize, DecisionHandleExecutionError:
		return StageSynthesize
	case DecisionEnd, DecisionEndWithError, DecisionErrorNoInput, DecisionError:
		return StageTerminal
	default:
		if s.NextStepIndex < len(s.Plan) {
			return StageExecute
		}
		return StageSynthesize
	}
}
