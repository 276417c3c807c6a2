package workflow

import "testing"

func TestRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state State
		want  Stage
	}{
		{
			name:  "execute_step with remaining steps",
			state: State{Decision: DecisionExecuteStep, Plan: []string{"a", "b"}, NextStepIndex: 1},
			want:  StageExecute,
		},
		{
			name:  "stale execute_step on exhausted plan routes to synthesize",
			state: State{Decision: DecisionExecuteStep, Plan: []string{"a"}, NextStepIndex: 1},
			want:  StageSynthesize,
		},
		{
			name:  "stale execute_step on empty plan routes to synthesize",
			state: State{Decision: DecisionExecuteStep},
			want:  StageSynthesize,
		},
		{
			name:  "synthesize",
			state: State{Decision: DecisionSynthesize},
			want:  StageSynthesize,
		},
		{
			name:  "handle_execution_error routes to synthesize",
			state: State{Decision: DecisionHandleExecutionError},
			want:  StageSynthesize,
		},
		{
			name:  "end is terminal",
			state: State{Decision: DecisionEnd},
			want:  StageTerminal,
		},
		{
			name:  "end_with_error is terminal",
			state: State{Decision: DecisionEndWithError},
			want:  StageTerminal,
		},
		{
			name:  "error_no_input is terminal",
			state: State{Decision: DecisionErrorNoInput},
			want:  StageTerminal,
		},
		{
			name:  "unrecognized tag with unfinished plan defaults to execute",
			state: State{Decision: "bogus", Plan: []string{"a"}, NextStepIndex: 0},
			want:  StageExecute,
		},
		{
			name:  "unrecognized tag without plan defaults to synthesize",
			state: State{Decision: "bogus"},
			want:  StageSynthesize,
		},
		{
			name:  "missing tag without plan defaults to synthesize",
			state: State{},
			want:  StageSynthesize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Route(&tt.state); got != tt.want {
				t.Errorf("Route(%+v) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}
