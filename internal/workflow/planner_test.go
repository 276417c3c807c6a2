package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

// fakeGenerator returns scripted responses in call order.
type fakeGenerator struct {
	responses []*ai.ModelResponse
	errs      []error
	calls     int
}

func (f *fakeGenerator) Generate(_ context.Context, _ ...ai.GenerateOption) (*ai.ModelResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return textResponse(""), nil
}

func textResponse(text string) *ai.ModelResponse {
	return &ai.ModelResponse{
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(text)},
		},
	}
}

func userMsg(text string) *ai.Message {
	return ai.NewUserMessage(ai.NewTextPart(text))
}

func TestPlanNoUserInput(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	p := NewPlanner(gen, 9, nil)
	s := &State{}

	p.Plan(context.Background(), s)

	if s.Decision != DecisionErrorNoInput {
		t.Errorf("decision = %q, want %q", s.Decision, DecisionErrorNoInput)
	}
	if s.ToolOutput == "" {
		t.Error("expected a diagnostic in tool output")
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestPlanParsesMarkedResponse(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*ai.ModelResponse{
		textResponse("Sure, here is my plan.\nPLAN:\n1. Look up reset procedure (manual_lookup_structured)\nsome trailing note"),
	}}
	p := NewPlanner(gen, 9, nil)
	s := &State{Messages: []*ai.Message{userMsg("How do I reset the device?")}}

	p.Plan(context.Background(), s)

	if s.Decision != DecisionExecuteStep {
		t.Fatalf("decision = %q, want %q", s.Decision, DecisionExecuteStep)
	}
	if len(s.Plan) != 1 || s.Plan[0] != "1. Look up reset procedure (manual_lookup_structured)" {
		t.Errorf("plan = %v", s.Plan)
	}
	if s.NextStepIndex != 0 {
		t.Errorf("next step index = %d, want 0", s.NextStepIndex)
	}
}

func TestPlanWithoutMarkerUsesWholeResponse(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*ai.ModelResponse{
		textResponse("1. First step\n2. Second step\nnot a step\n3. Third step"),
	}}
	p := NewPlanner(gen, 9, nil)
	s := &State{Messages: []*ai.Message{userMsg("query")}}

	p.Plan(context.Background(), s)

	if len(s.Plan) != 3 {
		t.Fatalf("plan has %d steps, want 3: %v", len(s.Plan), s.Plan)
	}
	if s.Plan[2] != "3. Third step" {
		t.Errorf("plan[2] = %q", s.Plan[2])
	}
}

func TestPlanEmptyPlanFallsBack(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*ai.ModelResponse{
		textResponse("I am not sure how to plan this."),
	}}
	p := NewPlanner(gen, 9, nil)
	s := &State{Messages: []*ai.Message{userMsg("query")}}

	p.Plan(context.Background(), s)

	if s.Decision != DecisionSynthesize {
		t.Errorf("decision = %q, want %q", s.Decision, DecisionSynthesize)
	}
	if len(s.Plan) != 1 || s.Plan[0] != fallbackStep {
		t.Errorf("plan = %v, want single canned step", s.Plan)
	}
	if s.ToolOutput != fallbackPlanOutput {
		t.Errorf("tool output = %q", s.ToolOutput)
	}
}

func TestPlanGenerationErrorFallsBack(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{errs: []error{errors.New("model offline")}}
	p := NewPlanner(gen, 9, nil)
	s := &State{Messages: []*ai.Message{userMsg("query")}}

	p.Plan(context.Background(), s)

	if s.Decision != DecisionSynthesize {
		t.Errorf("decision = %q, want %q after planner failure", s.Decision, DecisionSynthesize)
	}
	if len(s.Plan) != 1 || s.Plan[0] != fallbackStep {
		t.Errorf("plan = %v, want single canned step", s.Plan)
	}
}

func TestPlanTruncatesToMaxSteps(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*ai.ModelResponse{
		textResponse("PLAN:\n1. a\n2. b\n3. c\n4. d"),
	}}
	p := NewPlanner(gen, 2, nil)
	s := &State{Messages: []*ai.Message{userMsg("query")}}

	p.Plan(context.Background(), s)

	if len(s.Plan) != 2 {
		t.Errorf("plan has %d steps, want 2", len(s.Plan))
	}
}

func TestParsePlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		want     int
	}{
		{"marker with one step", "PLAN:\n1. step", 1},
		{"no numbered lines", "just prose\nmore prose", 0},
		{"ordinal beyond nine ignored", "10. too far\n1. kept", 1},
		{"zero prefix ignored", "0. nope", 0},
		{"blank lines skipped", "\n\n1. a\n\n2. b\n", 2},
		{"indented steps trimmed", "  1. a\n\t2. b", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parsePlan(tt.response); len(got) != tt.want {
				t.Errorf("parsePlan(%q) = %v, want %d steps", tt.response, got, tt.want)
			}
		})
	}
}
