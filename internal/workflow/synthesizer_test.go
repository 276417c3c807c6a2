package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestSynthesizeSuccess(t *testing.T) {
	t.Parallel()

	structured := `{"content":"Hold the reset button for five seconds.","answer_source":"manual","confidence":"high","follow_up_questions":["Did the device restart?"]}`
	gen := &fakeGenerator{responses: []*ai.ModelResponse{textResponse(structured)}}
	sy := NewSynthesizer(gen, nil)

	s := &State{
		Messages:      []*ai.Message{userMsg("How do I reset the device?")},
		Plan:          []string{"1. Look up reset procedure (manual_lookup_structured)"},
		NextStepIndex: 1,
		ToolOutput:    "Hold the reset button for 5 seconds.",
	}
	sy.Synthesize(context.Background(), s, nil)

	if s.Decision != DecisionEnd {
		t.Fatalf("decision = %q, want %q", s.Decision, DecisionEnd)
	}
	if s.FinalAnswerContent == "" {
		t.Fatal("final answer content not set")
	}

	var answer Answer
	if err := json.Unmarshal([]byte(s.FinalAnswerContent), &answer); err != nil {
		t.Fatalf("final answer is not valid JSON: %v", err)
	}
	if answer.AnswerSource != SourceManual || answer.Confidence != ConfidenceHigh {
		t.Errorf("answer = %+v", answer)
	}

	last := s.Messages[len(s.Messages)-1]
	if last.Role != ai.RoleModel {
		t.Errorf("appended message role = %v, want model", last.Role)
	}
	if last.Text() != s.FinalAnswerContent {
		t.Error("appended message does not carry the serialized answer")
	}
}

func TestSynthesizeCompletionFailureDegrades(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{errs: []error{errors.New("model offline")}}
	sy := NewSynthesizer(gen, nil)

	s := &State{Messages: []*ai.Message{userMsg("query")}}
	sy.Synthesize(context.Background(), s, nil)

	if s.Decision != DecisionEndWithError {
		t.Fatalf("decision = %q, want %q", s.Decision, DecisionEndWithError)
	}

	var answer Answer
	if err := json.Unmarshal([]byte(s.FinalAnswerContent), &answer); err != nil {
		t.Fatalf("degraded answer is not valid JSON: %v", err)
	}
	if answer.AnswerSource != SourceNone {
		t.Errorf("answer_source = %q, want %q", answer.AnswerSource, SourceNone)
	}
	if answer.Confidence != ConfidenceLow {
		t.Errorf("confidence = %q, want %q", answer.Confidence, ConfidenceLow)
	}
	if len(answer.FollowUpQuestions) == 0 {
		t.Error("degraded answer must carry follow-up questions")
	}
}

func TestSynthesizeMalformedOutputDegrades(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*ai.ModelResponse{textResponse("not json at all")}}
	sy := NewSynthesizer(gen, nil)

	s := &State{Messages: []*ai.Message{userMsg("query")}}
	sy.Synthesize(context.Background(), s, nil)

	if s.Decision != DecisionEndWithError {
		t.Errorf("decision = %q, want %q", s.Decision, DecisionEndWithError)
	}
}

func TestSynthesizeCallsGeneratorOnce(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*ai.ModelResponse{
		textResponse(`{"content":"ok","answer_source":"none","confidence":"low"}`),
	}}
	sy := NewSynthesizer(gen, nil)

	s := &State{Messages: []*ai.Message{userMsg("query")}}
	sy.Synthesize(context.Background(), s, nil)

	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
	if s.Decision != DecisionEnd {
		t.Errorf("decision = %q, want %q", s.Decision, DecisionEnd)
	}
}
