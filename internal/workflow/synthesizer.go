package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/log"
)

const synthesizerPrompt = `You are an expert AI assistant tasked with providing comprehensive and structured answers. Based on the user's original query, the plan that was executed, and the results from tool calls/general reasoning, formulate a final answer in the requested format. Determine the 'answer_source' (manual, web_search, general_knowledge, mixed, none) and 'confidence' (high, medium, low) based on the information provided. If the information was obtained using the 'manual_lookup_structured' tool, set 'answer_source' to 'manual'. If no specific information was found, state that explicitly and suggest searching the web if appropriate.

Original User Query: %s

Execution Plan: %s

Execution Results (Tool Output/General Reasoning):
%s`

const synthesisErrorContent = "I apologize, but an internal error occurred while trying to generate a comprehensive answer. Please check the logs for more details or try rephrasing your query."

// StreamCallback is called for each chunk of streaming model output.
// Returning an error aborts the generation.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// errorAnswer is the canned degraded answer when synthesis fails.
func errorAnswer() Answer {
	return Answer{
		Content:      synthesisErrorContent,
		AnswerSource: SourceNone,
		Confidence:   ConfidenceLow,
		FollowUpQuestions: []string{
			"What specific error occurred?",
			"Can you try again?",
		},
	}
}

// Synthesizer is the synthesize stage: it folds the executed plan and
// accumulated tool output into a schema-constrained final answer.
type Synthesizer struct {
	gen    Generator
	logger *slog.Logger
}

func NewSynthesizer(gen Generator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Synthesizer{gen: gen, logger: logger}
}

// Synthesize mutates state with the final structured answer. cb, when
// non-nil, receives partial output chunks as the model streams.
//
// Failures never escape this stage: completion or schema errors degrade
// to a canned Answer and the end_with_error decision.
func (sy *Synthesizer) Synthesize(ctx context.Context, s *State, cb StreamCallback) {
	query, _ := s.LatestUserQuery()

	planSummary := "No specific plan was generated"
	if len(s.Plan) > 0 {
		planSummary = strings.Join(s.Plan, "\n")
	}

	toolOutput := s.ToolOutput
	if toolOutput == "" {
		toolOutput = "No specific tool output"
	}

	answer, err := sy.generate(ctx, s, query, planSummary, toolOutput, cb)
	if err != nil {
		sy.logger.Error("synthesis failed, degrading to canned answer", "error", err)
		sy.finish(s, errorAnswer(), DecisionEndWithError)
		return
	}

	sy.logger.Info("synthesized final answer",
		"answer_source", answer.AnswerSource,
		"confidence", answer.Confidence,
	)
	sy.finish(s, answer, DecisionEnd)
}

func (sy *Synthesizer) generate(ctx context.Context, s *State, query, planSummary, toolOutput string, cb StreamCallback) (Answer, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(fmt.Sprintf(synthesizerPrompt, query, planSummary, toolOutput)),
		ai.WithMessages(append(s.Transcript(),
			ai.NewUserMessage(ai.NewTextPart("Please provide the final structured answer.")))...),
		ai.WithOutputType(Answer{}),
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return cb(ctx, chunk)
		}))
	}

	resp, err := sy.gen.Generate(ctx, opts...)
	if err != nil {
		return Answer{}, fmt.Errorf("synthesis call: %w", err)
	}

	var answer Answer
	if err := resp.Output(&answer); err != nil {
		return Answer{}, fmt.Errorf("parse structured answer: %w", err)
	}
	if answer.Content == "" {
		return Answer{}, fmt.Errorf("structured answer has empty content")
	}
	return answer, nil
}

// finish serializes the answer, appends it to the transcript as a model
// turn, and records the terminal decision.
func (sy *Synthesizer) finish(s *State, answer Answer, decision Decision) {
	serialized, err := json.Marshal(answer)
	if err != nil {
		// Answer is a plain struct; this cannot realistically fail.
		serialized = []byte(synthesisErrorContent)
		decision = DecisionEndWithError
	}

	s.Messages = append(s.Messages, &ai.Message{
		Role:    ai.RoleModel,
		Content: []*ai.Part{ai.NewTextPart(string(serialized))},
	})
	s.FinalAnswerContent = string(serialized)
	s.Decision = decision
}
