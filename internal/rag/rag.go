// Package rag implements the manual lookup chain: a user question is
// reformulated against conversation history into a standalone query, the
// retrieval index is searched for relevant manual passages, and an answer
// is synthesized over the retrieved context.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/index"
	"github.com/opsmantis/mantis/internal/log"
)

// ErrIndexUnavailable reports that no retrieval index could be obtained,
// because the manual corpus is empty or because loading or rebuilding the
// index failed. Callers degrade to a fixed "knowledge base unavailable"
// answer rather than failing.
var ErrIndexUnavailable = errors.New("rag: knowledge base unavailable")

// DefaultTopK is the number of manual passages retrieved per lookup.
const DefaultTopK = 3

// Generator abstracts LLM text generation.
// The interface is defined here, by the consumer, so tests can inject
// canned responses without a live model.
type Generator interface {
	Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// Retriever finds manual passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]index.Result, error)
}

// IndexRetriever adapts an *index.Manager to the Retriever interface.
// Both a nil handle (empty corpus) and a Get failure (corpus read or
// rebuild error) surface as ErrIndexUnavailable so the chain degrades to
// the fixed unavailable answer instead of failing the step.
type IndexRetriever struct {
	Manager *index.Manager
}

func (r *IndexRetriever) Retrieve(ctx context.Context, query string, topK int) ([]index.Result, error) {
	h, err := r.Manager.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if h == nil {
		return nil, ErrIndexUnavailable
	}
	return h.Search(ctx, query, topK)
}

// Answer is the result of a manual lookup.
type Answer struct {
	// Content is the synthesized answer text.
	Content string
	// Sources lists the manual files the answer was drawn from,
	// deduplicated, in retrieval order.
	Sources []string
}

const reformulatePrompt = `Given a chat history and the latest user question, formulate a standalone question that can be understood without the chat history. Do NOT answer the question. If the question is already standalone, return it unchanged. Return only the question text.`

const answerPrompt = `You are a troubleshooting assistant answering from product manuals. Use only the manual excerpts below to answer the question. Be concise and practical. If the excerpts do not contain the answer, say that the manuals do not cover it.

Manual excerpts:
%s`

// Lookup runs the manual lookup chain.
//
// Lookup is safe for concurrent use.
type Lookup struct {
	gen       Generator
	retriever Retriever
	topK      int
	logger    *slog.Logger
}

// NewLookup creates a manual lookup chain. topK values below 1 fall back
// to DefaultTopK.
func NewLookup(gen Generator, retriever Retriever, topK int, logger *slog.Logger) *Lookup {
	if topK < 1 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Lookup{
		gen:       gen,
		retriever: retriever,
		topK:      topK,
		logger:    logger,
	}
}

// Run answers a question from the manual corpus. history carries the prior
// conversation and is used only to reformulate the question; it is not
// shown to the answering model.
//
// When the index is unavailable the returned Answer says so and carries no
// sources; the error is nil because degraded service is still service.
func (l *Lookup) Run(ctx context.Context, question string, history []*ai.Message) (*Answer, error) {
	query := l.reformulate(ctx, question, history)

	results, err := l.retriever.Retrieve(ctx, query, l.topK)
	if err != nil {
		if errors.Is(err, ErrIndexUnavailable) {
			l.logger.Warn("manual lookup degraded, knowledge base unavailable", "error", err)
			return &Answer{
				Content: "The manual knowledge base is currently unavailable, so I cannot look this up in the product manuals.",
			}, nil
		}
		return nil, fmt.Errorf("retrieve manual passages: %w", err)
	}

	answer, err := l.synthesize(ctx, query, results)
	if err != nil {
		return nil, fmt.Errorf("synthesize manual answer: %w", err)
	}

	srcs := sources(results)
	l.logger.Info("manual lookup answered", "passages", len(results), "sources", srcs)

	return &Answer{
		Content: answer,
		Sources: srcs,
	}, nil
}

// reformulate turns a follow-up question into a standalone one using the
// chat history. Reformulation is best effort: on any failure the original
// question is used as the query.
func (l *Lookup) reformulate(ctx context.Context, question string, history []*ai.Message) string {
	if len(history) == 0 {
		return question
	}

	msgs := make([]*ai.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(question)))

	resp, err := l.gen.Generate(ctx,
		ai.WithSystem(reformulatePrompt),
		ai.WithMessages(msgs...),
	)
	if err != nil {
		l.logger.Warn("question reformulation failed, using original question", "error", err)
		return question
	}

	standalone := strings.TrimSpace(resp.Text())
	if standalone == "" {
		return question
	}

	l.logger.Debug("reformulated question", "original", question, "standalone", standalone)
	return standalone
}

// synthesize generates the answer over the retrieved passages.
func (l *Lookup) synthesize(ctx context.Context, query string, results []index.Result) (string, error) {
	var sb strings.Builder
	if len(results) == 0 {
		sb.WriteString("(no relevant excerpts found)")
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] (%s)\n%s\n\n", i+1, r.Source, r.Content)
	}

	resp, err := l.gen.Generate(ctx,
		ai.WithSystem(fmt.Sprintf(answerPrompt, strings.TrimRight(sb.String(), "\n"))),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(query))),
	)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Text()), nil
}

// sources deduplicates result sources preserving retrieval order.
func sources(results []index.Result) []string {
	var out []string
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}
