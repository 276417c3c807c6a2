package capability

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/rag"
)

// ManualLookupName is the token plan steps use to invoke manual retrieval.
const ManualLookupName = "manual_lookup_structured"

// ManualLookup delegates to the RAG chain: history-aware reformulation,
// index search, and answer synthesis over the retrieved manual passages.
type ManualLookup struct {
	Chain *rag.Lookup
}

func (ManualLookup) Name() string { return ManualLookupName }

// Invoke returns the synthesized answer text. Source attribution stays in
// the log; the workflow only consumes the answer.
func (m ManualLookup) Invoke(ctx context.Context, query string, history []*ai.Message) (string, error) {
	answer, err := m.Chain.Run(ctx, query, history)
	if err != nil {
		return "", fmt.Errorf("manual lookup: %w", err)
	}
	return answer.Content, nil
}
