package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// WebSearchName is the token plan steps use to invoke the web search stub.
const WebSearchName = "web_search"

// WebSearch is a stub search capability with deterministic canned results
// keyed by substring match. A real deployment would back this with a
// search API; the workflow only depends on the text-in, text-out contract.
type WebSearch struct{}

func (WebSearch) Name() string { return WebSearchName }

func (WebSearch) Invoke(_ context.Context, query string, _ []*ai.Message) (string, error) {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "latest machine model"):
		return "The latest machine model is 'AlphaPro 2000' released in Q3 2024, featuring enhanced AI diagnostics.", nil
	case strings.Contains(lower, "company contact"):
		return "You can contact support at support@example.com or call +1-800-123-4567.", nil
	default:
		return fmt.Sprintf("Search results for '%s': No specific information found in mock database. You might want to try a real search engine.", query), nil
	}
}
