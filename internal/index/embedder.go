package index

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
)

// EmbeddingFunc maps text to a fixed-dimension vector.
// It is the opaque embedding boundary; the same func must be used at build
// and query time or similarity scores are meaningless.
type EmbeddingFunc = chromem.EmbeddingFunc

// NewEmbeddingFunc bridges a Genkit ai.Embedder to the chromem-go embedding
// contract. chromem-go normalizes vectors itself, so no manual normalization
// is needed here.
func NewEmbeddingFunc(embedder ai.Embedder) EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
			Input: []*ai.Document{
				ai.DocumentFromText(text, nil),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}

		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
			return nil, fmt.Errorf("embedder returned no vector")
		}

		return resp.Embeddings[0].Embedding, nil
	}
}
