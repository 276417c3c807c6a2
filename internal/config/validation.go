package config

import (
	"fmt"
	"strings"
)

// Validation bounds. Values outside these ranges are almost certainly
// misconfiguration rather than intent.
const (
	MinTopK = 1
	MaxTopK = 10

	MinChunkSize = 100
	MaxChunkSize = 8000

	MinPlanSteps = 1
	MaxPlanSteps = 9
)

// Validate checks the configuration for consistency and required values.
// It returns the first problem found, wrapped around a sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: set MANTIS_GEMINI_API_KEY or GEMINI_API_KEY", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		// The compat plugin reads OPENAI_API_KEY itself; local servers
		// commonly accept any key, so absence is not fatal here.
	case ProviderOllama:
		if !strings.HasPrefix(c.OllamaHost, "http://") && !strings.HasPrefix(c.OllamaHost, "https://") {
			return fmt.Errorf("%w: %q must include scheme", ErrInvalidOllamaHost, c.OllamaHost)
		}
	default:
		return fmt.Errorf("%w: %q (want %s, %s, or %s)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOpenAI, ProviderOllama)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}

	if c.TopK < MinTopK || c.TopK > MaxTopK {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidTopK, c.TopK, MinTopK, MaxTopK)
	}

	if c.ChunkSize < MinChunkSize || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d (want %d-%d)",
			ErrInvalidChunking, c.ChunkSize, MinChunkSize, MaxChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk size)", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.MaxPlanSteps < MinPlanSteps || c.MaxPlanSteps > MaxPlanSteps {
		return fmt.Errorf("%w: %d (want %d-%d)",
			ErrInvalidMaxPlanSteps, c.MaxPlanSteps, MinPlanSteps, MaxPlanSteps)
	}

	return nil
}
