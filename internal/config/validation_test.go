package config

import (
	"errors"
	"testing"
)

// validConfig returns a configuration that passes Validate.
// Tests mutate single fields from this baseline.
func validConfig() *Config {
	return &Config{
		Provider:      ProviderGemini,
		ModelName:     DefaultModelName,
		EmbedderModel: DefaultGeminiEmbedderModel,
		GeminiAPIKey:  "test-key",
		OllamaHost:    "http://localhost:11434",
		ManualsDir:    "manuals",
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		IndexDir:      "index",
		TopK:          DefaultTopK,
		MaxPlanSteps:  DefaultMaxPlanSteps,
		ServerAddr:    DefaultServerAddr,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid baseline",
			mutate: func(c *Config) {},
		},
		{
			name:    "gemini without api key",
			mutate:  func(c *Config) { c.GeminiAPIKey = "" },
			wantErr: ErrMissingAPIKey,
		},
		{
			name: "openai without api key is allowed",
			mutate: func(c *Config) {
				c.Provider = ProviderOpenAI
				c.GeminiAPIKey = ""
			},
		},
		{
			name: "ollama without scheme",
			mutate: func(c *Config) {
				c.Provider = ProviderOllama
				c.OllamaHost = "localhost:11434"
			},
			wantErr: ErrInvalidOllamaHost,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "bedrock" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "top-k too small",
			mutate:  func(c *Config) { c.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "top-k too large",
			mutate:  func(c *Config) { c.TopK = 50 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "chunk size too small",
			mutate:  func(c *Config) { c.ChunkSize = 10 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap not smaller than chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -1 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "plan steps out of range",
			mutate:  func(c *Config) { c.MaxPlanSteps = 100 },
			wantErr: ErrInvalidMaxPlanSteps,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want errors.Is(%v)", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	t.Parallel()

	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate on nil = %v, want ErrConfigNil", err)
	}
}
