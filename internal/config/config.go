// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (MANTIS_ prefix, runtime override)
//  2. Config file (~/.mantis/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider selection, model names, embedder model
//   - Corpus: manuals directory, chunking parameters
//   - Index: persistence directory, retrieval top-K
//   - Workflow: plan step cap, LLM rate limit
//   - Server: HTTP listen address
//   - Tracing: optional OTLP export (see tracing section below)
//
// Error handling uses sentinel errors so callers can match with errors.Is().
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidChunking indicates chunk size/overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidMaxPlanSteps indicates the plan step cap is out of range.
	ErrInvalidMaxPlanSteps = errors.New("invalid max plan steps")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// Provider identifiers accepted by Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Defaults applied by Load when neither env nor config file set a value.
const (
	// DefaultModelName is the provider-qualified chat/planner model.
	DefaultModelName = "googleai/gemini-2.5-flash"

	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultTopK is the number of chunks retrieved per manual lookup.
	DefaultTopK = 3

	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the overlap between consecutive chunks in runes.
	DefaultChunkOverlap = 200

	// DefaultMaxPlanSteps caps how many steps a plan may contain.
	DefaultMaxPlanSteps = 9

	// DefaultServerAddr is the default HTTP listen address.
	DefaultServerAddr = "127.0.0.1:3500"
)

// Tracing holds optional OTLP trace export settings.
// When Endpoint is empty, tracing is disabled.
type Tracing struct {
	Endpoint    string // OTLP HTTP endpoint, e.g. "localhost:4318"
	ServiceName string
	Environment string
}

// Config holds all runtime configuration for mantis.
type Config struct {
	// AI provider
	Provider       string // "gemini", "openai", or "ollama"
	ModelName      string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	EmbedderModel  string
	GeminiAPIKey   string // also read from GEMINI_API_KEY for the plugin
	OllamaHost     string
	OpenAIBaseURL  string // informational; compat plugin reads OPENAI_BASE_URL
	RateLimitRPS   float64
	RateLimitBurst int

	// Corpus
	ManualsDir   string
	ChunkSize    int
	ChunkOverlap int

	// Index
	IndexDir string
	TopK     int

	// Workflow
	MaxPlanSteps int

	// Server
	ServerAddr string

	// Logging
	LogLevel string
	LogJSON  bool

	// Tracing
	Tracing Tracing
}

// Load reads configuration from defaults, an optional config file, and
// environment variables (in increasing priority).
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MANTIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Optional config file: ~/.mantis/config.yaml
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".mantis"))
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults + env apply.
	}

	cfg := &Config{
		Provider:       v.GetString("provider"),
		ModelName:      v.GetString("model"),
		EmbedderModel:  v.GetString("embedder_model"),
		GeminiAPIKey:   v.GetString("gemini_api_key"),
		OllamaHost:     v.GetString("ollama_host"),
		OpenAIBaseURL:  v.GetString("openai_base_url"),
		RateLimitRPS:   v.GetFloat64("rate_limit_rps"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),
		ManualsDir:     v.GetString("manuals_dir"),
		ChunkSize:      v.GetInt("chunk_size"),
		ChunkOverlap:   v.GetInt("chunk_overlap"),
		IndexDir:       v.GetString("index_dir"),
		TopK:           v.GetInt("top_k"),
		MaxPlanSteps:   v.GetInt("max_plan_steps"),
		ServerAddr:     v.GetString("server_addr"),
		LogLevel:       v.GetString("log_level"),
		LogJSON:        v.GetBool("log_json"),
		Tracing: Tracing{
			Endpoint:    v.GetString("tracing.endpoint"),
			ServiceName: v.GetString("tracing.service_name"),
			Environment: v.GetString("tracing.environment"),
		},
	}

	// The googlegenai plugin reads GEMINI_API_KEY directly; mirror it into
	// the config so validation can give a clear error up front.
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model", DefaultModelName)
	v.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("rate_limit_rps", 10.0)
	v.SetDefault("rate_limit_burst", 30)
	v.SetDefault("manuals_dir", "manuals")
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("index_dir", defaultIndexDir())
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("max_plan_steps", DefaultMaxPlanSteps)
	v.SetDefault("server_addr", DefaultServerAddr)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("tracing.service_name", "mantis")
}

// defaultIndexDir returns the default location of the persisted index.
func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mantis/index"
	}
	return filepath.Join(home, ".mantis", "index")
}
