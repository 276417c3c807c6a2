package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/opsmantis/mantis/internal/capability"
	"github.com/opsmantis/mantis/internal/config"
	"github.com/opsmantis/mantis/internal/docs"
	"github.com/opsmantis/mantis/internal/index"
	"github.com/opsmantis/mantis/internal/log"
	"github.com/opsmantis/mantis/internal/rag"
	"github.com/opsmantis/mantis/internal/workflow"
)

// Setup validates the configuration and wires the application. Call
// App.Close to release resources.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		JSON:      cfg.LogJSON,
		AddSource: false,
	})

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			_ = a.Close()
		}
	}()

	// Tracing must be registered before Genkit initialization so spans
	// land on the provider Genkit installs.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, a)

	g, err := provideGenkit(ctx, cfg, a)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	loader := docs.NewLoader(cfg.ChunkSize, cfg.ChunkOverlap, logger)
	a.Index = index.NewManager(
		cfg.IndexDir,
		cfg.ManualsDir,
		loader,
		index.NewEmbeddingFunc(embedder),
		logger,
	)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	a.Model = workflow.NewModel(g, cfg.ModelName, limiter, logger)

	lookup := rag.NewLookup(a.Model, &rag.IndexRetriever{Manager: a.Index}, cfg.TopK, logger)
	dispatcher := capability.NewDispatcher(a.Model, []capability.Capability{
		capability.WebSearch{},
		capability.ManualLookup{Chain: lookup},
	}, logger)

	a.Engine = workflow.NewEngine(
		workflow.NewPlanner(a.Model, cfg.MaxPlanSteps, logger),
		workflow.NewExecutor(dispatcher, logger),
		workflow.NewSynthesizer(a.Model, logger),
		logger,
	)

	return a, nil
}

// provideOtelShutdown registers an OTLP HTTP span exporter on Genkit's
// TracerProvider. Disabled when no endpoint is configured.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, a *App) func() {
	tr := cfg.Tracing
	if tr.Endpoint == "" {
		return func() {}
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// Called exactly once during startup, before goroutines are spawned.
	if tr.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tr.ServiceName)
	}
	if tr.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tr.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(tr.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		a.Logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	a.Logger.Debug("tracing enabled",
		"endpoint", tr.Endpoint,
		"service", tr.ServiceName,
		"environment", tr.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, a *App) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		a.Logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		a.Logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		if cfg.GeminiAPIKey != "" {
			// The googlegenai plugin reads the key from the environment.
			_ = os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
		}
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		a.Logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider
// plugin. Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // gemini
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}
