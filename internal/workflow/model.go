package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/opsmantis/mantis/internal/log"
)

// Generator abstracts LLM text and structured generation. The concrete
// implementation is Model; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// Model is the production Generator: a Genkit model call with client-side
// rate limiting and exponential backoff retry on transient failures.
//
// Model is safe for concurrent use.
type Model struct {
	g       *genkit.Genkit
	name    string
	limiter *rate.Limiter
	retry   RetryConfig
	logger  *slog.Logger
}

// NewModel creates a Model bound to the named model. limiter may be nil
// to disable client-side rate limiting.
func NewModel(g *genkit.Genkit, name string, limiter *rate.Limiter, logger *slog.Logger) *Model {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Model{
		g:       g,
		name:    name,
		limiter: limiter,
		retry:   DefaultRetryConfig(),
		logger:  logger,
	}
}

// Generate runs one model call with retry. Each attempt waits on the rate
// limiter first, so retries cannot burst past the configured rate.
func (m *Model) Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	full := append([]ai.GenerateOption{ai.WithModelName(m.name)}, opts...)

	var lastErr error
	delay := m.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= m.retry.MaxRetries; attempt++ {
		if m.limiter != nil {
			if err := m.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := genkit.Generate(ctx, m.g, full...)
		if err == nil {
			m.logger.Debug("model call succeeded",
				"model", m.name,
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}

		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}

		if attempt == m.retry.MaxRetries {
			break
		}

		m.logger.Debug("retrying model call",
			"model", m.name,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry canceled: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > m.retry.MaxInterval {
			delay = m.retry.MaxInterval
		}
	}

	return nil, fmt.Errorf("generate failed after %d attempts: %w", m.retry.MaxRetries+1, lastErr)
}
