// Package app assembles the application: configuration, the Genkit model
// runtime, the retrieval index, the capability set and the workflow engine.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/opsmantis/mantis/internal/config"
	"github.com/opsmantis/mantis/internal/index"
	"github.com/opsmantis/mantis/internal/workflow"
)

// App holds the wired application components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Index    *index.Manager
	Model    *workflow.Model
	Engine   *workflow.Engine

	otelCleanup func()
}

// Close releases application resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// RebuildIndex regenerates the retrieval index from the manual corpus and
// returns a human-readable status line.
func (a *App) RebuildIndex(ctx context.Context) (string, error) {
	h, err := a.Index.Rebuild(ctx)
	if err != nil {
		return "", fmt.Errorf("rebuild index: %w", err)
	}
	if h == nil {
		return fmt.Sprintf("Index cleared: no documents found under %s.", a.Config.ManualsDir), nil
	}
	return fmt.Sprintf("Index rebuilt: %d chunks from %s.", h.Count(), a.Config.ManualsDir), nil
}
