// Package api exposes the troubleshooting workflow over HTTP: a blocking
// chat endpoint, a streaming variant using server-sent events, and a
// manual reindex trigger.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/log"
	"github.com/opsmantis/mantis/internal/workflow"
)

// Server timeouts. Model calls are long-latency, so the write timeout is
// generous; idle connections are reaped quickly.
const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Runner executes one workflow run, blocking or streaming.
type Runner interface {
	Run(ctx context.Context, history []*ai.Message, query string) (*workflow.Result, error)
	Stream(ctx context.Context, history []*ai.Message, query string) <-chan workflow.Event
}

// Reindexer rebuilds the retrieval index on demand.
type Reindexer interface {
	RebuildIndex(ctx context.Context) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates a server with all routes configured.
func NewServer(runner Runner, reindexer Reindexer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{mux: mux, logger: logger}

	// Probe routes, no middleware.
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /ready", health)

	chat := &chatHandler{runner: runner, logger: logger}
	mux.HandleFunc("POST /api/chat", chat.send)
	mux.HandleFunc("POST /api/chat/stream", chat.stream)

	reindex := &reindexHandler{reindexer: reindexer, logger: logger}
	mux.HandleFunc("POST /api/reindex", reindex.rebuild)

	return s
}

// ServeHTTP implements http.Handler with the middleware stack applied:
// recovery outermost, then request ID assignment, then request logging,
// then routing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is canceled, then drains
// in-flight requests within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// health returns 200 OK if the process is alive.
func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
