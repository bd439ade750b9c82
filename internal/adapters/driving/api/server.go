package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("api: answer service is required")

// maxRequestBody caps request bodies; questions are at most a few KB.
const maxRequestBody = 1 << 20

// Ports aggregates the driving ports the HTTP server calls.
type Ports struct {
	Answer driving.AnswerService
	Health driving.HealthService
}

// Options configures optional server features.
type Options struct {
	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler

	// AllowedOrigins enables CORS for the listed origins. "*" allows any.
	AllowedOrigins []string
}

// Server serves the HTTP API.
type Server struct {
	ports   Ports
	opts    Options
	handler http.Handler
}

// NewServer creates the HTTP server and its routes.
func NewServer(ports Ports, opts Options) (*Server, error) {
	if ports.Answer == nil {
		return nil, ErrMissingAnswerService
	}

	s := &Server{ports: ports, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat/query", s.handleQuery)
	mux.HandleFunc("POST /api/v1/chat/query/stream", s.handleQueryStream)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	if opts.MCPHandler != nil {
		mux.Handle("/mcp", opts.MCPHandler)
	}

	s.handler = recoverer(requestLogger(s.cors(mux)))
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown: %v", err)
		}
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
