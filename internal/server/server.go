// Package server exposes the lifecycle engine over HTTP/JSON.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/engine"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

// Reader is the read side of the store used by the HTTP handlers.
type Reader interface {
	Context(ctx context.Context, p store.ContextParams) (*store.ContextResult, error)
	ListMemories(ctx context.Context, p store.ListParams) ([]model.Memory, error)
	GetMemory(ctx context.Context, id int64) (*model.Memory, error)
	Links(ctx context.Context, memoryID int64) ([]store.LinkedTurn, error)
	Stats(ctx context.Context) (*store.Stats, error)
	GCRuns(ctx context.Context, limit int) ([]model.GCRun, error)
}

// Server is the HTTP API server.
type Server struct {
	engine *engine.Engine
	reader Reader
	http   *http.Server
}

// New creates a server listening on host:port.
func New(eng *engine.Engine, reader Reader, host string, port int) *Server {
	s := &Server{engine: eng, reader: reader}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           withRequestID(withLogging(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
