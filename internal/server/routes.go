package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /stats", s.stats)

	mux.HandleFunc("POST /turns", s.addTurn)
	mux.HandleFunc("GET /context", s.getContext)

	mux.HandleFunc("POST /memories", s.remember)
	mux.HandleFunc("GET /memories", s.listMemories)
	mux.HandleFunc("GET /memories/{id}", s.getMemory)
	mux.HandleFunc("PATCH /memories/{id}", s.patchMemory)
	mux.HandleFunc("POST /memories/{id}", s.postMemory)
	mux.HandleFunc("DELETE /memories/{id}", s.deleteMemory)
	mux.HandleFunc("POST /memories/{id}/recall", s.recall)
	mux.HandleFunc("GET /memories/{id}/why", s.explain)
	mux.HandleFunc("GET /memories/{id}/links", s.links)

	mux.HandleFunc("POST /gc", s.gc)
	mux.HandleFunc("GET /gc/runs", s.gcRuns)
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()))
	})
}
