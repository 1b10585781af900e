// Package http is the admin surface: health, metrics and pool state for
// operators. It holds no storage logic.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	contentTypeJSON        = "application/json"
	defaultHTTPPort        = "8080"
	defaultShutdownTimeout = time.Second * 5
)

type iPoolStats interface {
	Outstanding() int
}

type iMetricsDump interface {
	WriteTo(w io.Writer) (int64, error)
}

// Server exposes the operator endpoints over chi.
type Server struct {
	pool       iPoolStats
	metrics    iMetricsDump
	httpServer *http.Server
	URL        string
	addr       string
}

func NewServer(port string, pool iPoolStats, metrics iMetricsDump) *Server {
	if port == "" {
		port = defaultHTTPPort
	}
	return &Server{
		pool:    pool,
		metrics: metrics,
		URL:     "http://localhost:" + port,
		addr:    ":" + port,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/debug/pool", s.handlePool)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := s.metrics.WriteTo(w); err != nil {
		slog.Error("metrics dump failed", "err", err)
	}
}

func (s *Server) handlePool(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewPoolResponse(s.pool.Outstanding()))
}

func writeJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	slog.Info("admin server shutting down")
	return s.httpServer.Shutdown(ctx)
}
