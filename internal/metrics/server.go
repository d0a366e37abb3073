package metrics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/foxzi/recruitflow/internal/ipfilter"
)

// Server serves Prometheus metrics over HTTP
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	addr       string
	path       string
	logger     *slog.Logger
	filter     *ipfilter.Filter
}

// NewServer creates a new metrics HTTP server
func NewServer(m *Metrics, addr, path string, logger *slog.Logger) *Server {
	return NewServerWithAllowedIPs(m, addr, path, nil, logger)
}

// NewServerWithAllowedIPs creates a new metrics HTTP server with IP filtering.
// Scrapers commonly sit behind a proxy, so forwarded headers are trusted.
func NewServerWithAllowedIPs(m *Metrics, addr, path string, allowedIPs []string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = ":9090"
	}
	if path == "" {
		path = "/metrics"
	}

	s := &Server{
		metrics: m,
		addr:    addr,
		path:    path,
		logger:  logger,
		filter:  ipfilter.New(allowedIPs, true, logger),
	}

	if s.filter.Enabled() {
		logger.Info("metrics IP filtering enabled", "allowed_networks", s.filter.Count())
	}

	return s
}

// Handler returns the metrics mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	handler := promhttp.HandlerFor(
		s.metrics.Registry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
	mux.Handle(s.path, s.filter.HTTPMiddleware(handler))

	// Health check endpoint (no IP filtering - useful for load balancers)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// ListenAndServe starts the metrics HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.logger.Info("starting metrics server", "addr", s.addr, "path", s.path)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}
