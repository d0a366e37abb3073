package api

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/config"
	"github.com/foxzi/recruitflow/internal/ipfilter"
	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/studio"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	tlsConfig  *tls.Config
	studio     *studio.Service
	catalog    *catalog.Catalog
	keys       *KeyStore
	filter     *ipfilter.Filter
	config     *config.APIConfig
	version    string
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(svc *studio.Service, cat *catalog.Catalog, cfg *config.APIConfig, version string, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		studio:    svc,
		catalog:   cat,
		keys:      NewKeyStore(cfg.Keys),
		filter:    ipfilter.New(cfg.AllowedIPs, false, logger),
		config:    cfg,
		version:   version,
		logger:    logger,
		startTime: time.Now(),
	}

	if len(cfg.Keys) == 0 {
		logger.Warn("no API keys configured, every request runs as the anonymous user")
	}
	if s.filter.Enabled() {
		logger.Info("API IP filtering enabled", "allowed_networks", s.filter.Count())
	}

	s.setupRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	// API v1 routes (auth required)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.filter.HTTPMiddleware)
		r.Use(s.authMiddleware)

		r.Get("/catalog", s.handleCatalog)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/", s.handleListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/messages", s.handleSendMessage)
				r.Post("/generate", s.handleGenerate)
				r.Post("/save", s.handleSave)

				r.Post("/steps", s.handleAddStep)
				r.Route("/steps/{stepID}", func(r chi.Router) {
					r.Patch("/", s.handleUpdateStep)
					r.Delete("/", s.handleRemoveStep)
					r.Post("/duplicate", s.handleDuplicateStep)
					r.Post("/move", s.handleMoveStep)
					r.Post("/preview", s.handlePreviewStep)
					r.Post("/personalize", s.handlePersonalizeStep)
					r.Post("/test-email", s.handleSendTestEmail)
				})
			})
		})

		r.Get("/campaigns", s.handleListCampaigns)
		r.Get("/campaigns/{id}", s.handleGetCampaign)
		r.Post("/campaigns/{id}/open", s.handleOpenCampaign)

		r.Get("/projects/{projectID}/collateral", s.handleListCollateral)
		r.Post("/projects/{projectID}/collateral", s.handleAddCollateral)
	})
}

// SetTLSConfig makes ListenAndServe serve HTTPS
func (s *Server) SetTLSConfig(cfg *tls.Config) {
	s.tlsConfig = cfg
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		TLSConfig:      s.tlsConfig,
	}

	if s.tlsConfig != nil {
		s.logger.Info("starting HTTPS API server", "addr", s.config.ListenAddr)
		return s.httpServer.ListenAndServeTLS("", "")
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
