// Package app wires recruitflow together and runs its servers
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"

	"github.com/foxzi/recruitflow/internal/api"
	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/config"
	"github.com/foxzi/recruitflow/internal/conversation"
	"github.com/foxzi/recruitflow/internal/generator"
	"github.com/foxzi/recruitflow/internal/llm"
	"github.com/foxzi/recruitflow/internal/mailer"
	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/prompt"
	"github.com/foxzi/recruitflow/internal/ratelimit"
	"github.com/foxzi/recruitflow/internal/repository"
	"github.com/foxzi/recruitflow/internal/session"
	"github.com/foxzi/recruitflow/internal/studio"
	"github.com/foxzi/recruitflow/internal/telemetry"
	apitls "github.com/foxzi/recruitflow/internal/tls"
)

// App is the main application
type App struct {
	config  *config.Config
	version string
	logger  *slog.Logger

	bolt     *bolt.DB
	db       *repository.DB
	sessions *session.Storage
	catalog  *catalog.Catalog
	studio   *studio.Service

	rateLimiter   *ratelimit.Limiter
	collector     *metrics.Collector
	metricsServer *metrics.Server
	apiServer     *api.Server
	tls           *apitls.Source
	acmeServer    *http.Server
	shutdownTrace telemetry.ShutdownFunc

	closeOnce sync.Once
}

// Options tweak how New builds the application
type Options struct {
	// LogOutput receives log lines. Defaults to stdout.
	LogOutput io.Writer
}

// New creates a new application. Nothing listens until Run.
func New(ctx context.Context, cfg *config.Config, version string, opts Options) (*App, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)

	a := &App{
		config:  cfg,
		version: version,
		logger:  logger,
		catalog: catalog.Default(),
	}

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	shutdownTrace, err := telemetry.Setup(ctx, cfg.Tracing, version, logger.With("component", "telemetry"))
	if err != nil {
		return nil, err
	}
	a.shutdownTrace = shutdownTrace

	// Session storage
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	a.bolt, err = bolt.Open(cfg.Storage.Path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.sessions, err = session.NewStorage(a.bolt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}

	// Campaign database
	a.db, err = repository.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := a.db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Metrics
	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)

		a.collector, err = metrics.NewCollector(a.bolt, m, a.sessions, cfg.Storage.Path, cfg.Metrics.FlushInterval)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics collector: %w", err)
		}
		metrics.SetGlobalCollector(a.collector)

		a.metricsServer = metrics.NewServerWithAllowedIPs(
			m,
			cfg.Metrics.ListenAddr,
			cfg.Metrics.Path,
			cfg.Metrics.AllowedIPs,
			logger.With("component", "metrics"),
		)
		logger.Info("metrics enabled", "addr", cfg.Metrics.ListenAddr, "path", cfg.Metrics.Path)
	}

	// LLM client
	client, err := llm.New(ctx, cfg.LLM.ProviderConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	if cfg.LLM.Provider == llm.ProviderNone {
		logger.Warn("no llm provider configured, every reply and campaign uses the built-in fallback")
	}

	if cfg.RateLimit.Enabled {
		rlConfig := cfg.RateLimit.Config
		a.rateLimiter, err = ratelimit.NewLimiter(a.bolt, &rlConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		client = llm.WithBudget(client, a.rateLimiter, logger)
		logger.Info("llm call budgets enabled")
	}

	// Test email relay
	mailOpts := mailer.Options{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		TLS:                cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		From:               cfg.SMTP.From,
		FromName:           cfg.SMTP.FromName,
		Hostname:           cfg.SMTP.Hostname,
		Timeout:            cfg.SMTP.Timeout,
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.DKIM.Enabled {
		signer, err := mailer.NewSignerFromFile(cfg.SMTP.DKIM.KeyFile, cfg.SMTP.DKIM.Domain, cfg.SMTP.DKIM.Selector)
		if err != nil {
			return nil, fmt.Errorf("failed to load DKIM key: %w", err)
		}
		mailOpts.DKIM = signer
		logger.Info("DKIM signing enabled", "domain", signer.Domain(), "selector", signer.Selector())
	}
	mail := mailer.New(mailOpts, logger)
	if !mail.Enabled() {
		logger.Info("smtp relay not configured, test emails are disabled")
	}

	prompts := prompt.Default()
	a.studio = studio.New(studio.Options{
		Sessions:      a.sessions,
		Campaigns:     repository.NewCampaignRepository(a.db.DB),
		Collateral:    repository.NewCollateralRepository(a.db.DB),
		Audit:         repository.NewAuditRepository(a.db.DB),
		Classifier:    conversation.NewClassifier(client, prompts, a.catalog, cfg.LLM.Classify, logger),
		Generator:     generator.New(client, prompts, a.catalog, cfg.LLM.Generate, logger),
		Personalizer:  generator.NewPersonalizer(client, prompts, cfg.LLM.Personalize, logger),
		Mailer:        mail,
		CompanyName:   cfg.Defaults.CompanyName,
		RecruiterName: cfg.Defaults.RecruiterName,
		Logger:        logger,
	})

	a.apiServer = api.NewServer(a.studio, a.catalog, &cfg.API, version, logger.With("component", "api"))

	a.tls, err = apitls.New(apitls.Options{
		CertFile:     cfg.API.TLS.CertFile,
		KeyFile:      cfg.API.TLS.KeyFile,
		ACMEEnabled:  cfg.API.TLS.ACME.Enabled,
		ACMEEmail:    cfg.API.TLS.ACME.Email,
		ACMEDomains:  cfg.API.TLS.ACME.Domains,
		ACMECacheDir: cfg.API.TLS.ACME.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up TLS: %w", err)
	}
	if a.tls != nil {
		a.apiServer.SetTLSConfig(a.tls.Config())
		if a.tls.ACME() {
			a.acmeServer = &http.Server{
				Addr:    cfg.API.TLS.ACME.ChallengeAddr,
				Handler: a.tls.ChallengeHandler(),
			}
			logger.Info("ACME (Let's Encrypt) enabled", "domains", cfg.API.TLS.ACME.Domains)
		} else {
			logger.Info("TLS enabled with manual certificates")
		}
	}

	ok = true
	return a, nil
}

// Studio returns the authoring service
func (a *App) Studio() *studio.Service {
	return a.studio
}

// Catalog returns the example catalog
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Logger returns the application logger
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run starts all servers and waits for a signal or a server error
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	a.logger.Info("starting recruitflow",
		"version", a.version,
		"api_addr", a.config.API.ListenAddr,
		"llm_provider", a.config.LLM.Provider,
	)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if a.collector != nil {
		a.collector.Start(ctx)
	}

	g.Go(func() error {
		if err := a.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if a.metricsServer != nil {
		g.Go(func() error {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	// ACME HTTP-01 challenge listener
	if a.acmeServer != nil {
		g.Go(func() error {
			a.logger.Info("starting ACME HTTP challenge server", "addr", a.acmeServer.Addr)
			if err := a.acmeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Warn("ACME HTTP server error", "error", err)
			}
			return nil
		})
	}

	if a.config.Storage.SessionMaxAge > 0 {
		g.Go(func() error {
			a.pruneLoop(ctx)
			return nil
		})
	}

	// Graceful shutdown once a signal arrives or a server fails
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("api server shutdown error", "error", err)
		}
		if a.acmeServer != nil {
			if err := a.acmeServer.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("acme server shutdown error", "error", err)
			}
		}
		if a.metricsServer != nil {
			if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("metrics server shutdown error", "error", err)
			}
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		a.logger.Error("server error", "error", err)
	}
	return err
}

// pruneLoop deletes sessions idle for longer than storage.session_max_age
func (a *App) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.Storage.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.sessions.Prune(ctx, time.Now().Add(-a.config.Storage.SessionMaxAge))
			if err != nil {
				a.logger.Error("session prune failed", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Info("pruned idle sessions", "count", n)
			}
		}
	}
}

// Close flushes counters and releases storage. It is safe to call twice.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.collector != nil {
			if err := a.collector.Stop(); err != nil {
				a.logger.Error("metrics collector stop error", "error", err)
			}
			metrics.SetGlobalCollector(nil)
		}

		// Stop rate limiter (persists counters)
		if a.rateLimiter != nil {
			if err := a.rateLimiter.Stop(); err != nil {
				a.logger.Error("rate limiter stop error", "error", err)
			}
		}

		if a.shutdownTrace != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.shutdownTrace(ctx); err != nil {
				a.logger.Error("tracer shutdown error", "error", err)
			}
			cancel()
		}

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.logger.Error("database close error", "error", err)
			}
		}
		if a.bolt != nil {
			if err := a.bolt.Close(); err != nil {
				a.logger.Error("storage close error", "error", err)
			}
		}

		a.logger.Info("shutdown complete")
	})
	return nil
}

// NewLogger creates a logger based on configuration
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
