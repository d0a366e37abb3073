package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics   *Metrics
	globalCollector *Collector
	globalMu        sync.RWMutex
)

// Metrics holds all Prometheus metrics for recruitflow
type Metrics struct {
	// LLM calls
	LLMCallsTotal          *prometheus.CounterVec
	LLMCallDurationSeconds *prometheus.HistogramVec
	LLMFallbacksTotal      *prometheus.CounterVec

	// Conversation and campaigns
	ConversationTurnsTotal  *prometheus.CounterVec
	CampaignsGeneratedTotal *prometheus.CounterVec
	CampaignsSavedTotal     prometheus.Counter
	ValidationFailuresTotal prometheus.Counter
	TestEmailsTotal         *prometheus.CounterVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// System metrics
	SessionsStored   prometheus.Gauge
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		LLMCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_llm_calls_total",
				Help: "Total number of LLM calls by outcome",
			},
			[]string{"operation", "provider", "status"},
		),
		LLMCallDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recruitflow_llm_call_duration_seconds",
				Help:    "LLM call duration in seconds",
				Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"operation", "provider"},
		),
		LLMFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_llm_fallbacks_total",
				Help: "Total number of times the deterministic fallback replaced an LLM result",
			},
			[]string{"operation"},
		),

		ConversationTurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_conversation_turns_total",
				Help: "Total number of conversation turns by resulting state",
			},
			[]string{"state"},
		),
		CampaignsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_campaigns_generated_total",
				Help: "Total number of generated campaigns by source",
			},
			[]string{"source"},
		),
		CampaignsSavedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recruitflow_campaigns_saved_total",
				Help: "Total number of campaigns saved",
			},
		),
		ValidationFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recruitflow_validation_failures_total",
				Help: "Total number of save attempts rejected by validation",
			},
		),
		TestEmailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_test_emails_total",
				Help: "Total number of test emails by outcome",
			},
			[]string{"status"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recruitflow_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		RateLimitExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recruitflow_ratelimit_exceeded_total",
				Help: "Total number of LLM calls denied by the call budget",
			},
			[]string{"level"},
		),

		SessionsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recruitflow_sessions_stored",
				Help: "Number of conversation sessions in storage",
			},
		),
		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recruitflow_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recruitflow_goroutines",
				Help: "Number of goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recruitflow_storage_used_bytes",
				Help: "Size of the session storage file in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.LLMCallsTotal,
		m.LLMCallDurationSeconds,
		m.LLMFallbacksTotal,
		m.ConversationTurnsTotal,
		m.CampaignsGeneratedTotal,
		m.CampaignsSavedTotal,
		m.ValidationFailuresTotal,
		m.TestEmailsTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.RateLimitExceededTotal,
		m.SessionsStored,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// SetGlobalCollector routes the package helpers through a persisting collector
func SetGlobalCollector(c *Collector) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCollector = c
}

func collector() *Collector {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCollector
}

// ObserveLLMCall records the outcome and duration of an LLM call
func ObserveLLMCall(operation, provider, status string, d time.Duration) {
	if c := collector(); c != nil {
		c.TrackLLMCall(operation, provider, status)
		c.metrics.LLMCallDurationSeconds.WithLabelValues(operation, provider).Observe(d.Seconds())
		return
	}
	m := Global()
	if m != nil {
		m.LLMCallsTotal.WithLabelValues(operation, provider, status).Inc()
		m.LLMCallDurationSeconds.WithLabelValues(operation, provider).Observe(d.Seconds())
	}
}

// IncLLMFallback increments the fallback counter
func IncLLMFallback(operation string) {
	if c := collector(); c != nil {
		c.TrackLLMFallback(operation)
		return
	}
	m := Global()
	if m != nil {
		m.LLMFallbacksTotal.WithLabelValues(operation).Inc()
	}
}

// IncConversationTurn increments the turn counter for the resulting state
func IncConversationTurn(state string) {
	m := Global()
	if m != nil {
		m.ConversationTurnsTotal.WithLabelValues(state).Inc()
	}
}

// IncCampaignsGenerated increments the generated campaign counter
func IncCampaignsGenerated(source string) {
	if c := collector(); c != nil {
		c.TrackCampaignGenerated(source)
		return
	}
	m := Global()
	if m != nil {
		m.CampaignsGeneratedTotal.WithLabelValues(source).Inc()
	}
}

// IncCampaignsSaved increments the saved campaign counter
func IncCampaignsSaved() {
	if c := collector(); c != nil {
		c.TrackCampaignSaved()
		return
	}
	m := Global()
	if m != nil {
		m.CampaignsSavedTotal.Inc()
	}
}

// IncValidationFailures increments the validation failure counter
func IncValidationFailures() {
	m := Global()
	if m != nil {
		m.ValidationFailuresTotal.Inc()
	}
}

// IncTestEmails increments the test email counter
func IncTestEmails(status string) {
	m := Global()
	if m != nil {
		m.TestEmailsTotal.WithLabelValues(status).Inc()
	}
}

// IncRateLimitExceeded increments rate limit exceeded counter
func IncRateLimitExceeded(level string) {
	if c := collector(); c != nil {
		c.TrackRateLimitExceeded(level)
		return
	}
	m := Global()
	if m != nil {
		m.RateLimitExceededTotal.WithLabelValues(level).Inc()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
