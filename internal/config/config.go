// Package config loads the recruitflow YAML configuration
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foxzi/recruitflow/internal/llm"
	"github.com/foxzi/recruitflow/internal/ratelimit"
)

// EnvLLMAPIKey overrides llm.api_key when set
const EnvLLMAPIKey = "RECRUITFLOW_LLM_API_KEY"

// Config is the main configuration structure
type Config struct {
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	RateLimit RateLimitConfig `yaml:"rate_limit"` // LLM call budgets
	SMTP      SMTPConfig      `yaml:"smtp"`       // Relay for test sends
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Metrics   MetricsConfig   `yaml:"metrics"` // Prometheus metrics configuration
	Tracing   TracingConfig   `yaml:"tracing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	Keys           []APIKey      `yaml:"keys"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"` // Max HTTP header size (default: 1MB)
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // HTTP read timeout (default: 30s)
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // HTTP write timeout (default: 120s, generation is slow)
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // HTTP idle timeout (default: 60s)
	AllowedIPs     []string      `yaml:"allowed_ips"`      // IP addresses/CIDRs allowed to access API (empty = allow all)
	TrustProxy     bool          `yaml:"trust_proxy"`      // Take client IP from X-Forwarded-For
	TLS            APITLSConfig  `yaml:"tls"`
}

// APITLSConfig enables HTTPS on the API listener
type APITLSConfig struct {
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	ACME     ACMEConfig `yaml:"acme"`
}

// ACMEConfig contains Let's Encrypt settings
type ACMEConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Email         string   `yaml:"email"`
	Domains       []string `yaml:"domains"`
	CacheDir      string   `yaml:"cache_dir"`
	ChallengeAddr string   `yaml:"challenge_addr"` // HTTP-01 listener (default: :80)
}

// APIKey maps a bcrypt-hashed key to a user
type APIKey struct {
	Name   string `yaml:"name"`
	UserID string `yaml:"user_id"`
	Hash   string `yaml:"hash"` // bcrypt hash, see `recruitflow apikey hash`
}

// DatabaseConfig contains the campaign database settings
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file, ":memory:" for tests
}

// StorageConfig contains bbolt storage settings
type StorageConfig struct {
	Path          string        `yaml:"path"`
	SessionMaxAge time.Duration `yaml:"session_max_age"` // Delete idle sessions older than this (0 = keep forever)
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// LLMConfig selects the provider and per call-site settings
type LLMConfig struct {
	llm.ProviderConfig `yaml:",inline"`

	Classify    llm.CallConfig `yaml:"classify"`
	Generate    llm.CallConfig `yaml:"generate"`
	Personalize llm.CallConfig `yaml:"personalize"`
}

// RateLimitConfig contains LLM call budget settings
type RateLimitConfig struct {
	Enabled          bool `yaml:"enabled"`
	ratelimit.Config `yaml:",inline"`
}

// SMTPConfig contains the submission relay used for test emails
type SMTPConfig struct {
	Host               string        `yaml:"host"` // Empty disables test sends
	Port               int           `yaml:"port"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	TLS                string        `yaml:"tls"` // none, starttls, tls
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	From               string        `yaml:"from"`
	FromName           string        `yaml:"from_name"`
	Hostname           string        `yaml:"hostname"` // EHLO name
	Timeout            time.Duration `yaml:"timeout"`
	DKIM               DKIMConfig    `yaml:"dkim"`
}

// DKIMConfig contains DKIM signing settings
type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
	Domain   string `yaml:"domain"`
}

// DefaultsConfig seeds new drafts
type DefaultsConfig struct {
	CompanyName   string `yaml:"company_name"`
	RecruiterName string `yaml:"recruiter_name"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ListenAddr    string        `yaml:"listen_addr"`    // Default: :9090
	Path          string        `yaml:"path"`           // Default: /metrics
	FlushInterval time.Duration `yaml:"flush_interval"` // Default: 10s
	AllowedIPs    []string      `yaml:"allowed_ips"`    // IP addresses/CIDRs allowed to access metrics
}

// TracingConfig contains OpenTelemetry export settings
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // OTLP/HTTP host:port
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if key := os.Getenv(EnvLLMAPIKey); key != "" {
		cfg.LLM.APIKey = key
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.MaxHeaderBytes == 0 {
		c.API.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 120 * time.Second
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.API.TLS.ACME.Enabled {
		if c.API.TLS.ACME.CacheDir == "" {
			c.API.TLS.ACME.CacheDir = "/var/lib/recruitflow/certs"
		}
		if c.API.TLS.ACME.ChallengeAddr == "" {
			c.API.TLS.ACME.ChallengeAddr = ":80"
		}
	}

	if c.Database.Path == "" {
		c.Database.Path = "/var/lib/recruitflow/campaigns.db"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/recruitflow/sessions.db"
	}
	if c.Storage.PruneInterval == 0 {
		c.Storage.PruneInterval = time.Hour
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = llm.ProviderNone
	}
	setCallDefaults(&c.LLM.Classify, 0.2, 1024, 20*time.Second)
	setCallDefaults(&c.LLM.Generate, 0.7, 8192, 90*time.Second)
	setCallDefaults(&c.LLM.Personalize, 0.7, 1024, 20*time.Second)

	if c.RateLimit.FlushInterval == 0 {
		c.RateLimit.FlushInterval = 10 * time.Second
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "starttls"
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 30 * time.Second
	}
	if c.SMTP.Hostname == "" {
		hostname, _ := os.Hostname()
		c.SMTP.Hostname = hostname
	}
	if c.SMTP.DKIM.Domain == "" {
		if i := strings.LastIndex(c.SMTP.From, "@"); i >= 0 {
			c.SMTP.DKIM.Domain = c.SMTP.From[i+1:]
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	// Metrics defaults
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.FlushInterval == 0 {
		c.Metrics.FlushInterval = 10 * time.Second
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "recruitflow"
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

func setCallDefaults(c *llm.CallConfig, temperature float64, maxTokens int, timeout time.Duration) {
	if c.Temperature == 0 {
		c.Temperature = temperature
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = maxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = timeout
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderGemini:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %s", c.LLM.Provider)
		}
		for name, call := range map[string]llm.CallConfig{
			"classify":    c.LLM.Classify,
			"generate":    c.LLM.Generate,
			"personalize": c.LLM.Personalize,
		} {
			if call.Model == "" {
				return fmt.Errorf("llm.%s.model is required", name)
			}
		}
	case llm.ProviderNone:
	default:
		return fmt.Errorf("llm.provider must be one of openai, gemini, none, got %q", c.LLM.Provider)
	}

	seen := make(map[string]bool)
	for i, k := range c.API.Keys {
		if k.UserID == "" {
			return fmt.Errorf("api.keys[%d]: user_id is required", i)
		}
		if !strings.HasPrefix(k.Hash, "$2") {
			return fmt.Errorf("api.keys[%d]: hash must be a bcrypt hash", i)
		}
		if k.Name != "" {
			if seen[k.Name] {
				return fmt.Errorf("api.keys[%d]: duplicate name %q", i, k.Name)
			}
			seen[k.Name] = true
		}
	}

	if (c.API.TLS.CertFile == "") != (c.API.TLS.KeyFile == "") {
		return fmt.Errorf("api.tls requires both cert_file and key_file")
	}
	if c.API.TLS.ACME.Enabled && len(c.API.TLS.ACME.Domains) == 0 {
		return fmt.Errorf("api.tls.acme requires at least one domain")
	}

	if c.SMTP.Host != "" {
		switch c.SMTP.TLS {
		case "none", "starttls", "tls":
		default:
			return fmt.Errorf("smtp.tls must be one of none, starttls, tls, got %q", c.SMTP.TLS)
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("smtp.from is required when smtp.host is set")
		}
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			return fmt.Errorf("smtp.port out of range: %d", c.SMTP.Port)
		}
		if c.SMTP.DKIM.Enabled && (c.SMTP.DKIM.KeyFile == "" || c.SMTP.DKIM.Selector == "") {
			return fmt.Errorf("smtp.dkim requires key_file and selector")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1")
	}

	return nil
}
