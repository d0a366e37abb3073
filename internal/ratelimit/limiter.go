package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketRateLimits = []byte("llm_rate_limits")

// Level represents the level of rate limiting
type Level string

const (
	LevelGlobal    Level = "global"
	LevelUser      Level = "user"
	LevelProject   Level = "project"
	LevelOperation Level = "operation"
)

// Config contains LLM call budget configuration
type Config struct {
	// Global limits across all users
	Global *LimitConfig `yaml:"global,omitempty"`

	// Default limits per signed-in user
	DefaultUser *LimitConfig `yaml:"default_user,omitempty"`

	// Default limits per project
	DefaultProject *LimitConfig `yaml:"default_project,omitempty"`

	// Limits per LLM operation (classify, generate, personalize)
	Operations map[string]*LimitConfig `yaml:"operations,omitempty"`

	// Persistence settings
	FlushInterval time.Duration `yaml:"flush_interval,omitempty"`
}

// LimitConfig contains rate limit values
type LimitConfig struct {
	CallsPerHour int `yaml:"calls_per_hour" json:"calls_per_hour"`
	CallsPerDay  int `yaml:"calls_per_day" json:"calls_per_day"`
}

// Counter tracks rate limit counters
type Counter struct {
	HourlyCount int       `json:"hourly_count"`
	DailyCount  int       `json:"daily_count"`
	HourStart   time.Time `json:"hour_start"`
	DayStart    time.Time `json:"day_start"`
}

// Limiter keeps hourly and daily LLM call budgets at several levels
type Limiter struct {
	db       *bolt.DB
	config   *Config
	counters map[string]*Counter // key -> counter
	mu       sync.RWMutex
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewLimiter creates a new rate limiter
func NewLimiter(db *bolt.DB, cfg *Config) (*Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRateLimits)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limits bucket: %w", err)
	}

	l := &Limiter{
		db:       db,
		config:   cfg,
		counters: make(map[string]*Counter),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}

	if err := l.loadCounters(); err != nil {
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	go l.persistLoop()

	return l, nil
}

// Allow checks if the call is allowed and increments counters
func (l *Limiter) Allow(ctx context.Context, req *Request) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	checks := l.getChecks(req)

	for _, check := range checks {
		counter := l.getOrCreateCounter(check.key, now)
		resetExpiredCounters(counter, now)

		if denied := evaluate(check, counter.HourlyCount, counter.DailyCount, counter, now); denied != nil {
			return denied, nil
		}
	}

	for _, check := range checks {
		counter := l.counters[check.key]
		counter.HourlyCount++
		counter.DailyCount++
	}

	return &Result{Allowed: true}, nil
}

// Check reports whether the call would be allowed without incrementing counters
func (l *Limiter) Check(ctx context.Context, req *Request) (*Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.now()

	for _, check := range l.getChecks(req) {
		counter, exists := l.counters[check.key]
		if !exists {
			continue
		}

		hourlyCount := counter.HourlyCount
		dailyCount := counter.DailyCount
		if now.Sub(counter.HourStart) >= time.Hour {
			hourlyCount = 0
		}
		if now.Sub(counter.DayStart) >= 24*time.Hour {
			dailyCount = 0
		}

		if denied := evaluate(check, hourlyCount, dailyCount, counter, now); denied != nil {
			return denied, nil
		}
	}

	return &Result{Allowed: true}, nil
}

func evaluate(check limitCheck, hourly, daily int, counter *Counter, now time.Time) *Result {
	if check.limit.CallsPerHour > 0 && hourly >= check.limit.CallsPerHour {
		return &Result{
			DeniedBy:   check.level,
			DeniedKey:  check.key,
			RetryAfter: counter.HourStart.Add(time.Hour).Sub(now),
		}
	}
	if check.limit.CallsPerDay > 0 && daily >= check.limit.CallsPerDay {
		return &Result{
			DeniedBy:   check.level,
			DeniedKey:  check.key,
			RetryAfter: counter.DayStart.Add(24 * time.Hour).Sub(now),
		}
	}
	return nil
}

// GetStats returns current rate limit statistics
func (l *Limiter) GetStats(ctx context.Context, level Level, key string) (*Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &Stats{
		Level: level,
		Key:   key,
	}

	counter, exists := l.counters[makeKey(level, key)]
	if !exists {
		return stats, nil
	}

	now := l.now()
	stats.HourlyCount = counter.HourlyCount
	stats.DailyCount = counter.DailyCount
	stats.HourStart = counter.HourStart
	stats.DayStart = counter.DayStart

	if now.Sub(counter.HourStart) >= time.Hour {
		stats.HourlyCount = 0
	}
	if now.Sub(counter.DayStart) >= 24*time.Hour {
		stats.DailyCount = 0
	}

	return stats, nil
}

// Stop stops the background flush and persists counters
func (l *Limiter) Stop() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		<-l.done
	})
	return l.persistCounters()
}

// Request identifies who an LLM call is made for
type Request struct {
	UserID    string
	ProjectID string
	Operation string
}

// Result contains the rate limit check result
type Result struct {
	Allowed    bool
	DeniedBy   Level
	DeniedKey  string
	RetryAfter time.Duration
}

// Stats contains rate limit statistics
type Stats struct {
	Level       Level
	Key         string
	HourlyCount int
	DailyCount  int
	HourStart   time.Time
	DayStart    time.Time
}

type limitCheck struct {
	level Level
	key   string
	limit *LimitConfig
}

func (l *Limiter) getChecks(req *Request) []limitCheck {
	var checks []limitCheck

	if l.config.Global != nil {
		checks = append(checks, limitCheck{
			level: LevelGlobal,
			key:   makeKey(LevelGlobal, "global"),
			limit: l.config.Global,
		})
	}

	if req == nil {
		return checks
	}

	if req.UserID != "" && l.config.DefaultUser != nil {
		checks = append(checks, limitCheck{
			level: LevelUser,
			key:   makeKey(LevelUser, req.UserID),
			limit: l.config.DefaultUser,
		})
	}

	if req.ProjectID != "" && l.config.DefaultProject != nil {
		checks = append(checks, limitCheck{
			level: LevelProject,
			key:   makeKey(LevelProject, req.ProjectID),
			limit: l.config.DefaultProject,
		})
	}

	if limit, ok := l.config.Operations[req.Operation]; ok && req.Operation != "" && limit != nil {
		checks = append(checks, limitCheck{
			level: LevelOperation,
			key:   makeKey(LevelOperation, req.Operation),
			limit: limit,
		})
	}

	return checks
}

func (l *Limiter) getOrCreateCounter(key string, now time.Time) *Counter {
	counter, exists := l.counters[key]
	if !exists {
		counter = &Counter{
			HourStart: now,
			DayStart:  now,
		}
		l.counters[key] = counter
	}
	return counter
}

func resetExpiredCounters(counter *Counter, now time.Time) {
	if now.Sub(counter.HourStart) >= time.Hour {
		counter.HourlyCount = 0
		counter.HourStart = now
	}
	if now.Sub(counter.DayStart) >= 24*time.Hour {
		counter.DailyCount = 0
		counter.DayStart = now
	}
}

func (l *Limiter) loadCounters() error {
	return l.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRateLimits)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var counter Counter
			if err := json.Unmarshal(v, &counter); err != nil {
				return nil // Skip invalid entries
			}
			l.counters[string(k)] = &counter
			return nil
		})
	})
}

func (l *Limiter) persistCounters() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRateLimits)
		if bucket == nil {
			return nil
		}

		for key, counter := range l.counters {
			data, err := json.Marshal(counter)
			if err != nil {
				continue
			}
			if err := bucket.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *Limiter) persistLoop() {
	defer close(l.done)

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.persistCounters()
		}
	}
}

func makeKey(level Level, key string) string {
	return string(level) + ":" + key
}

type requestKey struct{}

// WithRequest attaches the caller identity used for budget checks
func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFromContext returns the identity attached by WithRequest
func RequestFromContext(ctx context.Context) Request {
	req, _ := ctx.Value(requestKey{}).(Request)
	return req
}
