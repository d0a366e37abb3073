package metrics

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SessionStatsProvider reports how many sessions are stored
type SessionStatsProvider interface {
	Count(ctx context.Context) (int, error)
}

var bucketMetrics = []byte("metrics")

// ShadowCounters stores counter values for persistence
type ShadowCounters struct {
	LLMCalls           map[string]float64 `json:"llm_calls"`
	LLMFallbacks       map[string]float64 `json:"llm_fallbacks"`
	CampaignsGenerated map[string]float64 `json:"campaigns_generated"`
	CampaignsSaved     float64            `json:"campaigns_saved"`
	RateLimitExceeded  map[string]float64 `json:"ratelimit_exceeded"`
}

// Collector handles metrics persistence and system gauge updates
type Collector struct {
	db            *bolt.DB
	metrics       *Metrics
	sessions      SessionStatsProvider
	storagePath   string
	flushInterval time.Duration
	startTime     time.Time

	shadow ShadowCounters
	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a new metrics collector
func NewCollector(db *bolt.DB, m *Metrics, sessions SessionStatsProvider, storagePath string, flushInterval time.Duration) (*Collector, error) {
	if flushInterval == 0 {
		flushInterval = 10 * time.Second
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMetrics)
		return err
	})
	if err != nil {
		return nil, err
	}

	c := &Collector{
		db:            db,
		metrics:       m,
		sessions:      sessions,
		storagePath:   storagePath,
		flushInterval: flushInterval,
		startTime:     time.Now(),
		shadow: ShadowCounters{
			LLMCalls:           make(map[string]float64),
			LLMFallbacks:       make(map[string]float64),
			CampaignsGenerated: make(map[string]float64),
			RateLimitExceeded:  make(map[string]float64),
		},
		stopCh: make(chan struct{}),
	}

	if err := c.loadCounters(); err != nil {
		return nil, err
	}

	return c, nil
}

// Start begins the collector background tasks
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(2)
	go c.persistLoop(ctx)
	go c.updateSystemMetrics(ctx)
}

// Stop stops the collector and persists final values
func (c *Collector) Stop() error {
	close(c.stopCh)
	c.wg.Wait()
	return c.persistCounters()
}

// loadCounters restores persisted counter values
func (c *Collector) loadCounters() error {
	return c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketMetrics)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte("counters"))
		if data == nil {
			return nil
		}

		var shadow ShadowCounters
		if err := json.Unmarshal(data, &shadow); err != nil {
			return nil // Skip invalid data
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		for k, v := range shadow.LLMCalls {
			op, provider, status := splitTripleLabelKey(k)
			c.shadow.LLMCalls[k] = v
			c.metrics.LLMCallsTotal.WithLabelValues(op, provider, status).Add(v)
		}
		for k, v := range shadow.LLMFallbacks {
			c.shadow.LLMFallbacks[k] = v
			c.metrics.LLMFallbacksTotal.WithLabelValues(k).Add(v)
		}
		for k, v := range shadow.CampaignsGenerated {
			c.shadow.CampaignsGenerated[k] = v
			c.metrics.CampaignsGeneratedTotal.WithLabelValues(k).Add(v)
		}
		c.shadow.CampaignsSaved = shadow.CampaignsSaved
		c.metrics.CampaignsSavedTotal.Add(shadow.CampaignsSaved)
		for k, v := range shadow.RateLimitExceeded {
			c.shadow.RateLimitExceeded[k] = v
			c.metrics.RateLimitExceededTotal.WithLabelValues(k).Add(v)
		}

		return nil
	})
}

// persistCounters saves counter values to BoltDB
func (c *Collector) persistCounters() error {
	c.mu.Lock()
	data, err := json.Marshal(c.shadow)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketMetrics)
		if bucket == nil {
			return nil
		}
		return bucket.Put([]byte("counters"), data)
	})
}

func (c *Collector) persistLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.persistCounters()
		}
	}
}

func (c *Collector) updateSystemMetrics(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collectSystemMetrics(ctx)
		}
	}
}

// collectSystemMetrics collects current system state
func (c *Collector) collectSystemMetrics(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.storagePath != "" {
		if info, err := os.Stat(c.storagePath); err == nil {
			c.metrics.StorageUsedBytes.Set(float64(info.Size()))
		}
	}

	if c.sessions != nil {
		if n, err := c.sessions.Count(ctx); err == nil {
			c.metrics.SessionsStored.Set(float64(n))
		}
	}
}

// TrackLLMCall tracks an LLM call outcome and updates shadow counter
func (c *Collector) TrackLLMCall(operation, provider, status string) {
	key := makeTripleLabelKey(operation, provider, status)
	c.mu.Lock()
	c.shadow.LLMCalls[key]++
	c.mu.Unlock()
	c.metrics.LLMCallsTotal.WithLabelValues(operation, provider, status).Inc()
}

// TrackLLMFallback tracks a fallback and updates shadow counter
func (c *Collector) TrackLLMFallback(operation string) {
	c.mu.Lock()
	c.shadow.LLMFallbacks[operation]++
	c.mu.Unlock()
	c.metrics.LLMFallbacksTotal.WithLabelValues(operation).Inc()
}

// TrackCampaignGenerated tracks a generated campaign and updates shadow counter
func (c *Collector) TrackCampaignGenerated(source string) {
	c.mu.Lock()
	c.shadow.CampaignsGenerated[source]++
	c.mu.Unlock()
	c.metrics.CampaignsGeneratedTotal.WithLabelValues(source).Inc()
}

// TrackCampaignSaved tracks a saved campaign and updates shadow counter
func (c *Collector) TrackCampaignSaved() {
	c.mu.Lock()
	c.shadow.CampaignsSaved++
	c.mu.Unlock()
	c.metrics.CampaignsSavedTotal.Inc()
}

// TrackRateLimitExceeded tracks rate limit exceeded and updates shadow counter
func (c *Collector) TrackRateLimitExceeded(level string) {
	c.mu.Lock()
	c.shadow.RateLimitExceeded[level]++
	c.mu.Unlock()
	c.metrics.RateLimitExceededTotal.WithLabelValues(level).Inc()
}

func makeTripleLabelKey(a, b, c string) string {
	return a + "|" + b + "|" + c
}

func splitTripleLabelKey(key string) (string, string, string) {
	parts := strings.SplitN(key, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}
