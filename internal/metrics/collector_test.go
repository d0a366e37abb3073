package metrics

import (
	"context"
	"os"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

type mockSessionStats struct {
	count int
}

func (m *mockSessionStats) Count(ctx context.Context) (int, error) {
	return m.count, nil
}

func openTestDB(t *testing.T) (string, *bolt.DB) {
	t.Helper()

	f, err := os.CreateTemp("", "metrics_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := bolt.Open(f.Name(), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return f.Name(), db
}

func TestNewCollector(t *testing.T) {
	path, db := openTestDB(t)
	defer db.Close()

	c, err := NewCollector(db, New(), &mockSessionStats{count: 3}, path, 10*time.Second)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	if c == nil {
		t.Fatal("Collector is nil")
	}

	if err := c.Stop(); err != nil {
		t.Errorf("Failed to stop collector: %v", err)
	}
}

func TestCollectorPersistence(t *testing.T) {
	path, db := openTestDB(t)

	c, err := NewCollector(db, New(), nil, path, 10*time.Second)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	c.TrackLLMCall("classify", "openai", "ok")
	c.TrackLLMCall("classify", "openai", "ok")
	c.TrackLLMFallback("generate")
	c.TrackCampaignGenerated("llm")
	c.TrackCampaignSaved()
	c.TrackRateLimitExceeded("user")

	// Stop collector (should persist)
	if err := c.Stop(); err != nil {
		t.Errorf("Failed to stop collector: %v", err)
	}
	db.Close()

	db2, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	c2, err := NewCollector(db2, New(), nil, path, 10*time.Second)
	if err != nil {
		t.Fatalf("Failed to recreate collector: %v", err)
	}
	defer c2.Stop()

	if got := c2.shadow.LLMCalls["classify|openai|ok"]; got != 2 {
		t.Errorf("Expected LLMCalls[classify|openai|ok] = 2, got %f", got)
	}
	if c2.shadow.CampaignsSaved != 1 {
		t.Errorf("Expected CampaignsSaved = 1, got %f", c2.shadow.CampaignsSaved)
	}
	if c2.shadow.RateLimitExceeded["user"] != 1 {
		t.Errorf("Expected RateLimitExceeded[user] = 1, got %f", c2.shadow.RateLimitExceeded["user"])
	}
}

func TestCollectSystemMetrics(t *testing.T) {
	path, db := openTestDB(t)
	defer db.Close()

	m := New()
	c, err := NewCollector(db, m, &mockSessionStats{count: 7}, path, 10*time.Second)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}
	defer c.Stop()

	c.collectSystemMetrics(context.Background())

	if got := gaugeValue(t, m.SessionsStored); got != 7 {
		t.Errorf("Expected SessionsStored = 7, got %f", got)
	}
	if got := gaugeValue(t, m.Goroutines); got <= 0 {
		t.Errorf("Expected positive Goroutines, got %f", got)
	}
}

func TestLabelKeyHelpers(t *testing.T) {
	key := makeTripleLabelKey("generate", "gemini", "error")
	op, p, s := splitTripleLabelKey(key)
	if op != "generate" || p != "gemini" || s != "error" {
		t.Errorf("Expected (generate, gemini, error), got (%s, %s, %s)", op, p, s)
	}

	op, p, s = splitTripleLabelKey("only")
	if op != "only" || p != "" || s != "" {
		t.Errorf("Expected (only, , ), got (%s, %s, %s)", op, p, s)
	}
}
