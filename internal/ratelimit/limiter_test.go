package ratelimit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupTestDB(t *testing.T) (*bolt.DB, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "ratelimit_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(dir, "test.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to open db: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(dir)
	}

	return db, cleanup
}

func TestNewLimiterDefaultConfig(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	limiter, err := NewLimiter(db, nil)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	if limiter.config.FlushInterval != 10*time.Second {
		t.Errorf("expected default FlushInterval=10s, got %v", limiter.config.FlushInterval)
	}
}

func TestAllowGlobalLimit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &Config{
		Global: &LimitConfig{
			CallsPerHour: 3,
			CallsPerDay:  10,
		},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	ctx := context.Background()
	req := &Request{UserID: "user-1", Operation: "classify"}

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, req)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !result.Allowed {
			t.Errorf("call %d should be allowed", i+1)
		}
	}

	result, err := limiter.Allow(ctx, req)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if result.Allowed {
		t.Error("call 4 should be denied")
	}
	if result.DeniedBy != LevelGlobal {
		t.Errorf("expected DeniedBy=global, got %s", result.DeniedBy)
	}
	if result.RetryAfter <= 0 {
		t.Error("expected positive RetryAfter")
	}
}

func TestAllowPerUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &Config{
		DefaultUser:   &LimitConfig{CallsPerHour: 2},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	ctx := context.Background()
	alice := &Request{UserID: "alice"}
	bob := &Request{UserID: "bob"}

	for i := 0; i < 2; i++ {
		if result, _ := limiter.Allow(ctx, alice); !result.Allowed {
			t.Errorf("alice call %d should be allowed", i+1)
		}
	}

	if result, _ := limiter.Allow(ctx, alice); result.Allowed || result.DeniedBy != LevelUser {
		t.Errorf("alice call 3 = %+v, want denied by user", result)
	}

	if result, _ := limiter.Allow(ctx, bob); !result.Allowed {
		t.Error("bob has his own budget")
	}
}

func TestAllowPerOperation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &Config{
		Operations: map[string]*LimitConfig{
			"generate": {CallsPerDay: 1},
		},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	ctx := context.Background()

	if result, _ := limiter.Allow(ctx, &Request{Operation: "generate"}); !result.Allowed {
		t.Error("first generate should be allowed")
	}
	if result, _ := limiter.Allow(ctx, &Request{Operation: "generate"}); result.Allowed || result.DeniedBy != LevelOperation {
		t.Errorf("second generate = %+v, want denied by operation", result)
	}
	for i := 0; i < 5; i++ {
		if result, _ := limiter.Allow(ctx, &Request{Operation: "classify"}); !result.Allowed {
			t.Error("classify has no budget configured")
		}
	}
}

func TestHourlyWindowResets(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &Config{
		Global:        &LimitConfig{CallsPerHour: 1},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	now := time.Now()
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	limiter.Allow(ctx, &Request{})
	if result, _ := limiter.Allow(ctx, &Request{}); result.Allowed {
		t.Fatal("second call in the same hour should be denied")
	}

	now = now.Add(time.Hour + time.Second)
	if result, _ := limiter.Allow(ctx, &Request{}); !result.Allowed {
		t.Error("call after the hour should be allowed")
	}
}

func TestCheck(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &Config{
		Global: &LimitConfig{
			CallsPerHour: 2,
		},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	ctx := context.Background()
	req := &Request{UserID: "user-1"}

	for i := 0; i < 5; i++ {
		result, err := limiter.Check(ctx, req)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Allowed {
			t.Errorf("Check %d should return allowed (doesn't increment)", i+1)
		}
	}

	result, _ := limiter.Allow(ctx, req)
	if !result.Allowed {
		t.Error("first Allow should be allowed")
	}
}

func TestGetStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &Config{
		Global: &LimitConfig{
			CallsPerHour: 100,
		},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	ctx := context.Background()
	req := &Request{ProjectID: "project-1"}

	for i := 0; i < 3; i++ {
		limiter.Allow(ctx, req)
	}

	stats, err := limiter.GetStats(ctx, LevelGlobal, "global")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.HourlyCount != 3 {
		t.Errorf("expected HourlyCount=3, got %d", stats.HourlyCount)
	}
	if stats.DailyCount != 3 {
		t.Errorf("expected DailyCount=3, got %d", stats.DailyCount)
	}

	missing, err := limiter.GetStats(ctx, LevelProject, "nonexistent")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if missing.HourlyCount != 0 {
		t.Errorf("expected HourlyCount=0, got %d", missing.HourlyCount)
	}
}

func TestPersistence(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &Config{
		Global: &LimitConfig{
			CallsPerHour: 10,
		},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		limiter.Allow(ctx, &Request{})
	}

	// Stop flushes counters
	if err := limiter.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := limiter.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}

	limiter2, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create second limiter: %v", err)
	}
	defer limiter2.Stop()

	stats, err := limiter2.GetStats(ctx, LevelGlobal, "global")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.HourlyCount != 5 {
		t.Errorf("expected persisted HourlyCount=5, got %d", stats.HourlyCount)
	}
}

func TestMakeKey(t *testing.T) {
	tests := []struct {
		level    Level
		key      string
		expected string
	}{
		{LevelGlobal, "global", "global:global"},
		{LevelUser, "user-1", "user:user-1"},
		{LevelProject, "p-9", "project:p-9"},
		{LevelOperation, "generate", "operation:generate"},
	}

	for _, tc := range tests {
		result := makeKey(tc.level, tc.key)
		if result != tc.expected {
			t.Errorf("makeKey(%s, %s) = %s, expected %s", tc.level, tc.key, result, tc.expected)
		}
	}
}

func TestZeroLimits(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// Zero limits mean unlimited
	cfg := &Config{
		Global:        &LimitConfig{},
		FlushInterval: time.Hour,
	}

	limiter, err := NewLimiter(db, cfg)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Stop()

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if result, _ := limiter.Allow(ctx, &Request{}); !result.Allowed {
			t.Fatalf("call %d should be allowed with zero limits", i+1)
		}
	}
}

func TestRequestContext(t *testing.T) {
	ctx := WithRequest(context.Background(), Request{UserID: "u", ProjectID: "p"})
	req := RequestFromContext(ctx)
	if req.UserID != "u" || req.ProjectID != "p" {
		t.Errorf("RequestFromContext() = %+v", req)
	}

	if empty := RequestFromContext(context.Background()); empty != (Request{}) {
		t.Errorf("RequestFromContext() on bare context = %+v", empty)
	}
}
