package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	return testutil.ToFloat64(g)
}

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	if m.LLMCallsTotal == nil {
		t.Error("LLMCallsTotal is nil")
	}
	if m.CampaignsGeneratedTotal == nil {
		t.Error("CampaignsGeneratedTotal is nil")
	}
	if m.APIRequestsTotal == nil {
		t.Error("APIRequestsTotal is nil")
	}
	if m.APIRequestDurationSeconds == nil {
		t.Error("APIRequestDurationSeconds is nil")
	}
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}

	SetGlobal(nil)
}

func TestObserveLLMCall(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	ObserveLLMCall("classify", "openai", "ok", 2*time.Second)
	ObserveLLMCall("classify", "openai", "ok", time.Second)
	ObserveLLMCall("classify", "openai", "error", time.Second)

	if got := testutil.ToFloat64(m.LLMCallsTotal.WithLabelValues("classify", "openai", "ok")); got != 2 {
		t.Errorf("Expected 2 ok calls, got %f", got)
	}
	if got := testutil.CollectAndCount(m.LLMCallDurationSeconds); got != 1 {
		t.Errorf("Expected one duration series, got %d", got)
	}
}

func TestHelpersThroughCollector(t *testing.T) {
	path, db := openTestDB(t)
	defer db.Close()

	m := New()
	c, err := NewCollector(db, m, nil, path, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}
	defer c.Stop()

	SetGlobal(m)
	SetGlobalCollector(c)
	defer func() {
		SetGlobal(nil)
		SetGlobalCollector(nil)
	}()

	IncCampaignsGenerated("fallback")
	IncCampaignsSaved()
	IncLLMFallback("classify")

	if c.shadow.CampaignsGenerated["fallback"] != 1 {
		t.Error("IncCampaignsGenerated did not reach the collector")
	}
	if got := testutil.ToFloat64(m.CampaignsSavedTotal); got != 1 {
		t.Errorf("Expected CampaignsSavedTotal = 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.LLMFallbacksTotal.WithLabelValues("classify")); got != 1 {
		t.Errorf("Expected LLMFallbacksTotal = 1, got %f", got)
	}
}

func TestGlobalNilSafe(t *testing.T) {
	SetGlobal(nil)

	// These should not panic when global is nil
	ObserveLLMCall("classify", "none", "error", 0)
	IncLLMFallback("classify")
	IncConversationTurn("goal")
	IncCampaignsGenerated("llm")
	IncCampaignsSaved()
	IncValidationFailures()
	IncTestEmails("sent")
	IncRateLimitExceeded("global")
	IncAPIErrors("server_error")
}
