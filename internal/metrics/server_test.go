package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewServerWithAllowedIPs(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New()

	tests := []struct {
		name       string
		allowedIPs []string
		wantCount  int
	}{
		{
			name:       "empty list",
			allowedIPs: nil,
			wantCount:  0,
		},
		{
			name:       "mixed",
			allowedIPs: []string{"192.168.1.1", "10.0.0.0/8", "172.16.0.1"},
			wantCount:  3,
		},
		{
			name:       "with invalid",
			allowedIPs: []string{"192.168.1.1", "invalid", "10.0.0.1"},
			wantCount:  2,
		},
		{
			name:       "IPv6",
			allowedIPs: []string{"::1", "fe80::/10"},
			wantCount:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServerWithAllowedIPs(m, ":9090", "/metrics", tt.allowedIPs, logger)
			if s.filter.Count() != tt.wantCount {
				t.Errorf("expected %d allowed IPs, got %d", tt.wantCount, s.filter.Count())
			}
		})
	}
}

func TestServerHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New()
	m.CampaignsSavedTotal.Inc()

	s := NewServerWithAllowedIPs(m, "", "", []string{"192.168.1.0/24"}, logger)
	h := s.Handler()

	tests := []struct {
		name       string
		path       string
		remoteAddr string
		xff        string
		wantStatus int
	}{
		{"allowed IP", "/metrics", "192.168.1.100:12345", "", http.StatusOK},
		{"denied IP", "/metrics", "10.0.0.1:12345", "", http.StatusForbidden},
		{"forwarded client allowed", "/metrics", "127.0.0.1:12345", "192.168.1.7", http.StatusOK},
		{"health is not filtered", "/health", "10.0.0.1:12345", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.path == "/metrics" && rec.Code == http.StatusOK &&
				!strings.Contains(rec.Body.String(), "recruitflow_campaigns_saved_total") {
				t.Error("metrics output does not contain recruitflow_campaigns_saved_total")
			}
		})
	}
}
