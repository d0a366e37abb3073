package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxzi/recruitflow/internal/app"
	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/config"
	"github.com/foxzi/recruitflow/internal/llm"
)

func testApp(t *testing.T) *app.App {
	t.Helper()

	cfg := &config.Config{}
	cfg.Storage.Path = filepath.Join(t.TempDir(), "sessions.db")
	cfg.Database.Path = ":memory:"
	cfg.LLM.Provider = llm.ProviderNone
	cfg.Defaults.CompanyName = "Mercy Health"
	cfg.Defaults.RecruiterName = "Dana"
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "text"

	a, err := app.New(context.Background(), cfg, "test", app.Options{LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestChatGeneratesAndSaves(t *testing.T) {
	a := testApp(t)

	in := strings.NewReader(strings.Join([]string{
		"build talent community",
		"ICU nurses with 3+ years of experience",
		"friendly, medium length please",
		"Mention our new sign-on bonus & flexible shifts.",
		"yes, personalize it",
		"looks good, generate",
	}, "\n") + "\n")
	var out bytes.Buffer

	err := chat(context.Background(), a.Studio(), in, &out, chatOptions{
		UserID:    "cli",
		ProjectID: "project-1",
		SaveAs:    "ICU community",
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"assistant> ", "Generating campaign...", "Step 1 (", "immediately", "Saved campaign ICU community"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestChatQuit(t *testing.T) {
	a := testApp(t)

	var out bytes.Buffer
	err := chat(context.Background(), a.Studio(), strings.NewReader("/quit\n"), &out, chatOptions{UserID: "cli"})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if strings.Contains(out.String(), "Generating") {
		t.Error("quit should not generate")
	}
}

func TestChatEOF(t *testing.T) {
	a := testApp(t)

	var out bytes.Buffer
	if err := chat(context.Background(), a.Studio(), strings.NewReader(""), &out, chatOptions{UserID: "cli"}); err != nil {
		t.Fatalf("chat failed on EOF: %v", err)
	}
}

func TestFormatDelay(t *testing.T) {
	tests := []struct {
		step campaign.EmailStep
		want string
	}{
		{campaign.EmailStep{DelayUnit: campaign.DelayImmediately}, "immediately"},
		{campaign.EmailStep{Delay: 1, DelayUnit: campaign.DelayBusinessDays}, "after 1 business day"},
		{campaign.EmailStep{Delay: 3, DelayUnit: campaign.DelayBusinessDays}, "after 3 business days"},
	}

	for _, tt := range tests {
		if got := formatDelay(tt.step); got != tt.want {
			t.Errorf("formatDelay(%+v) = %q, want %q", tt.step, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("ñññññññññññ", 6); got != "ñññ..." {
		t.Errorf("truncate(runes) = %q", got)
	}
}

func TestGenerateKey(t *testing.T) {
	k1, k2 := generateKey(), generateKey()
	if len(k1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(k1))
	}
	if k1 == k2 {
		t.Error("generated keys should differ")
	}
}
