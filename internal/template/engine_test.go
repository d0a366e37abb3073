package template

import (
	"strings"
	"testing"

	"github.com/foxzi/recruitflow/internal/campaign"
)

func TestEngine_Substitute(t *testing.T) {
	engine := NewEngine()
	full := Context{
		Candidate: Candidate{
			Name:    "Jane Q Doe",
			Company: "Mercy General",
			Skills:  []string{"ICU", "ER"},
		},
		CompanyName:   "Acme Health",
		RecruiterName: "Sam Lee",
	}

	tests := []struct {
		name    string
		content string
		ctx     Context
		want    string
	}{
		{
			name:    "no tokens",
			content: "<p>Hello there</p>",
			ctx:     full,
			want:    "<p>Hello there</p>",
		},
		{
			name:    "all tokens",
			content: "{{First Name}} at {{Current Company}} meet {{Company Name}}, {{Your Name}}/{{Recruiter Name}} ({{Skill}})",
			ctx:     full,
			want:    "Jane at Mercy General meet Acme Health, Sam Lee/Sam Lee (ICU)",
		},
		{
			name:    "every occurrence",
			content: "{{First Name}} {{First Name}} {{First Name}}",
			ctx:     full,
			want:    "Jane Jane Jane",
		},
		{
			name:    "fallbacks",
			content: "{{Company Name}} {{Recruiter Name}} {{Skill}}",
			ctx:     Context{},
			want:    "Our Company Your Recruiter healthcare",
		},
		{
			name:    "unresolved tokens stay intact",
			content: "Hi {{First Name}} from {{Current Company}} {{Unknown}}",
			ctx:     Context{},
			want:    "Hi {{First Name}} from {{Current Company}} {{Unknown}}",
		},
		{
			name:    "no recursive expansion",
			content: "{{First Name}}",
			ctx:     Context{Candidate: Candidate{Name: "{{Company Name}}"}},
			want:    "{{Company Name}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Substitute(tt.content, tt.ctx)
			if got != tt.want {
				t.Errorf("Substitute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_Render(t *testing.T) {
	engine := NewEngine()

	step := campaign.EmailStep{
		ID:      1,
		Subject: "Hello {{First Name}}",
		Content: "<p>Dear {{First Name}},</p><p>Join {{Company Name}} &amp; grow.</p>",
	}
	ctx := Context{Candidate: Candidate{Name: "Jane Doe"}, CompanyName: "Acme"}

	result := engine.Render(step, ctx)

	if result.Subject != "Hello Jane" {
		t.Errorf("Render() subject = %v, want %v", result.Subject, "Hello Jane")
	}
	if !strings.Contains(result.HTML, "Join Acme") {
		t.Errorf("Render() html = %v, want company substituted", result.HTML)
	}
	if result.Text != "Dear Jane,\nJoin Acme & grow." {
		t.Errorf("Render() text = %q", result.Text)
	}
	if result.WordCount != 6 {
		t.Errorf("Render() word count = %d, want 6", result.WordCount)
	}
}

func TestHasPersonalizationSection(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"<p>hi</p>", false},
		{PersonalizationStart + "<p>x</p>" + PersonalizationEnd, true},
		{PersonalizationStart + "<p>x</p>", false},
		{PersonalizationEnd, false},
	}

	for _, tt := range tests {
		if got := HasPersonalizationSection(tt.content); got != tt.want {
			t.Errorf("HasPersonalizationSection(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestReplacePersonalizationSection(t *testing.T) {
	content := "<p>a</p>" + PersonalizationStart + "<p>old</p>" + PersonalizationEnd + "<p>b</p>"

	got, ok := ReplacePersonalizationSection(content, "<p>new</p>")
	if !ok {
		t.Fatal("ReplacePersonalizationSection() ok = false")
	}
	want := "<p>a</p>" + PersonalizationStart + "<p>new</p>" + PersonalizationEnd + "<p>b</p>"
	if got != want {
		t.Errorf("ReplacePersonalizationSection() = %q, want %q", got, want)
	}

	reversed := PersonalizationEnd + "x" + PersonalizationStart
	if got, ok := ReplacePersonalizationSection(reversed, "y"); ok || got != reversed {
		t.Errorf("ReplacePersonalizationSection() on reversed markers = %q, %v", got, ok)
	}
}

func TestTokens(t *testing.T) {
	content := "{{First Name}} {{Skill}} {{First Name}} {{Company Name}}"

	got := Tokens(content)
	if len(got) != 3 || got[0] != TokenFirstName || got[1] != TokenSkill {
		t.Errorf("Tokens() = %v", got)
	}

	ns := NonStandardTokens(content)
	if len(ns) != 1 || ns[0] != TokenSkill {
		t.Errorf("NonStandardTokens() = %v, want [%s]", ns, TokenSkill)
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		html string
		want int
	}{
		{"", 0},
		{"<p>one two</p><p>three</p>", 3},
		{"<ul><li>a</li><li>b c</li></ul>" + PersonalizationStart + PersonalizationEnd, 3},
	}
	for _, tt := range tests {
		if got := WordCount(tt.html); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.html, got, tt.want)
		}
	}
}
