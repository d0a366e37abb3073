package generator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/foxzi/recruitflow/internal/llm"
	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/prompt"
	"github.com/foxzi/recruitflow/internal/template"
)

var sectionSchema = llm.MustSchema(`{
	"type": "object",
	"required": ["section"],
	"properties": {
		"section": {"type": "string", "minLength": 1}
	}
}`)

// Personalized is the outcome of a personalization preview
type Personalized struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Personalizer rewrites the personalization section of one email for a
// specific candidate
type Personalizer struct {
	client  llm.Client
	prompts *prompt.Set
	call    llm.CallConfig
	logger  *slog.Logger
}

// NewPersonalizer creates a personalizer
func NewPersonalizer(client llm.Client, prompts *prompt.Set, call llm.CallConfig, logger *slog.Logger) *Personalizer {
	return &Personalizer{
		client:  client,
		prompts: prompts,
		call:    call,
		logger:  logger.With("component", "personalizer"),
	}
}

// Personalize replaces the text between the markers. Content without a
// section is returned unchanged and no call is made.
func (p *Personalizer) Personalize(ctx context.Context, content string, candidate template.Candidate) Personalized {
	if !template.HasPersonalizationSection(content) {
		return Personalized{Content: content, Source: ""}
	}

	section, err := p.ask(ctx, content, candidate)
	source := SourceLLM
	if err != nil {
		p.logger.Warn("personalization fell back to the template sentence", "error", err)
		metrics.IncLLMFallback(llm.OpPersonalize)
		section = fallbackSection(candidate)
		source = SourceFallback
	}

	out, _ := template.ReplacePersonalizationSection(content, section)
	return Personalized{Content: out, Source: source}
}

func (p *Personalizer) ask(ctx context.Context, content string, candidate template.Candidate) (string, error) {
	system, err := p.prompts.Render(prompt.PersonalizeSystem, prompt.Slots{})
	if err != nil {
		return "", err
	}
	user, err := p.prompts.Render(prompt.PersonalizeUser, prompt.Slots{
		"Content":   content,
		"Candidate": candidate,
	})
	if err != nil {
		return "", err
	}

	raw, err := p.client.Complete(ctx, p.call.Request(llm.OpPersonalize, system, user))
	if err != nil {
		return "", err
	}

	var out struct {
		Section string `json:"section"`
	}
	if err := llm.Decode(llm.OpPersonalize, raw, sectionSchema, &out); err != nil {
		return "", err
	}

	// a section must not open a nested pair
	section := template.StripPersonalizationMarkers(strings.TrimSpace(out.Section))
	if section == "" {
		return "", &llm.ParseError{Operation: llm.OpPersonalize, Raw: raw, Err: llm.ErrEmptyResponse}
	}
	return section, nil
}

func fallbackSection(c template.Candidate) string {
	if strings.TrimSpace(c.Company) != "" {
		return "<p>" + template.TokenFirstName + ", the " + template.TokenSkill +
			" work you have been doing at " + template.TokenCurrentCompany +
			" is exactly the kind of experience our team values.</p>"
	}
	return defaultSection
}
