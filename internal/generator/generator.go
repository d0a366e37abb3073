// Package generator turns a completed draft into a campaign sequence.
package generator

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/llm"
	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/prompt"
	"github.com/foxzi/recruitflow/internal/template"
)

// collateralLimit bounds each collateral item in the prompt, in characters
const collateralLimit = 300

// Result sources
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Result is a generated campaign
type Result struct {
	Data   campaign.Data        `json:"campaignData"`
	Steps  []campaign.EmailStep `json:"emailSteps"`
	Source string               `json:"source"`
}

type generatedStep struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Content string `json:"content"`
	Delay   *int   `json:"delay"`
}

type generatedCampaign struct {
	Name  string          `json:"name"`
	Steps []generatedStep `json:"steps"`
}

var campaignSchema = llm.MustSchema(`{
	"type": "object",
	"required": ["steps"],
	"properties": {
		"name": {"type": "string"},
		"steps": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"type": {"type": "string"},
					"subject": {"type": "string"},
					"content": {"type": "string"},
					"delay": {"type": ["integer", "null"]}
				}
			}
		}
	}
}`)

type collateralSlot struct {
	Type    string
	Content string
}

// Generator produces campaigns from drafts
type Generator struct {
	client  llm.Client
	prompts *prompt.Set
	catalog *catalog.Catalog
	call    llm.CallConfig
	logger  *slog.Logger
}

// New creates a generator
func New(client llm.Client, prompts *prompt.Set, cat *catalog.Catalog, call llm.CallConfig, logger *slog.Logger) *Generator {
	return &Generator{
		client:  client,
		prompts: prompts,
		catalog: cat,
		call:    call,
		logger:  logger.With("component", "generator"),
	}
}

// Example resolves the guideline example of a draft, by id first and then
// by goal text
func (g *Generator) Example(d campaign.Draft) (catalog.Example, error) {
	if ex, ok := g.catalog.Get(d.MatchedExampleID); ok {
		return ex, nil
	}
	if ex, ok := g.catalog.FindByGoal(d.Goal); ok {
		return ex, nil
	}
	return catalog.Example{}, &NoGuidelineError{Goal: d.Goal, MatchedExampleID: d.MatchedExampleID}
}

// Generate builds a campaign for the draft. Once an example is found it
// always succeeds: model failures switch to the deterministic builder.
func (g *Generator) Generate(ctx context.Context, d campaign.Draft, collateral []campaign.Collateral) (*Result, error) {
	ex, err := g.Example(d)
	if err != nil {
		return nil, err
	}

	data := campaignData(d, ex, collateral)

	generated, err := g.ask(ctx, d, ex, collateral)
	if err != nil {
		g.logger.Warn("campaign generation fell back to the builder",
			"example", ex.ID,
			"error", err,
		)
		metrics.IncLLMFallback(llm.OpGenerate)
		metrics.IncCampaignsGenerated(SourceFallback)

		data.Name = fallbackName(d, ex)
		return &Result{
			Data:   data,
			Steps:  BuildFallback(d, ex, collateral),
			Source: SourceFallback,
		}, nil
	}

	if name := strings.TrimSpace(generated.Name); name != "" {
		data.Name = name
	} else {
		data.Name = fallbackName(d, ex)
	}

	steps := g.normalize(generated.Steps, d, ex, collateral)
	g.checkWordCounts(steps, d.Length())
	metrics.IncCampaignsGenerated(SourceLLM)

	g.logger.Info("campaign generated",
		"example", ex.ID,
		"steps", len(steps),
		"personalized", d.Personalized(),
	)

	return &Result{Data: data, Steps: steps, Source: SourceLLM}, nil
}

func (g *Generator) ask(ctx context.Context, d campaign.Draft, ex catalog.Example, collateral []campaign.Collateral) (*generatedCampaign, error) {
	band := BandFor(d.Length())
	style := StyleFor(d.Tone)

	system, err := g.prompts.Render(prompt.GenerateSystem, prompt.Slots{
		"Tone":   style,
		"Length": band,
	})
	if err != nil {
		return nil, err
	}

	user, err := g.prompts.Render(prompt.GenerateUser, prompt.Slots{
		"Example":     ex,
		"Draft":       d,
		"Tone":        style,
		"Length":      band,
		"Collateral":  collateralSlots(collateral),
		"Personalize": d.Personalized(),
		"StartMarker": template.PersonalizationStart,
		"EndMarker":   template.PersonalizationEnd,
	})
	if err != nil {
		return nil, err
	}

	raw, err := g.client.Complete(ctx, g.call.Request(llm.OpGenerate, system, user))
	if err != nil {
		return nil, err
	}

	var out generatedCampaign
	if err := llm.Decode(llm.OpGenerate, raw, campaignSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Generator) checkWordCounts(steps []campaign.EmailStep, length campaign.EmailLength) {
	band := BandFor(length)
	for _, s := range steps {
		n := template.WordCount(s.Content)
		if !band.Contains(n) {
			g.logger.Info("step outside word band",
				"step", s.ID,
				"words", n,
				"min", band.Min,
				"max", band.Max,
			)
		}
	}
}

func campaignData(d campaign.Draft, ex catalog.Example, collateral []campaign.Collateral) campaign.Data {
	typ := d.Type
	if !typ.Valid() {
		typ = ex.CampaignType
	}

	var sources []string
	for _, c := range collateral {
		if strings.TrimSpace(c.Content) != "" {
			sources = append(sources, c.Type)
		}
	}

	return campaign.Data{
		Type:                  typ,
		Goal:                  d.Goal,
		TargetAudience:        d.TargetAudience,
		Tone:                  StyleFor(d.Tone).Name,
		EmailLength:           d.Length(),
		AdditionalContext:     d.AdditionalContext,
		EnablePersonalization: d.Personalized(),
		CompanyName:           d.CompanyName,
		RecruiterName:         d.RecruiterName,
		MatchedExampleID:      ex.ID,
		ContentSources:        sources,
	}
}

func collateralSlots(collateral []campaign.Collateral) []collateralSlot {
	var out []collateralSlot
	for _, c := range collateral {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		out = append(out, collateralSlot{Type: c.Type, Content: truncate(content, collateralLimit)})
	}
	return out
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
