package generator

import (
	"fmt"
	"strings"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/template"
)

// defaultSection is the personalization paragraph used when the model or
// the builder has nothing better
const defaultSection = "<p>" + template.TokenFirstName + ", your experience in " + template.TokenSkill +
	" stood out to us, and we think you would thrive on our team.</p>"

// neutralTokens replaces personalization-only tokens in campaigns that are
// not personalized
var neutralTokens = strings.NewReplacer(
	template.TokenYourName, template.TokenRecruiterName,
	template.TokenCurrentCompany, "your current organization",
	template.TokenSkill, template.DefaultSkill,
)

// normalize re-validates model steps: ids 1..N, delay invariant, missing
// fields defaulted from the builder, personalization markers enforced.
func (g *Generator) normalize(in []generatedStep, d campaign.Draft, ex catalog.Example, collateral []campaign.Collateral) []campaign.EmailStep {
	fallback := BuildFallback(d, ex, collateral)
	delays := fallbackDelays(len(in), ex.SequenceAndExamples.Duration)

	steps := make([]campaign.EmailStep, 0, len(in))
	for i, s := range in {
		step := campaign.EmailStep{
			ID:      i + 1,
			Type:    campaign.StepType(strings.TrimSpace(s.Type)),
			Subject: strings.TrimSpace(s.Subject),
			Content: strings.TrimSpace(s.Content),
			Delay:   delays[i],
		}
		if step.Type != campaign.StepEmail && step.Type != campaign.StepConnection {
			step.Type = campaign.StepEmail
		}
		if s.Delay != nil && *s.Delay >= 0 {
			step.Delay = *s.Delay
		}
		if step.Subject == "" {
			step.Subject = subjectAt(ex, i)
		}
		if step.Content == "" {
			if i < len(fallback) {
				step.Content = fallback[i].Content
			} else {
				step.Content = fallbackBody(d, ex, collateral, i, len(in))
			}
		}

		step.Content = enforceMarkers(step.Content, d.Personalized())
		if !d.Personalized() {
			if extra := template.NonStandardTokens(step.Subject + step.Content); len(extra) > 0 {
				g.logger.Debug("replacing personalization tokens", "step", step.ID, "tokens", extra)
			}
			step.Subject = neutralTokens.Replace(step.Subject)
			step.Content = neutralTokens.Replace(step.Content)
		}

		steps = append(steps, step)
	}

	campaign.NormalizeDelays(steps)
	return steps
}

// enforceMarkers leaves exactly one marker pair when personalized and none
// otherwise. Text between stray markers is kept.
func enforceMarkers(content string, personalized bool) string {
	if !personalized {
		return template.StripPersonalizationMarkers(content)
	}

	start := strings.Index(content, template.PersonalizationStart)
	if start >= 0 {
		inner := start + len(template.PersonalizationStart)
		if end := strings.Index(content[inner:], template.PersonalizationEnd); end >= 0 {
			end += inner + len(template.PersonalizationEnd)
			// keep the first well-formed pair, flatten the rest
			return template.StripPersonalizationMarkers(content[:start]) +
				content[start:end] +
				template.StripPersonalizationMarkers(content[end:])
		}
	}

	content = template.StripPersonalizationMarkers(content)
	return insertSection(content, defaultSection)
}

// insertSection places a marked section after the first paragraph, or at
// the end when there is none
func insertSection(content, section string) string {
	block := template.PersonalizationStart + section + template.PersonalizationEnd
	if i := strings.Index(content, "</p>"); i >= 0 {
		i += len("</p>")
		return content[:i] + block + content[i:]
	}
	return content + block
}

func subjectAt(ex catalog.Example, i int) string {
	hints := ex.SequenceAndExamples.Examples
	if i < len(hints) && strings.TrimSpace(hints[i]) != "" {
		return hints[i]
	}
	if i == 0 {
		return "An opportunity at " + template.TokenCompanyName
	}
	return fmt.Sprintf("Following up from %s (%d)", template.TokenCompanyName, i+1)
}
