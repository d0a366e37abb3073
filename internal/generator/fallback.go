package generator

import (
	"strings"
	"unicode/utf8"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/template"
)

const defaultAudience = "healthcare professionals"

// collateralByPosition fixes which collateral type may appear in which step
var collateralByPosition = []string{
	campaign.CollateralWhoWeAre,
	campaign.CollateralMission,
	campaign.CollateralBenefits,
}

var followUps = []string{
	"I wanted to follow up on my earlier note about opportunities at " + template.TokenCompanyName + ".",
	"Our teams at " + template.TokenCompanyName + " keep growing, and we would love to keep you in the loop.",
	"Just checking in to see whether the timing might be right for a quick conversation.",
}

const lastNote = "This is my last note for now, but my door is always open whenever you are ready to talk."

// BuildFallback builds a sequence from the example alone. It needs no
// model and cannot fail.
func BuildFallback(d campaign.Draft, ex catalog.Example, collateral []campaign.Collateral) []campaign.EmailStep {
	n := ex.SequenceAndExamples.Steps
	if n <= 0 {
		n = len(ex.SequenceAndExamples.Examples)
	}
	if n <= 0 {
		n = 1
	}

	delays := fallbackDelays(n, ex.SequenceAndExamples.Duration)
	steps := make([]campaign.EmailStep, 0, n)
	for i := 0; i < n; i++ {
		subject := subjectAt(ex, i)
		if !d.Personalized() {
			subject = neutralTokens.Replace(subject)
		}
		steps = append(steps, campaign.EmailStep{
			ID:      i + 1,
			Type:    campaign.StepEmail,
			Subject: subject,
			Content: enforceMarkers(fallbackBody(d, ex, collateral, i, n), d.Personalized()),
			Delay:   delays[i],
		})
	}
	campaign.NormalizeDelays(steps)
	return steps
}

// fallbackDelays spreads duration days over n steps with growing gaps
func fallbackDelays(n int, duration int) []int {
	delays := make([]int, n)
	if n <= 1 {
		return delays
	}
	weights := n * (n - 1) / 2
	base := duration / weights
	if base < 1 {
		base = 1
	}
	for i := 1; i < n; i++ {
		delays[i] = base * i
	}
	return delays
}

func fallbackBody(d campaign.Draft, ex catalog.Example, collateral []campaign.Collateral, i, n int) string {
	style := StyleFor(d.Tone)

	var b strings.Builder
	paragraph := func(text string) {
		b.WriteString("<p>")
		b.WriteString(text)
		b.WriteString("</p>")
	}

	paragraph(style.Salutation)

	switch {
	case i == 0:
		audience := strings.TrimSpace(d.TargetAudience)
		if audience == "" {
			audience = defaultAudience
		}
		paragraph("I'm reaching out from " + template.TokenCompanyName + " because we are connecting with " + audience + ".")
		if d.AdditionalContext != "" {
			paragraph(template.StripPersonalizationMarkers(d.AdditionalContext))
		}
	case i == n-1 && n > 2:
		paragraph(lastNote)
	default:
		paragraph(followUps[(i-1)%len(followUps)])
	}

	if snippet := collateralAt(collateral, i); snippet != "" {
		paragraph(template.StripPersonalizationMarkers(snippet))
	}

	if d.Personalized() {
		b.WriteString(template.PersonalizationStart)
		b.WriteString(defaultSection)
		b.WriteString(template.PersonalizationEnd)
	}

	paragraph(style.Closing)
	return b.String()
}

// collateralAt returns the snippet for step i, if its positional type was supplied
func collateralAt(collateral []campaign.Collateral, i int) string {
	if i >= len(collateralByPosition) {
		return ""
	}
	want := collateralByPosition[i]
	for _, c := range collateral {
		if c.Type == want && strings.TrimSpace(c.Content) != "" {
			return truncate(strings.TrimSpace(c.Content), collateralLimit)
		}
	}
	return ""
}

func fallbackName(d campaign.Draft, ex catalog.Example) string {
	name := strings.TrimSpace(d.Goal)
	if name == "" {
		name = ex.Goal
	}
	if utf8.RuneCountInString(name) > 60 {
		name = strings.TrimSpace(truncate(name, 57)) + "..."
	}
	return name
}
