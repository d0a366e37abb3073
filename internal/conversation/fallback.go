package conversation

import (
	"fmt"
	"strings"

	"github.com/foxzi/recruitflow/internal/campaign"
)

type canned struct {
	message     string
	suggestions []string
}

// fallbackTable holds the scripted reply for each state
var fallbackTable = map[State]canned{
	StateGoal: {
		message: "What would you like this campaign to achieve?",
		suggestions: []string{
			"Build a talent community",
			"Re-engage past applicants",
			"Keep silver medalists warm",
			"Update candidate profiles",
		},
	},
	StateAudience: {
		message: "Got it. Who should receive this campaign? Describe the role, experience or location.",
		suggestions: []string{
			"ICU nurses within 25 miles",
			"New grad RNs",
			"Travel nurses with 2+ years of experience",
		},
	},
	StateTone: {
		message: "What tone and email length would you like?",
		suggestions: []string{
			"Professional and concise",
			"Friendly, medium length",
			"Casual and short",
			"Formal and detailed",
		},
	},
	StateContext: {
		message: "Is there anything the emails should mention? Benefits, sign-on bonuses, event dates or links all help.",
		suggestions: []string{
			"Mention our $10k sign-on bonus",
			"Highlight flexible scheduling",
			"No additional context to add",
		},
	},
	StatePersonalization: {
		message: "Should each email include a section personalized for every candidate?",
		suggestions: []string{
			"Yes, personalize each email",
			"No, keep it standard",
		},
	},
	StateReview: {
		message: "Here's what I have so far. Ready to generate your campaign?",
		suggestions: []string{
			"Generate campaign",
			"Looks good",
		},
	},
	StateGenerate: {
		message: "Great, generating your campaign now.",
	},
}

// Fallback returns the scripted message and suggestions for state
func Fallback(state State, d campaign.Draft) (string, []string) {
	c, ok := fallbackTable[state]
	if !ok {
		c = fallbackTable[StateGoal]
	}
	msg := c.message
	if state == StateReview {
		msg = msg + "\n\n" + Summary(d)
	}
	suggestions := make([]string, len(c.suggestions))
	copy(suggestions, c.suggestions)
	return msg, suggestions
}

// Summary renders the draft as a short bullet list
func Summary(d campaign.Draft) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, value)
	}
	line("Goal", d.Goal)
	line("Campaign type", string(d.Type))
	line("Audience", d.TargetAudience)
	line("Tone", string(d.Tone))
	line("Length", string(d.Length()))
	line("Context", d.AdditionalContext)
	if d.EnablePersonalization != nil {
		line("Personalization", map[bool]string{true: "on", false: "off"}[*d.EnablePersonalization])
	}
	return strings.TrimRight(b.String(), "\n")
}

// searchSuggestions turns recent candidate searches into audience answers
func searchSuggestions(searches []string) []string {
	var out []string
	for _, s := range searches {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, "Candidates matching: "+s)
		if len(out) == 3 {
			break
		}
	}
	return out
}
