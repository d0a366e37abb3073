package conversation

import (
	"strings"
	"unicode"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/catalog"
)

// minFreeText is the length above which free text is accepted as an answer
const minFreeText = 10

// Interpreter extracts draft fields from raw user input without the model.
// It only fills the field group owned by state, and only while that group
// is unset. confirmed is true when a review turn approves generation.
type Interpreter interface {
	Interpret(state State, input string, d *campaign.Draft) (confirmed bool)
}

type keyword[T any] struct {
	word  string
	value T
}

var toneKeywords = []keyword[campaign.Tone]{
	{"professional", campaign.ToneProfessional},
	{"friendly", campaign.ToneFriendly},
	{"casual", campaign.ToneCasual},
	{"warm", campaign.ToneFriendly},
	{"formal", campaign.ToneFormal},
}

var lengthKeywords = []keyword[campaign.EmailLength]{
	{"short", campaign.LengthShort},
	{"concise", campaign.LengthConcise},
	{"medium", campaign.LengthMedium},
	{"long", campaign.LengthLong},
	{"brief", campaign.LengthShort},
	{"detailed", campaign.LengthLong},
}

var audienceKeywords = []string{
	"nurse", "nurses", "rn", "rns", "lpn", "cna", "np", "physician", "physicians",
	"doctor", "doctors", "therapist", "therapists", "technician", "technicians",
	"pharmacist", "pharmacists", "clinician", "clinicians", "surgeon", "surgeons",
	"located", "location", "near", "within", "remote", "city", "state", "region",
	"experience", "experienced", "years", "senior", "junior", "licensed", "certified",
	"grad", "graduates", "students", "applicants", "candidates", "audience",
}

var personalizationKeywords = []string{"yes", "enable", "personalization", "customize", "personalize"}

var confirmKeywords = []string{"generate", "yes", "looks good", "go ahead", "create", "confirm", "ready"}

// KeywordInterpreter is the deterministic Interpreter
type KeywordInterpreter struct {
	Catalog *catalog.Catalog
}

// Interpret applies the keyword rules for state
func (k KeywordInterpreter) Interpret(state State, input string, d *campaign.Draft) bool {
	switch state {
	case StateGoal:
		if d.Goal != "" {
			return false
		}
		goal := strings.TrimSpace(input)
		if len(goal) > minFreeText {
			d.Goal = goal
			return false
		}
		if k.Catalog != nil && goal != "" {
			if _, ok := k.Catalog.FindByGoal(goal); ok {
				d.Goal = goal
			}
		}

	case StateAudience:
		if d.TargetAudience != "" {
			return false
		}
		audience := strings.TrimSpace(input)
		if len(audience) > minFreeText || hasAnyWord(audience, audienceKeywords) {
			d.TargetAudience = audience
		}

	case StateTone:
		if d.Tone != "" {
			return false
		}
		tone, toneHit := firstKeyword(input, toneKeywords)
		length, lengthHit := firstKeyword(input, lengthKeywords)
		if !toneHit && !lengthHit {
			return false
		}
		if !toneHit {
			tone = campaign.ToneProfessional
		}
		if !lengthHit {
			length = campaign.DefaultLength
		}
		d.Tone = tone
		d.EmailLength = length

	case StateContext:
		if d.AdditionalContext != "" {
			return false
		}
		if len(strings.TrimSpace(input)) > minFreeText {
			d.AdditionalContext = input
		}

	case StatePersonalization:
		if d.EnablePersonalization != nil {
			return false
		}
		d.EnablePersonalization = campaign.Bool(containsAny(input, personalizationKeywords))

	case StateReview:
		return hasAnyPhrase(input, confirmKeywords)
	}

	return false
}

// firstKeyword returns the value of the keyword that appears earliest in input
func firstKeyword[T any](input string, table []keyword[T]) (T, bool) {
	for _, w := range splitWords(input) {
		for _, kw := range table {
			if kw.word == w {
				return kw.value, true
			}
		}
	}
	var zero T
	return zero, false
}

func containsAny(input string, needles []string) bool {
	lower := strings.ToLower(input)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func hasAnyWord(input string, words []string) bool {
	set := wordSet(input)
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// hasAnyPhrase matches single words as words and multi-word phrases as
// substrings of the normalized input
func hasAnyPhrase(input string, phrases []string) bool {
	normalized := " " + strings.Join(splitWords(input), " ") + " "
	for _, p := range phrases {
		if strings.Contains(normalized, " "+p+" ") {
			return true
		}
	}
	return false
}

func wordSet(input string) map[string]struct{} {
	words := splitWords(input)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func splitWords(input string) []string {
	return strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
