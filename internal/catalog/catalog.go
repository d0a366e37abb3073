// Package catalog provides the static guideline examples that generated
// campaigns are modelled on.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/foxzi/recruitflow/internal/campaign"
)

//go:embed examples.yaml
var builtin []byte

// MinScore is the relevance bar a goal must reach to count as a textual match
const MinScore = 1

// Sequence describes the cadence of an example campaign
type Sequence struct {
	Steps    int      `yaml:"steps" json:"steps"`
	Duration int      `yaml:"duration" json:"duration"`
	Examples []string `yaml:"examples" json:"examples"`
}

// Example is one guideline template
type Example struct {
	ID                  string        `yaml:"id" json:"id"`
	CampaignType        campaign.Type `yaml:"campaign_type" json:"campaignType"`
	Goal                string        `yaml:"goal" json:"goal"`
	Keywords            []string      `yaml:"keywords" json:"keywords,omitempty"`
	SequenceAndExamples Sequence      `yaml:"sequence_and_examples" json:"sequenceAndExamples"`
	CollateralToUse     []string      `yaml:"collateral_to_use" json:"collateralToUse"`

	terms map[string]struct{}
}

// Catalog is an ordered, immutable set of examples
type Catalog struct {
	examples []Example
	byID     map[string]int
}

type document struct {
	Examples []Example `yaml:"examples"`
}

// Default returns the catalog shipped with the binary
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("builtin catalog: %v", err))
	}
	return c
}

// Parse loads a catalog from YAML
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(doc.Examples)
}

// New builds a catalog from examples, keeping their order
func New(examples []Example) (*Catalog, error) {
	c := &Catalog{
		examples: make([]Example, 0, len(examples)),
		byID:     make(map[string]int, len(examples)),
	}
	for _, ex := range examples {
		if ex.ID == "" {
			return nil, fmt.Errorf("example without id")
		}
		if _, dup := c.byID[ex.ID]; dup {
			return nil, fmt.Errorf("duplicate example id %q", ex.ID)
		}
		if !ex.CampaignType.Valid() {
			return nil, fmt.Errorf("example %q: unknown campaign type %q", ex.ID, ex.CampaignType)
		}
		if ex.SequenceAndExamples.Steps <= 0 {
			ex.SequenceAndExamples.Steps = len(ex.SequenceAndExamples.Examples)
		}
		ex.terms = exampleTerms(ex)
		c.byID[ex.ID] = len(c.examples)
		c.examples = append(c.examples, ex)
	}
	return c, nil
}

// All returns the examples in catalog order
func (c *Catalog) All() []Example {
	out := make([]Example, len(c.examples))
	copy(out, c.examples)
	return out
}

// Len returns the number of examples
func (c *Catalog) Len() int {
	return len(c.examples)
}

// Get returns the example with the given id
func (c *Catalog) Get(id string) (Example, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Example{}, false
	}
	return c.examples[i], true
}

// Match returns the nearest example for a goal and optional campaign type.
// The closest example is returned even when nothing reaches MinScore, so a
// recognised goal always gets a guideline. ok is false only for an empty
// catalog.
func (c *Catalog) Match(goal string, typ campaign.Type) (ex Example, score int, ok bool) {
	if len(c.examples) == 0 {
		return Example{}, 0, false
	}
	best, bestScore := 0, -1
	words := terms(goal)
	hinted := typ
	if hinted == "" {
		hinted = typeHint(goal)
	}
	for i, candidate := range c.examples {
		s := candidate.score(words, hinted)
		// strict > keeps the earlier example on ties
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return c.examples[best], bestScore, true
}

// FindByGoal resolves a goal only when it reaches the relevance bar
func (c *Catalog) FindByGoal(goal string) (Example, bool) {
	if strings.TrimSpace(goal) == "" {
		return Example{}, false
	}
	ex, score, ok := c.Match(goal, "")
	if !ok || score < MinScore {
		return Example{}, false
	}
	return ex, true
}

func (e Example) score(words []string, typ campaign.Type) int {
	s := 0
	for _, w := range words {
		if _, hit := e.terms[w]; hit {
			s++
		}
	}
	if typ != "" && typ == e.CampaignType {
		s += 2
	}
	return s
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "our": {}, "who": {}, "that": {},
	"them": {}, "they": {}, "their": {}, "want": {}, "into": {}, "from": {}, "are": {},
	"this": {}, "campaign": {}, "email": {}, "emails": {}, "candidates": {}, "candidate": {},
	"healthcare": {}, "like": {}, "would": {}, "about": {}, "toward": {}, "after": {},
}

func exampleTerms(e Example) map[string]struct{} {
	set := make(map[string]struct{})
	sources := []string{e.Goal, strings.ReplaceAll(e.ID, "-", " "), string(e.CampaignType)}
	sources = append(sources, e.Keywords...)
	for _, src := range sources {
		for _, w := range terms(src) {
			set[w] = struct{}{}
		}
	}
	return set
}

// terms lowercases, splits on non-letters, drops stopwords and short words
// and folds a trailing plural "s".
func terms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if len(f) > 4 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		out = append(out, f)
	}
	return out
}

func typeHint(goal string) campaign.Type {
	g := strings.ToLower(goal)
	switch {
	case strings.Contains(g, "re-engage"), strings.Contains(g, "reengage"):
		return campaign.TypeReengage
	case strings.Contains(g, "keep warm"), strings.Contains(g, "keep-warm"), strings.Contains(g, "keep them warm"):
		return campaign.TypeKeepWarm
	case strings.Contains(g, "enrich"):
		return campaign.TypeEnrichment
	case strings.Contains(g, "nurture"):
		return campaign.TypeNurture
	}
	return ""
}
