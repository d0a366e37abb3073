package template

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/foxzi/recruitflow/internal/campaign"
)

var tokenPattern = regexp.MustCompile(`\{\{[^{}]+\}\}`)

// Engine resolves placeholder tokens in step content
type Engine struct{}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{}
}

// Substitute replaces every known token in content with its value from ctx.
// Replacement is a single literal pass, so values containing token text are
// not expanded again. Tokens whose value is unknown are left as they are.
func (e *Engine) Substitute(content string, ctx Context) string {
	if !strings.Contains(content, "{{") {
		return content
	}
	return strings.NewReplacer(e.pairs(ctx)...).Replace(content)
}

func (e *Engine) pairs(ctx Context) []string {
	company := strings.TrimSpace(ctx.CompanyName)
	if company == "" {
		company = DefaultCompanyName
	}
	recruiter := strings.TrimSpace(ctx.RecruiterName)
	if recruiter == "" {
		recruiter = DefaultRecruiterName
	}
	skill := DefaultSkill
	if len(ctx.Candidate.Skills) > 0 && strings.TrimSpace(ctx.Candidate.Skills[0]) != "" {
		skill = ctx.Candidate.Skills[0]
	}

	pairs := []string{
		TokenCompanyName, company,
		TokenYourName, recruiter,
		TokenRecruiterName, recruiter,
		TokenSkill, skill,
	}
	if first := firstName(ctx.Candidate.Name); first != "" {
		pairs = append(pairs, TokenFirstName, first)
	}
	if c := strings.TrimSpace(ctx.Candidate.Company); c != "" {
		pairs = append(pairs, TokenCurrentCompany, c)
	}
	return pairs
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Render substitutes tokens in a step's subject and body and derives the
// plain text version of the body
func (e *Engine) Render(step campaign.EmailStep, ctx Context) *RenderResult {
	body := e.Substitute(step.Content, ctx)
	text := PlainText(body)
	return &RenderResult{
		Subject:   e.Substitute(step.Subject, ctx),
		HTML:      body,
		Text:      text,
		WordCount: len(strings.Fields(text)),
	}
}

// Tokens returns the distinct tokens used in content, in order of first use
func Tokens(content string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range tokenPattern.FindAllString(content, -1) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// NonStandardTokens returns tokens outside StandardTokens
func NonStandardTokens(content string) []string {
	var out []string
	for _, tok := range Tokens(content) {
		standard := false
		for _, s := range StandardTokens {
			if tok == s {
				standard = true
				break
			}
		}
		if !standard {
			out = append(out, tok)
		}
	}
	return out
}

// HasPersonalizationSection reports whether content carries both markers
func HasPersonalizationSection(content string) bool {
	return strings.Contains(content, PersonalizationStart) &&
		strings.Contains(content, PersonalizationEnd)
}

// ReplacePersonalizationSection swaps the text between the first marker
// pair for section, keeping the markers. Content without a well-ordered
// pair is returned unchanged.
func ReplacePersonalizationSection(content, section string) (string, bool) {
	start := strings.Index(content, PersonalizationStart)
	if start < 0 {
		return content, false
	}
	inner := start + len(PersonalizationStart)
	end := strings.Index(content[inner:], PersonalizationEnd)
	if end < 0 {
		return content, false
	}
	end += inner
	return content[:inner] + section + content[end:], true
}

// StripPersonalizationMarkers removes every marker literal and keeps the
// text between them
func StripPersonalizationMarkers(content string) string {
	content = strings.ReplaceAll(content, PersonalizationStart, "")
	return strings.ReplaceAll(content, PersonalizationEnd, "")
}

// PlainText extracts the visible text of an HTML fragment. Block level
// elements are separated by newlines.
func PlainText(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "br", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4", "tr", "table":
				b.WriteByte('\n')
			}
		}
	}
}

// WordCount counts the words of the rendered text of an HTML fragment
func WordCount(fragment string) int {
	return len(strings.Fields(PlainText(fragment)))
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
