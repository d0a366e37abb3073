// Package prompt binds LLM instructions through named-slot templates.
//
// Templates use [[ ]] delimiters so that campaign tokens such as
// {{First Name}} pass through untouched.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Builtin template names
const (
	ClassifySystem    = "classify_system"
	ClassifyUser      = "classify_user"
	GenerateSystem    = "generate_system"
	GenerateUser      = "generate_user"
	PersonalizeSystem = "personalize_system"
	PersonalizeUser   = "personalize_user"
)

// builtin lists the slots each shipped template cannot render without
var builtin = map[string][]string{
	ClassifySystem:    {"States", "Examples"},
	ClassifyUser:      {"State", "Draft", "Input"},
	GenerateSystem:    {"Tone", "Length"},
	GenerateUser:      {"Example", "Draft", "Tone", "Length", "Personalize"},
	PersonalizeSystem: nil,
	PersonalizeUser:   {"Content", "Candidate"},
}

// Slots are the named values a template is rendered with
type Slots map[string]any

// MissingSlotError is returned when required slots are absent
type MissingSlotError struct {
	Template string
	Slots    []string
}

func (e *MissingSlotError) Error() string {
	return fmt.Sprintf("prompt %q: missing slots %s", e.Template, strings.Join(e.Slots, ", "))
}

// Template is a parsed prompt with its required slots
type Template struct {
	name     string
	tmpl     *template.Template
	required []string
}

// New parses a prompt template
func New(name, text string, required ...string) (*Template, error) {
	t, err := template.New(name).
		Delims("[[", "]]").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt %q: %w", name, err)
	}
	return &Template{name: name, tmpl: t, required: required}, nil
}

// Name returns the template name
func (t *Template) Name() string {
	return t.name
}

// Render executes the template after checking required slots
func (t *Template) Render(slots Slots) (string, error) {
	var missing []string
	for _, name := range t.required {
		if v, ok := slots[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingSlotError{Template: t.name, Slots: missing}
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, map[string]any(slots)); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", t.name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Set is a collection of templates addressed by name
type Set struct {
	templates map[string]*Template
}

// Default returns the prompts shipped with the binary
func Default() *Set {
	s, err := load()
	if err != nil {
		panic(fmt.Sprintf("builtin prompts: %v", err))
	}
	return s
}

func load() (*Set, error) {
	s := &Set{templates: make(map[string]*Template, len(builtin))}
	for name, required := range builtin {
		data, err := templateFS.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, err
		}
		t, err := New(name, string(data), required...)
		if err != nil {
			return nil, err
		}
		s.templates[name] = t
	}
	return s, nil
}

// Add registers or replaces a template
func (s *Set) Add(t *Template) {
	s.templates[t.name] = t
}

// Names returns the sorted template names
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render renders the named template
func (s *Set) Render(name string, slots Slots) (string, error) {
	t, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return t.Render(slots)
}
