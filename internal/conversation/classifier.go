package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/llm"
	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/prompt"
)

// historyWindow is how many past messages are sent to the model
const historyWindow = 6

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat line
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is the input of one conversation step
type Turn struct {
	Input          string
	History        []Message
	Draft          campaign.Draft
	RecentSearches []string
}

// Result is the outcome of one conversation step
type Result struct {
	Message     string         `json:"message"`
	Suggestions []string       `json:"suggestions"`
	DraftPatch  campaign.Draft `json:"draftPatch"`
	Draft       campaign.Draft `json:"draft"`
	State       State          `json:"state"`
	NextState   State          `json:"nextState"`
	IsComplete  bool           `json:"isComplete"`
	Fallback    bool           `json:"fallback"`
}

type modelReply struct {
	Message     string         `json:"message"`
	Suggestions []string       `json:"suggestions"`
	Draft       campaign.Draft `json:"draft"`
	NextState   string         `json:"nextState"`
	IsComplete  bool           `json:"isComplete"`
}

var replySchema = llm.MustSchema(`{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string"},
		"suggestions": {"type": "array", "items": {"type": "string"}},
		"draft": {
			"type": "object",
			"properties": {
				"goal": {"type": "string"},
				"matchedExampleId": {"type": "string"},
				"type": {"type": "string"},
				"targetAudience": {"type": "string"},
				"tone": {"type": "string"},
				"emailLength": {"type": "string"},
				"additionalContext": {"type": "string"},
				"enablePersonalization": {"type": ["boolean", "null"]}
			}
		},
		"nextState": {"type": "string"},
		"isComplete": {"type": "boolean"}
	}
}`)

// Option configures a Classifier
type Option func(*Classifier)

// WithInterpreter replaces the keyword interpreter
func WithInterpreter(i Interpreter) Option {
	return func(c *Classifier) {
		c.interp = i
	}
}

// Classifier turns user input into draft updates
type Classifier struct {
	client  llm.Client
	prompts *prompt.Set
	catalog *catalog.Catalog
	call    llm.CallConfig
	interp  Interpreter
	logger  *slog.Logger
}

// NewClassifier creates a classifier
func NewClassifier(client llm.Client, prompts *prompt.Set, cat *catalog.Catalog, call llm.CallConfig, logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		client:  client,
		prompts: prompts,
		catalog: cat,
		call:    call,
		interp:  KeywordInterpreter{Catalog: cat},
		logger:  logger.With("component", "classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessUserInput runs one turn. It never fails: when the model is
// unavailable or its reply is unusable the keyword interpreter and the
// scripted replies take over.
func (c *Classifier) ProcessUserInput(ctx context.Context, turn Turn) Result {
	current := Next(turn.Draft)
	draft := turn.Draft.Clone()

	reply, err := c.ask(ctx, current, turn)
	confirmed := false
	if err != nil {
		c.logger.Warn("classification fell back to keywords", "state", current, "error", err)
		metrics.IncLLMFallback(llm.OpClassify)
	} else {
		confirmed = c.applyReply(current, turn.Input, reply, &draft)
	}

	// keyword rules only fill what the model left unset
	if c.interp.Interpret(current, turn.Input, &draft) {
		confirmed = true
	}
	c.attachExample(&draft)

	next := Next(draft)
	complete := current == StateReview && confirmed
	if complete {
		next = StateGenerate
	}

	result := Result{
		Draft:      draft,
		DraftPatch: diff(turn.Draft, draft),
		State:      current,
		NextState:  next,
		IsComplete: complete,
		Fallback:   err != nil,
	}

	usable := err == nil && strings.TrimSpace(reply.Message) != "" &&
		(reply.NextState == "" || State(reply.NextState) == next)

	var canned []string
	if usable {
		result.Message = reply.Message
		result.Suggestions = reply.Suggestions
	} else {
		if err == nil {
			c.logger.Debug("model reply does not match next state", "model_state", reply.NextState, "next", next)
		}
		result.Message, canned = Fallback(next, draft)
	}

	if len(result.Suggestions) == 0 && next == StateAudience {
		result.Suggestions = searchSuggestions(turn.RecentSearches)
	}
	if len(result.Suggestions) == 0 {
		if canned == nil {
			_, canned = Fallback(next, draft)
		}
		result.Suggestions = canned
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}

	metrics.IncConversationTurn(string(next))
	return result
}

func (c *Classifier) ask(ctx context.Context, current State, turn Turn) (modelReply, error) {
	var reply modelReply

	states := make([]string, 0, len(States))
	for _, s := range States {
		states = append(states, string(s))
	}

	system, err := c.prompts.Render(prompt.ClassifySystem, prompt.Slots{
		"States":   states,
		"Examples": c.catalog.All(),
	})
	if err != nil {
		return reply, err
	}

	draftJSON, err := json.MarshalIndent(turn.Draft, "", "  ")
	if err != nil {
		return reply, fmt.Errorf("failed to marshal draft: %w", err)
	}

	history := turn.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	user, err := c.prompts.Render(prompt.ClassifyUser, prompt.Slots{
		"State":          string(current),
		"Draft":          string(draftJSON),
		"History":        history,
		"Input":          turn.Input,
		"RecentSearches": turn.RecentSearches,
	})
	if err != nil {
		return reply, err
	}

	raw, err := c.client.Complete(ctx, c.call.Request(llm.OpClassify, system, user))
	if err != nil {
		return reply, err
	}

	if err := llm.Decode(llm.OpClassify, raw, replySchema, &reply); err != nil {
		return reply, err
	}
	return reply, nil
}

// applyReply copies the field group owned by current from the model reply.
// Everything else the model proposes is ignored.
func (c *Classifier) applyReply(current State, input string, reply modelReply, d *campaign.Draft) bool {
	patch := reply.Draft

	switch current {
	case StateGoal:
		if d.Goal == "" && strings.TrimSpace(patch.Goal) != "" {
			d.Goal = strings.TrimSpace(patch.Goal)
			if ex, ok := c.catalog.Get(patch.MatchedExampleID); ok {
				d.MatchedExampleID = ex.ID
				d.Type = ex.CampaignType
			}
		}

	case StateAudience:
		if d.TargetAudience == "" && strings.TrimSpace(patch.TargetAudience) != "" {
			d.TargetAudience = strings.TrimSpace(patch.TargetAudience)
		}

	case StateTone:
		if d.Tone == "" && patch.Tone.Valid() {
			d.Tone = patch.Tone
			switch length, ok := firstKeyword(input, lengthKeywords); {
			case patch.EmailLength.Valid():
				d.EmailLength = patch.EmailLength
			case ok:
				d.EmailLength = length
			default:
				d.EmailLength = campaign.DefaultLength
			}
		}

	case StateContext:
		// the recruiter's words are kept exactly as typed
		if d.AdditionalContext == "" && strings.TrimSpace(patch.AdditionalContext) != "" && strings.TrimSpace(input) != "" {
			d.AdditionalContext = input
		}

	case StatePersonalization:
		if d.EnablePersonalization == nil && patch.EnablePersonalization != nil {
			d.EnablePersonalization = campaign.Bool(*patch.EnablePersonalization)
		}

	case StateReview:
		return reply.IsComplete
	}

	return false
}

// attachExample makes sure a draft with a goal always carries a guideline
// example. The nearest example is used even below the relevance bar.
func (c *Classifier) attachExample(d *campaign.Draft) {
	if d.Goal == "" {
		return
	}
	if ex, ok := c.catalog.Get(d.MatchedExampleID); ok {
		d.Type = ex.CampaignType
		return
	}
	ex, _, ok := c.catalog.Match(d.Goal, d.Type)
	if !ok {
		return
	}
	d.MatchedExampleID = ex.ID
	d.Type = ex.CampaignType
}

// diff returns the fields of after that differ from before
func diff(before, after campaign.Draft) campaign.Draft {
	var p campaign.Draft
	if before.Goal != after.Goal {
		p.Goal = after.Goal
	}
	if before.MatchedExampleID != after.MatchedExampleID {
		p.MatchedExampleID = after.MatchedExampleID
	}
	if before.Type != after.Type {
		p.Type = after.Type
	}
	if before.TargetAudience != after.TargetAudience {
		p.TargetAudience = after.TargetAudience
	}
	if before.Tone != after.Tone {
		p.Tone = after.Tone
	}
	if before.EmailLength != after.EmailLength {
		p.EmailLength = after.EmailLength
	}
	if before.AdditionalContext != after.AdditionalContext {
		p.AdditionalContext = after.AdditionalContext
	}
	if (before.EnablePersonalization == nil) != (after.EnablePersonalization == nil) ||
		(before.EnablePersonalization != nil && *before.EnablePersonalization != *after.EnablePersonalization) {
		if after.EnablePersonalization != nil {
			p.EnablePersonalization = campaign.Bool(*after.EnablePersonalization)
		}
	}
	if before.CompanyName != after.CompanyName {
		p.CompanyName = after.CompanyName
	}
	if before.RecruiterName != after.RecruiterName {
		p.RecruiterName = after.RecruiterName
	}
	return p
}
