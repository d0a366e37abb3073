package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/llm"
	"github.com/foxzi/recruitflow/internal/prompt"
)

func newTestClassifier(client llm.Client) *Classifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClassifier(client, prompt.Default(), catalog.Default(), llm.CallConfig{Model: "test"}, logger)
}

func failingClient() llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return "", &llm.CallError{Provider: "test", Operation: req.Operation, Err: errors.New("unavailable")}
	})
}

func replyClient(raw string) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return raw, nil
	})
}

func TestGoalMatchesExampleInSameTurn(t *testing.T) {
	c := newTestClassifier(replyClient(`{"message": "Great goal!", "draft": {"goal": "build talent community"}, "nextState": "audience"}`))

	res := c.ProcessUserInput(context.Background(), Turn{Input: "build talent community"})

	assert.Equal(t, StateGoal, res.State)
	assert.Equal(t, StateAudience, res.NextState)
	assert.Equal(t, "build talent community", res.Draft.Goal)
	assert.Equal(t, "talent-community-nurture", res.Draft.MatchedExampleID)
	assert.Equal(t, campaign.TypeNurture, res.Draft.Type)
	assert.Equal(t, "Great goal!", res.Message)
	assert.False(t, res.Fallback)

	assert.Equal(t, "talent-community-nurture", res.DraftPatch.MatchedExampleID)
	assert.Empty(t, res.DraftPatch.TargetAudience)
}

func TestGoalWithModelExampleID(t *testing.T) {
	c := newTestClassifier(replyClient("```json\n" +
		`{"message": "ok", "draft": {"goal": "Win back alumni", "matchedExampleId": "boomerang-reengage"}, "nextState": "audience"}` +
		"\n```"))

	res := c.ProcessUserInput(context.Background(), Turn{Input: "win back alumni"})
	assert.Equal(t, "Win back alumni", res.Draft.Goal)
	assert.Equal(t, "boomerang-reengage", res.Draft.MatchedExampleID)
	assert.Equal(t, campaign.TypeReengage, res.Draft.Type)
}

func TestUnknownModelExampleIDIsReplaced(t *testing.T) {
	c := newTestClassifier(replyClient(`{"message": "ok", "draft": {"goal": "build talent community", "matchedExampleId": "made-up"}, "nextState": "audience"}`))

	res := c.ProcessUserInput(context.Background(), Turn{Input: "build talent community"})
	assert.Equal(t, "talent-community-nurture", res.Draft.MatchedExampleID)
}

func TestModelCannotFillOtherStates(t *testing.T) {
	c := newTestClassifier(replyClient(`{
		"message": "Who should receive it?",
		"draft": {"goal": "Re-engage past applicants", "targetAudience": "everyone", "tone": "casual", "enablePersonalization": true},
		"nextState": "audience"
	}`))

	res := c.ProcessUserInput(context.Background(), Turn{Input: "re-engage past applicants"})
	assert.Equal(t, StateAudience, res.NextState)
	assert.Empty(t, res.Draft.TargetAudience)
	assert.Empty(t, res.Draft.Tone)
	assert.Nil(t, res.Draft.EnablePersonalization)
}

func TestModelStateDisagreementUsesScript(t *testing.T) {
	c := newTestClassifier(replyClient(`{"message": "Ready to generate?", "draft": {"goal": "build talent community"}, "nextState": "review"}`))

	res := c.ProcessUserInput(context.Background(), Turn{Input: "build talent community"})
	want, _ := Fallback(StateAudience, res.Draft)
	assert.Equal(t, StateAudience, res.NextState)
	assert.Equal(t, want, res.Message)
	assert.NotEmpty(t, res.Suggestions)
	assert.False(t, res.Fallback)
}

func TestFallbackOnCallFailure(t *testing.T) {
	c := newTestClassifier(failingClient())

	res := c.ProcessUserInput(context.Background(), Turn{Input: "build talent community"})
	assert.True(t, res.Fallback)
	assert.Equal(t, StateAudience, res.NextState)
	assert.Equal(t, "talent-community-nurture", res.Draft.MatchedExampleID)

	want, suggestions := Fallback(StateAudience, res.Draft)
	assert.Equal(t, want, res.Message)
	assert.Equal(t, suggestions, res.Suggestions)
}

func TestFallbackOnInvalidJSON(t *testing.T) {
	for _, raw := range []string{"sure thing!", `{"suggestions": []}`, `{"message": 42}`} {
		c := newTestClassifier(replyClient(raw))
		res := c.ProcessUserInput(context.Background(), Turn{Input: "hi"})
		assert.True(t, res.Fallback, "raw %q", raw)
		assert.Equal(t, StateGoal, res.NextState, "raw %q", raw)
		assert.NotEmpty(t, res.Message)
	}
}

func TestToneTurn(t *testing.T) {
	c := newTestClassifier(failingClient())
	d := campaign.Draft{Goal: "Build a talent community", MatchedExampleID: "talent-community-nurture", Type: campaign.TypeNurture, TargetAudience: "ICU nurses"}

	res := c.ProcessUserInput(context.Background(), Turn{Input: "friendly, medium length please", Draft: d})
	assert.Equal(t, StateTone, res.State)
	assert.Equal(t, campaign.ToneFriendly, res.Draft.Tone)
	assert.Equal(t, campaign.LengthMedium, res.Draft.EmailLength)
	assert.Equal(t, StateContext, res.NextState)
}

func TestToneTurnModelOmitsLength(t *testing.T) {
	d := campaign.Draft{Goal: "Build a talent community", MatchedExampleID: "talent-community-nurture", Type: campaign.TypeNurture, TargetAudience: "ICU nurses"}

	tests := []struct {
		reply  string
		input  string
		length campaign.EmailLength
	}{
		{`{"message": "Got it. Anything to add?", "draft": {"tone": "friendly"}, "nextState": "context"}`, "friendly, medium length please", campaign.LengthMedium},
		{`{"message": "Got it. Anything to add?", "draft": {"tone": "friendly", "emailLength": "short"}, "nextState": "context"}`, "friendly, medium length please", campaign.LengthShort},
		{`{"message": "Got it. Anything to add?", "draft": {"tone": "formal"}, "nextState": "context"}`, "formal please", campaign.LengthConcise},
	}

	for _, tc := range tests {
		res := newTestClassifier(replyClient(tc.reply)).ProcessUserInput(context.Background(), Turn{Input: tc.input, Draft: d})
		assert.False(t, res.Fallback, tc.reply)
		assert.NotEmpty(t, res.Draft.Tone, tc.reply)
		assert.Equal(t, tc.length, res.Draft.EmailLength, tc.reply)
		assert.Equal(t, StateContext, res.NextState, tc.reply)
	}
}

func TestContextStoredVerbatim(t *testing.T) {
	input := "  We offer a $10k sign-on bonus, mention it!  "
	c := newTestClassifier(replyClient(`{"message": "Noted. Personalize?", "draft": {"additionalContext": "We offer a sign-on bonus"}, "nextState": "personalization"}`))

	d := fullDraft()
	d.AdditionalContext = ""
	d.EnablePersonalization = nil

	res := c.ProcessUserInput(context.Background(), Turn{Input: input, Draft: d})
	assert.Equal(t, input, res.Draft.AdditionalContext)
	assert.Equal(t, StatePersonalization, res.NextState)
	assert.Equal(t, "Noted. Personalize?", res.Message)
}

func TestAudienceSearchSuggestions(t *testing.T) {
	c := newTestClassifier(failingClient())
	d := campaign.Draft{Goal: "Build a talent community", MatchedExampleID: "talent-community-nurture"}

	res := c.ProcessUserInput(context.Background(), Turn{
		Input:          "hmm",
		Draft:          d,
		RecentSearches: []string{"icu rn denver"},
	})
	assert.Equal(t, StateAudience, res.NextState)
	assert.Equal(t, []string{"Candidates matching: icu rn denver"}, res.Suggestions)
}

func TestModelSuggestionsWinOverSearches(t *testing.T) {
	c := newTestClassifier(replyClient(`{"message": "Who?", "suggestions": ["ER nurses"], "nextState": "audience"}`))
	d := campaign.Draft{Goal: "Build a talent community", MatchedExampleID: "talent-community-nurture"}

	res := c.ProcessUserInput(context.Background(), Turn{Input: "hmm", Draft: d, RecentSearches: []string{"icu"}})
	assert.Equal(t, []string{"ER nurses"}, res.Suggestions)
}

func TestReviewConfirmation(t *testing.T) {
	c := newTestClassifier(failingClient())

	res := c.ProcessUserInput(context.Background(), Turn{Input: "Looks good", Draft: fullDraft()})
	assert.Equal(t, StateReview, res.State)
	assert.Equal(t, StateGenerate, res.NextState)
	assert.True(t, res.IsComplete)

	res = c.ProcessUserInput(context.Background(), Turn{Input: "hold on", Draft: fullDraft()})
	assert.Equal(t, StateReview, res.NextState)
	assert.False(t, res.IsComplete)
	assert.Contains(t, res.Message, "- Audience: ICU nurses")
}

func TestReviewModelComplete(t *testing.T) {
	c := newTestClassifier(replyClient(`{"message": "Generating!", "nextState": "generate", "isComplete": true}`))

	res := c.ProcessUserInput(context.Background(), Turn{Input: "ship it", Draft: fullDraft()})
	assert.Equal(t, StateGenerate, res.NextState)
	assert.True(t, res.IsComplete)
	assert.Equal(t, "Generating!", res.Message)
}

func TestConversationNeverSkipsOrRegresses(t *testing.T) {
	c := newTestClassifier(failingClient())
	inputs := []string{
		"ok",
		"re-engage past applicants",
		"hmm",
		"travel nurses in Texas",
		"casual and short",
		"Mention our referral program",
		"no thanks",
		"generate",
	}

	var d campaign.Draft
	var history []Message
	prev := StateGoal
	for _, input := range inputs {
		res := c.ProcessUserInput(context.Background(), Turn{Input: input, Draft: d, History: history})
		require.False(t, res.NextState.Before(prev), "input %q regressed from %s to %s", input, prev, res.NextState)
		require.LessOrEqual(t, res.NextState.Index()-res.State.Index(), 1, "input %q skipped a state", input)
		d = res.Draft
		prev = res.NextState
		history = append(history, Message{Role: RoleUser, Content: input}, Message{Role: RoleAssistant, Content: res.Message})
	}

	assert.Equal(t, StateGenerate, prev)
	assert.Equal(t, "past-applicant-reengage", d.MatchedExampleID)
	assert.Equal(t, campaign.ToneCasual, d.Tone)
	assert.Equal(t, campaign.LengthShort, d.EmailLength)
	assert.False(t, d.Personalized())
}

func TestPromptCarriesRecentHistory(t *testing.T) {
	var captured llm.Request
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		captured = req
		return `{"message": "Who?", "nextState": "audience"}`, nil
	})
	c := newTestClassifier(client)

	var history []Message
	for i := 0; i < 10; i++ {
		history = append(history, Message{Role: RoleUser, Content: fmt.Sprintf("message-%02d", i)})
	}

	c.ProcessUserInput(context.Background(), Turn{
		Input:          "build talent community",
		History:        history,
		RecentSearches: []string{"icu", "er"},
	})

	assert.Equal(t, llm.OpClassify, captured.Operation)
	assert.Equal(t, "test", captured.Model)
	assert.Contains(t, captured.System, "talent-community-nurture")
	assert.Contains(t, captured.User, "Current state: goal")
	assert.Contains(t, captured.User, "message-09")
	assert.Contains(t, captured.User, "message-04")
	assert.NotContains(t, captured.User, "message-03")
	assert.Contains(t, captured.User, "Recent candidate searches: icu; er")
}

type stubInterpreter struct{ calls int }

func (s *stubInterpreter) Interpret(state State, input string, d *campaign.Draft) bool {
	s.calls++
	return false
}

func TestWithInterpreter(t *testing.T) {
	stub := &stubInterpreter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClassifier(failingClient(), prompt.Default(), catalog.Default(), llm.CallConfig{}, logger, WithInterpreter(stub))

	res := c.ProcessUserInput(context.Background(), Turn{Input: "build talent community"})
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, StateGoal, res.NextState)
}
