package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKeepsCampaignTokens(t *testing.T) {
	tmpl, err := New("greet", `Open with "{{First Name}}" for [[ .Who | upper ]]`, "Who")
	require.NoError(t, err)

	out, err := tmpl.Render(Slots{"Who": "nurses"})
	require.NoError(t, err)
	assert.Equal(t, `Open with "{{First Name}}" for NURSES`, out)
}

func TestRenderMissingSlots(t *testing.T) {
	tmpl, err := New("x", "[[ .A ]] [[ .B ]]", "A", "B")
	require.NoError(t, err)

	_, err = tmpl.Render(Slots{"A": "1"})
	var missing *MissingSlotError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"B"}, missing.Slots)
}

func TestRenderUnknownOptionalSlotFails(t *testing.T) {
	tmpl, err := New("x", "[[ .Optional ]]")
	require.NoError(t, err)

	_, err = tmpl.Render(Slots{})
	assert.Error(t, err)
}

func TestDefaultSet(t *testing.T) {
	s := Default()
	assert.Len(t, s.Names(), len(builtin))

	out, err := s.Render(PersonalizeUser, Slots{
		"Content": "<p>Dear {{First Name}},</p>",
		"Candidate": struct {
			Name    string
			Company string
			Skills  []string
		}{Name: "Jane Doe", Skills: []string{"ICU", "ER"}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "name: Jane Doe")
	assert.Contains(t, out, "current company: unknown")
	assert.Contains(t, out, "skills: ICU, ER")
	assert.Contains(t, out, "{{First Name}}")

	_, err = s.Render("nope", nil)
	assert.Error(t, err)
}
