package editor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/recruitflow/internal/campaign"
)

func seed() []campaign.EmailStep {
	return []campaign.EmailStep{
		{ID: 1, Type: campaign.StepEmail, Subject: "one", Content: "<p>1</p>", Delay: 0, DelayUnit: campaign.DelayImmediately},
		{ID: 2, Type: campaign.StepEmail, Subject: "two", Content: "<p>2</p>", Delay: 3, DelayUnit: campaign.DelayBusinessDays},
		{ID: 3, Type: campaign.StepEmail, Subject: "three", Content: "<p>3</p>", Delay: 5, DelayUnit: campaign.DelayBusinessDays},
	}
}

func ids(steps []campaign.EmailStep) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}

func assertInvariant(t *testing.T, steps []campaign.EmailStep) {
	t.Helper()
	if len(steps) == 0 {
		return
	}
	assert.Equal(t, 0, steps[0].Delay)
	assert.Equal(t, campaign.DelayImmediately, steps[0].DelayUnit)
	for _, s := range steps[1:] {
		assert.Equal(t, campaign.DelayBusinessDays, s.DelayUnit)
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := seed()
	e := New(in)
	in[0].Subject = "changed"
	assert.Equal(t, "one", e.Steps()[0].Subject)

	out := e.Steps()
	out[1].Subject = "changed"
	assert.Equal(t, "two", e.Steps()[1].Subject)
}

func TestAdd(t *testing.T) {
	e := New(seed())
	step, err := e.Add(campaign.StepConnection)
	require.NoError(t, err)
	assert.Equal(t, 4, step.ID)
	assert.Equal(t, campaign.StepConnection, step.Type)
	assert.Equal(t, DefaultDelay, step.Delay)
	assert.Equal(t, campaign.DelayBusinessDays, step.DelayUnit)

	_, err = e.Add("sms")
	assert.True(t, errors.Is(err, ErrInvalidStep))

	empty := New(nil)
	first, err := empty.Add("")
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, campaign.StepEmail, first.Type)
	assertInvariant(t, empty.Steps())
}

func TestRemoveHeadReappliesInvariant(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.Remove(1))

	steps := e.Steps()
	assert.Equal(t, []int{2, 3}, ids(steps))
	assertInvariant(t, steps)

	assert.True(t, errors.Is(e.Remove(42), ErrStepNotFound))
}

func TestDuplicate(t *testing.T) {
	e := New(seed())
	dup, err := e.Duplicate(1)
	require.NoError(t, err)

	assert.Equal(t, 4, dup.ID)
	assert.Equal(t, "one", dup.Subject)
	assert.Equal(t, DefaultDelay, dup.Delay)
	assert.Equal(t, []int{1, 4, 2, 3}, ids(e.Steps()))
	assertInvariant(t, e.Steps())

	// ids are never reused, even after removal
	require.NoError(t, e.Remove(4))
	again, err := e.Duplicate(3)
	require.NoError(t, err)
	assert.Equal(t, 5, again.ID)
}

func TestMove(t *testing.T) {
	tests := []struct {
		id   int
		to   int
		want []int
	}{
		{3, 0, []int{3, 1, 2}},
		{1, 2, []int{2, 3, 1}},
		{2, 1, []int{1, 2, 3}},
		{1, 1, []int{2, 1, 3}},
	}

	for _, tc := range tests {
		e := New(seed())
		require.NoError(t, e.Move(tc.id, tc.to))
		steps := e.Steps()
		assert.Equal(t, tc.want, ids(steps), "move %d to %d", tc.id, tc.to)
		assertInvariant(t, steps)
		for _, s := range steps[1:] {
			assert.Positive(t, s.Delay)
		}
	}

	e := New(seed())
	assert.True(t, errors.Is(e.Move(1, 3), ErrInvalidIndex))
	assert.True(t, errors.Is(e.Move(9, 0), ErrStepNotFound))
}

func TestMoveKeepsZeroDelays(t *testing.T) {
	steps := seed()
	steps[2].Delay = 0

	e := New(steps)
	require.NoError(t, e.Move(2, 2))
	got := e.Steps()
	assert.Equal(t, []int{1, 3, 2}, ids(got))
	assert.Equal(t, 0, got[1].Delay, "untouched step keeps its same-day delay")
	assert.Equal(t, 3, got[2].Delay)

	e = New(steps)
	require.NoError(t, e.Move(3, 0))
	got = e.Steps()
	assert.Equal(t, []int{3, 1, 2}, ids(got))
	assert.Equal(t, DefaultDelay, got[1].Delay, "former head gets a real delay")
	assertInvariant(t, got)
}

func TestUpdate(t *testing.T) {
	e := New(seed())
	subject := "Hello {{First Name}}"
	delay := 7
	connection := campaign.StepConnection

	step, err := e.Update(2, Patch{Subject: &subject, Delay: &delay, Type: &connection})
	require.NoError(t, err)

	want := campaign.EmailStep{
		ID:        2,
		Type:      campaign.StepConnection,
		Subject:   subject,
		Content:   "<p>2</p>",
		Delay:     7,
		DelayUnit: campaign.DelayBusinessDays,
	}
	if diff := cmp.Diff(want, step); diff != "" {
		t.Errorf("Update() mismatch (-want +got):\n%s", diff)
	}

	// the head keeps its delay whatever the patch says
	step, err = e.Update(1, Patch{Delay: &delay})
	require.NoError(t, err)
	assert.Equal(t, 0, step.Delay)

	negative := -1
	_, err = e.Update(2, Patch{Delay: &negative})
	assert.True(t, errors.Is(err, ErrInvalidStep))

	_, err = e.Update(99, Patch{})
	assert.True(t, errors.Is(err, ErrStepNotFound))
}
