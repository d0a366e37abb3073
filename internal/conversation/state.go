// Package conversation drives the chat that fills a campaign draft one
// field group at a time.
package conversation

import (
	"github.com/foxzi/recruitflow/internal/campaign"
)

// State is a conversation step
type State string

const (
	StateGoal            State = "goal"
	StateAudience        State = "audience"
	StateTone            State = "tone"
	StateContext         State = "context"
	StatePersonalization State = "personalization"
	StateReview          State = "review"
	StateGenerate        State = "generate"
)

// States lists every state in conversation order
var States = []State{
	StateGoal,
	StateAudience,
	StateTone,
	StateContext,
	StatePersonalization,
	StateReview,
	StateGenerate,
}

// Valid reports whether s is a known state
func (s State) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in States, or -1
func (s State) Index() int {
	for i, st := range States {
		if st == s {
			return i
		}
	}
	return -1
}

// Before reports whether s comes earlier in the conversation than other
func (s State) Before(other State) bool {
	return s.Index() < other.Index()
}

// Next returns the state whose field group is the first one still unset.
// It never returns StateGenerate; that state is entered only when a review
// turn is confirmed.
func Next(d campaign.Draft) State {
	switch {
	case d.Goal == "":
		return StateGoal
	case d.TargetAudience == "":
		return StateAudience
	case d.Tone == "":
		return StateTone
	case d.AdditionalContext == "":
		return StateContext
	case d.EnablePersonalization == nil:
		return StatePersonalization
	default:
		return StateReview
	}
}
