// Package editor holds the ordered step list a user edits after generation.
package editor

import (
	"errors"
	"fmt"

	"github.com/foxzi/recruitflow/internal/campaign"
)

var (
	// ErrStepNotFound is returned for an unknown step id
	ErrStepNotFound = errors.New("step not found")
	// ErrInvalidIndex is returned when a move target is out of range
	ErrInvalidIndex = errors.New("invalid step index")
	// ErrInvalidStep is returned for a patch with unsupported values
	ErrInvalidStep = errors.New("invalid step")
)

// DefaultDelay is the business-day delay of a newly added step
const DefaultDelay = 2

// Patch holds the fields to change on a step. Nil fields are left alone.
type Patch struct {
	Type    *campaign.StepType `json:"type,omitempty"`
	Subject *string            `json:"subject,omitempty"`
	Content *string            `json:"content,omitempty"`
	Delay   *int               `json:"delay,omitempty"`
}

// Editor is the editable sequence. It is not safe for concurrent use;
// callers serialize access per session.
type Editor struct {
	steps  []campaign.EmailStep
	nextID int
}

// New creates an editor over a copy of steps
func New(steps []campaign.EmailStep) *Editor {
	e := &Editor{
		steps:  make([]campaign.EmailStep, len(steps)),
		nextID: 1,
	}
	copy(e.steps, steps)
	for _, s := range e.steps {
		if s.ID >= e.nextID {
			e.nextID = s.ID + 1
		}
	}
	campaign.NormalizeDelays(e.steps)
	return e
}

// Steps returns a copy of the current sequence
func (e *Editor) Steps() []campaign.EmailStep {
	out := make([]campaign.EmailStep, len(e.steps))
	copy(out, e.steps)
	return out
}

// Len returns the number of steps
func (e *Editor) Len() int {
	return len(e.steps)
}

// Get returns the step with id
func (e *Editor) Get(id int) (campaign.EmailStep, error) {
	i, err := e.index(id)
	if err != nil {
		return campaign.EmailStep{}, err
	}
	return e.steps[i], nil
}

// Add appends an empty step of the given type
func (e *Editor) Add(typ campaign.StepType) (campaign.EmailStep, error) {
	if typ == "" {
		typ = campaign.StepEmail
	}
	if !validType(typ) {
		return campaign.EmailStep{}, fmt.Errorf("%w: type %q", ErrInvalidStep, typ)
	}

	step := campaign.EmailStep{
		ID:    e.allocID(),
		Type:  typ,
		Delay: DefaultDelay,
	}
	e.steps = append(e.steps, step)
	e.normalize()
	return e.steps[len(e.steps)-1], nil
}

// Remove deletes the step with id
func (e *Editor) Remove(id int) error {
	i, err := e.index(id)
	if err != nil {
		return err
	}
	e.steps = append(e.steps[:i], e.steps[i+1:]...)
	e.normalize()
	return nil
}

// Duplicate inserts a copy of the step right after it, with a fresh id
func (e *Editor) Duplicate(id int) (campaign.EmailStep, error) {
	i, err := e.index(id)
	if err != nil {
		return campaign.EmailStep{}, err
	}

	dup := e.steps[i]
	dup.ID = e.allocID()
	if dup.Delay == 0 {
		dup.Delay = DefaultDelay
	}

	e.steps = append(e.steps, campaign.EmailStep{})
	copy(e.steps[i+2:], e.steps[i+1:])
	e.steps[i+1] = dup
	e.normalize()
	return e.steps[i+1], nil
}

// Move places the step with id at index to, shifting the others
func (e *Editor) Move(id, to int) error {
	i, err := e.index(id)
	if err != nil {
		return err
	}
	if to < 0 || to >= len(e.steps) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, to)
	}
	if i == to {
		return nil
	}

	head := e.steps[0].ID
	step := e.steps[i]
	e.steps = append(e.steps[:i], e.steps[i+1:]...)
	e.steps = append(e.steps[:to], append([]campaign.EmailStep{step}, e.steps[to:]...)...)

	// the step that left the head needs a real delay again
	if j, _ := e.index(head); j > 0 && e.steps[j].Delay == 0 {
		e.steps[j].Delay = DefaultDelay
	}
	e.normalize()
	return nil
}

// Update applies patch to the step with id
func (e *Editor) Update(id int, patch Patch) (campaign.EmailStep, error) {
	i, err := e.index(id)
	if err != nil {
		return campaign.EmailStep{}, err
	}

	s := e.steps[i]
	if patch.Type != nil {
		if !validType(*patch.Type) {
			return campaign.EmailStep{}, fmt.Errorf("%w: type %q", ErrInvalidStep, *patch.Type)
		}
		s.Type = *patch.Type
	}
	if patch.Delay != nil {
		if *patch.Delay < 0 {
			return campaign.EmailStep{}, fmt.Errorf("%w: negative delay", ErrInvalidStep)
		}
		s.Delay = *patch.Delay
	}
	if patch.Subject != nil {
		s.Subject = *patch.Subject
	}
	if patch.Content != nil {
		s.Content = *patch.Content
	}

	e.steps[i] = s
	e.normalize()
	return e.steps[i], nil
}

func (e *Editor) normalize() {
	campaign.NormalizeDelays(e.steps)
}

func (e *Editor) allocID() int {
	id := e.nextID
	e.nextID++
	return id
}

func (e *Editor) index(id int) (int, error) {
	for i, s := range e.steps {
		if s.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %d", ErrStepNotFound, id)
}

func validType(t campaign.StepType) bool {
	return t == campaign.StepEmail || t == campaign.StepConnection
}
