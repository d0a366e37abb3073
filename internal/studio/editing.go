package studio

import (
	"context"
	"fmt"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/editor"
	"github.com/foxzi/recruitflow/internal/session"
)

// edit applies fn to the session's steps under the session lock and
// stores the result
func (s *Service) edit(ctx context.Context, userID, id string, fn func(ed *editor.Editor) error) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !sess.Generated() {
		return nil, ErrNotGenerated
	}

	ed := editor.New(sess.Steps)
	if err := fn(ed); err != nil {
		return nil, err
	}
	sess.Steps = ed.Steps()

	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return sess, nil
}

// AddStep appends a blank step of typ
func (s *Service) AddStep(ctx context.Context, userID, id string, typ campaign.StepType) (*session.Session, campaign.EmailStep, error) {
	var added campaign.EmailStep
	sess, err := s.edit(ctx, userID, id, func(ed *editor.Editor) error {
		var err error
		added, err = ed.Add(typ)
		return err
	})
	return sess, added, err
}

// UpdateStep changes the fields set in patch
func (s *Service) UpdateStep(ctx context.Context, userID, id string, stepID int, patch editor.Patch) (*session.Session, campaign.EmailStep, error) {
	var updated campaign.EmailStep
	sess, err := s.edit(ctx, userID, id, func(ed *editor.Editor) error {
		var err error
		updated, err = ed.Update(stepID, patch)
		return err
	})
	return sess, updated, err
}

// RemoveStep deletes a step
func (s *Service) RemoveStep(ctx context.Context, userID, id string, stepID int) (*session.Session, error) {
	return s.edit(ctx, userID, id, func(ed *editor.Editor) error {
		return ed.Remove(stepID)
	})
}

// DuplicateStep copies a step right after itself
func (s *Service) DuplicateStep(ctx context.Context, userID, id string, stepID int) (*session.Session, campaign.EmailStep, error) {
	var dup campaign.EmailStep
	sess, err := s.edit(ctx, userID, id, func(ed *editor.Editor) error {
		var err error
		dup, err = ed.Duplicate(stepID)
		return err
	})
	return sess, dup, err
}

// MoveStep moves a step to a new position in send order
func (s *Service) MoveStep(ctx context.Context, userID, id string, stepID, to int) (*session.Session, error) {
	return s.edit(ctx, userID, id, func(ed *editor.Editor) error {
		return ed.Move(stepID, to)
	})
}
