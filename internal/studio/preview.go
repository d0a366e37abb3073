package studio

import (
	"context"
	"errors"
	"strings"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/editor"
	"github.com/foxzi/recruitflow/internal/mailer"
	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/repository"
	"github.com/foxzi/recruitflow/internal/session"
	"github.com/foxzi/recruitflow/internal/template"
)

// Preview is a step rendered for one candidate
type Preview struct {
	StepID int `json:"stepId"`
	*template.RenderResult
	// Source is set when the personalization section was rewritten
	Source string `json:"personalizationSource,omitempty"`
}

// PreviewStep renders a step with tokens substituted for candidate
func (s *Service) PreviewStep(ctx context.Context, userID, id string, stepID int, candidate template.Candidate) (*Preview, error) {
	sess, step, err := s.step(ctx, userID, id, stepID)
	if err != nil {
		return nil, err
	}
	return s.render(sess, step, candidate, ""), nil
}

// PersonalizeStep rewrites the step's personalization section for
// candidate and renders the result. Nothing is stored.
func (s *Service) PersonalizeStep(ctx context.Context, userID, id string, stepID int, candidate template.Candidate) (*Preview, error) {
	sess, step, err := s.step(ctx, userID, id, stepID)
	if err != nil {
		return nil, err
	}

	out := s.personalizer.Personalize(s.withBudget(ctx, sess), step.Content, candidate)
	step.Content = out.Content
	return s.render(sess, step, candidate, out.Source), nil
}

// SendTestEmail delivers one rendered step to a single address and
// returns the Message-ID
func (s *Service) SendTestEmail(ctx context.Context, userID, id string, stepID int, to string, candidate template.Candidate) (string, error) {
	if s.mailer == nil || !s.mailer.Enabled() {
		return "", mailer.ErrDisabled
	}

	sess, step, err := s.step(ctx, userID, id, stepID)
	if err != nil {
		return "", err
	}

	source := ""
	if sess.Campaign.EnablePersonalization && template.HasPersonalizationSection(step.Content) {
		out := s.personalizer.Personalize(s.withBudget(ctx, sess), step.Content, candidate)
		step.Content = out.Content
		source = out.Source
	}
	preview := s.render(sess, step, candidate, source)

	messageID, err := s.mailer.Send(ctx, mailer.Message{
		To:      to,
		Subject: preview.Subject,
		HTML:    preview.HTML,
		Text:    preview.Text,
	})
	if err != nil {
		metrics.IncTestEmails("failed")
		return "", err
	}

	metrics.IncTestEmails("sent")
	s.logger.Info("test email sent", "session_id", id, "step_id", stepID, "to", to)
	return messageID, nil
}

// step loads a generated session and one of its steps
func (s *Service) step(ctx context.Context, userID, id string, stepID int) (*session.Session, campaign.EmailStep, error) {
	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, campaign.EmailStep{}, err
	}
	if !sess.Generated() {
		return nil, campaign.EmailStep{}, ErrNotGenerated
	}
	step, err := editor.New(sess.Steps).Get(stepID)
	if err != nil {
		return nil, campaign.EmailStep{}, err
	}
	return sess, step, nil
}

func (s *Service) render(sess *session.Session, step campaign.EmailStep, candidate template.Candidate, source string) *Preview {
	step.Content = template.StripPersonalizationMarkers(step.Content)
	ctx := template.Context{
		Candidate:     candidate,
		CompanyName:   firstNonEmpty(sess.Campaign.CompanyName, sess.Draft.CompanyName),
		RecruiterName: firstNonEmpty(sess.Campaign.RecruiterName, sess.Draft.RecruiterName),
	}
	return &Preview{
		StepID:       step.ID,
		RenderResult: s.engine.Render(step, ctx),
		Source:       source,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// IsNotFound reports whether err means a missing session, step or campaign
func IsNotFound(err error) bool {
	return errors.Is(err, session.ErrNotFound) ||
		errors.Is(err, editor.ErrStepNotFound) ||
		errors.Is(err, repository.ErrNotFound)
}
