package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/conversation"
	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/repository"
	"github.com/foxzi/recruitflow/internal/session"
)

// SaveOptions tweaks what Save stores
type SaveOptions struct {
	// Name replaces the generated campaign name when set
	Name string `json:"name,omitempty"`
}

// Save validates the session's campaign and writes it to the store. The
// first save creates the campaign; later saves update it in place.
func (s *Service) Save(ctx context.Context, userID, id string, opts SaveOptions) (*campaign.Record, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var data campaign.Data
	if sess.Campaign != nil {
		data = *sess.Campaign
	}
	if name := strings.TrimSpace(opts.Name); name != "" {
		data.Name = name
	}

	rec := campaign.NewRecord(userID, sess.ProjectID, data)
	err = campaign.Validate(campaign.SaveRequest{
		UserID:    userID,
		ProjectID: sess.ProjectID,
		Record:    rec,
		Steps:     sess.Steps,
	})
	if err != nil {
		metrics.IncValidationFailures()
		return nil, err
	}

	saved, action, err := s.store(ctx, sess.SavedCampaignID, rec, sess.Steps)
	if err != nil {
		return nil, err
	}

	if sess.Campaign != nil {
		sess.Campaign.Name = saved.Name
	}
	sess.SavedCampaignID = saved.ID
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.recordAudit(ctx, &repository.AuditEntry{
		UserID:     userID,
		ProjectID:  sess.ProjectID,
		Action:     action,
		EntityType: "campaign",
		EntityID:   saved.ID,
		Details:    fmt.Sprintf("steps=%d session=%s", len(sess.Steps), sess.ID),
	})
	metrics.IncCampaignsSaved()

	s.logger.Info("campaign saved", "campaign_id", saved.ID, "session_id", sess.ID, "action", action)
	return saved, nil
}

func (s *Service) store(ctx context.Context, savedID string, rec *campaign.Record, steps []campaign.EmailStep) (*campaign.Record, string, error) {
	if savedID != "" {
		saved, err := s.campaigns.UpdateCampaign(ctx, savedID, rec, steps)
		if err == nil {
			return saved, repository.ActionCampaignUpdated, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("failed to update campaign: %w", err)
		}
		// deleted since the last save
		s.logger.Warn("saved campaign is gone, creating a new one", "campaign_id", savedID)
	}

	saved, err := s.campaigns.CreateCampaign(ctx, rec, steps)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create campaign: %w", err)
	}
	return saved, repository.ActionCampaignCreated, nil
}

func (s *Service) recordAudit(ctx context.Context, e *repository.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Add(ctx, e); err != nil {
		s.logger.Warn("failed to write audit entry", "action", e.Action, "error", err)
	}
}

// GetCampaign returns a saved campaign owned by userID
func (s *Service) GetCampaign(ctx context.Context, userID, campaignID string) (*campaign.Record, []campaign.EmailStep, error) {
	rec, steps, err := s.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	if rec.UserID != userID {
		return nil, nil, ErrForbidden
	}
	return rec, steps, nil
}

// ListCampaigns returns the saved campaigns of userID, optionally within one project
func (s *Service) ListCampaigns(ctx context.Context, userID, projectID string, limit, offset int) ([]campaign.Record, int, error) {
	return s.campaigns.ListCampaigns(ctx, repository.ListFilter{
		UserID:    userID,
		ProjectID: projectID,
		Limit:     limit,
		Offset:    offset,
	})
}

// OpenCampaign starts an editing session over a saved campaign. Saving
// that session updates the campaign.
func (s *Service) OpenCampaign(ctx context.Context, userID, campaignID string) (*session.Session, error) {
	rec, steps, err := s.GetCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	data := campaign.Data{
		Name:                  rec.Name,
		Type:                  rec.Type,
		Goal:                  rec.CampaignGoal,
		TargetAudience:        rec.TargetAudience,
		Tone:                  rec.Tone,
		EnablePersonalization: rec.Settings.EnablePersonalization,
		CompanyName:           rec.CompanyName,
		RecruiterName:         rec.RecruiterName,
		ContentSources:        rec.ContentSources,
	}
	if rec.AIInstructions != nil {
		data.AdditionalContext = *rec.AIInstructions
	}

	sess := &session.Session{
		UserID:    userID,
		ProjectID: rec.ProjectID,
		Draft: campaign.Draft{
			Goal:                  data.Goal,
			Type:                  data.Type,
			TargetAudience:        data.TargetAudience,
			Tone:                  data.Tone,
			AdditionalContext:     data.AdditionalContext,
			EnablePersonalization: campaign.Bool(data.EnablePersonalization),
			CompanyName:           data.CompanyName,
			RecruiterName:         data.RecruiterName,
		},
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Create always starts at the goal; move straight to editing
	sess.State = conversation.StateGenerate
	sess.Campaign = &data
	sess.Steps = steps
	sess.GeneratedBy = "saved"
	sess.SavedCampaignID = rec.ID
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return sess, nil
}
