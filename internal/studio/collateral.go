package studio

import (
	"context"
	"fmt"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/repository"
)

// AddCollateral stores a piece of company content for later generations
func (s *Service) AddCollateral(ctx context.Context, userID string, c *campaign.Collateral) error {
	if err := s.collateral.Add(ctx, c); err != nil {
		return err
	}

	s.recordAudit(ctx, &repository.AuditEntry{
		UserID:     userID,
		ProjectID:  c.ProjectID,
		Action:     repository.ActionCollateralAdded,
		EntityType: "collateral",
		EntityID:   c.ID,
		Details:    fmt.Sprintf("type=%s", c.Type),
	})
	return nil
}

// ListCollateral returns the collateral of a project
func (s *Service) ListCollateral(ctx context.Context, projectID string) ([]campaign.Collateral, error) {
	return s.collateral.ListByProject(ctx, projectID)
}
