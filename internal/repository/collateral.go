package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/recruitflow/internal/campaign"
)

// ErrInvalidCollateral is returned by Add for a missing project or unknown type
var ErrInvalidCollateral = errors.New("invalid collateral")

// CollateralTypes lists the accepted collateral type tags
var CollateralTypes = []string{
	campaign.CollateralWhoWeAre,
	campaign.CollateralBenefits,
	campaign.CollateralMission,
	campaign.CollateralTalentCommunityLink,
	campaign.CollateralCareerSiteLink,
	campaign.CollateralNewsletters,
	campaign.CollateralDEI,
	campaign.CollateralLogo,
}

type CollateralRepository struct {
	db *sql.DB
}

func NewCollateralRepository(db *sql.DB) *CollateralRepository {
	return &CollateralRepository{db: db}
}

// Add stores a collateral item for a project
func (r *CollateralRepository) Add(ctx context.Context, c *campaign.Collateral) error {
	if c.ProjectID == "" {
		return fmt.Errorf("%w: a project is required", ErrInvalidCollateral)
	}
	if !validCollateralType(c.Type) {
		return fmt.Errorf("%w: unknown type %q, want one of %s", ErrInvalidCollateral, c.Type, strings.Join(CollateralTypes, ", "))
	}

	links := c.Links
	if links == nil {
		links = []string{}
	}
	encoded, err := json.Marshal(links)
	if err != nil {
		return err
	}

	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO collateral (id, project_id, type, content, links, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Type, c.Content, string(encoded), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add collateral: %w", err)
	}
	return nil
}

// ListByProject returns the collateral of a project, oldest first
func (r *CollateralRepository) ListByProject(ctx context.Context, projectID string) ([]campaign.Collateral, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, type, content, links, created_at
		FROM collateral WHERE project_id = ?
		ORDER BY created_at, id`, projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []campaign.Collateral{}
	for rows.Next() {
		var c campaign.Collateral
		var links sql.NullString
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Type, &c.Content, &links, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := decodeJSON(links, &c.Links); err != nil {
			return nil, fmt.Errorf("collateral %s links: %w", c.ID, err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Delete removes a collateral item
func (r *CollateralRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM collateral WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func validCollateralType(t string) bool {
	for _, known := range CollateralTypes {
		if t == known {
			return true
		}
	}
	return false
}
