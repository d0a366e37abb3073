package repository

import (
	"context"
	"database/sql"
	"time"
)

// Audit actions
const (
	ActionCampaignCreated = "campaign.created"
	ActionCampaignUpdated = "campaign.updated"
	ActionCollateralAdded = "collateral.added"
)

// AuditEntry is one audit log row
type AuditEntry struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	ProjectID  string    `json:"project_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Add adds an audit log entry
func (r *AuditRepository) Add(ctx context.Context, e *AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var details any
	if e.Details != "" {
		details = e.Details
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, project_id, action, entity_type, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.ProjectID, e.Action, e.EntityType, e.EntityID, details, e.CreatedAt,
	)
	if err != nil {
		return err
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// List returns the newest entries for an entity, or all entries when
// entityID is empty
func (r *AuditRepository) List(ctx context.Context, entityID string, limit int) ([]AuditEntry, error) {
	query := `
		SELECT id, COALESCE(user_id, ''), COALESCE(project_id, ''), action, COALESCE(entity_type, ''),
			COALESCE(entity_id, ''), COALESCE(details, ''), created_at
		FROM audit_log`
	args := []any{}
	if entityID != "" {
		query += " WHERE entity_id = ?"
		args = append(args, entityID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
