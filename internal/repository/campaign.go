package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/recruitflow/internal/campaign"
)

type CampaignRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db, now: time.Now}
}

// ListFilter narrows ListCampaigns
type ListFilter struct {
	UserID    string
	ProjectID string
	Limit     int
	Offset    int
}

// CreateCampaign stores a new draft campaign and its steps in one transaction
func (r *CampaignRepository) CreateCampaign(ctx context.Context, rec *campaign.Record, steps []campaign.EmailStep) (*campaign.Record, error) {
	out := *rec
	out.ID = uuid.New().String()
	out.Status = campaign.StatusDraft
	out.Stats = campaign.Stats{}
	out.CreatedAt = r.now().UTC()
	out.UpdatedAt = out.CreatedAt

	cols, err := encodeRecord(&out)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaigns (id, user_id, project_id, name, type, status, target_audience, campaign_goal,
			content_sources, ai_instructions, tone, company_name, recruiter_name, settings, stats, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.ProjectID, out.Name, out.Type, out.Status, out.TargetAudience, out.CampaignGoal,
		cols.contentSources, out.AIInstructions, out.Tone, out.CompanyName, out.RecruiterName, cols.settings, cols.stats,
		out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	if err := insertSteps(ctx, tx, out.ID, steps); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit campaign: %w", err)
	}
	return &out, nil
}

// UpdateCampaign replaces the editable fields and the full step list.
// Status, stats and ownership are kept.
func (r *CampaignRepository) UpdateCampaign(ctx context.Context, id string, rec *campaign.Record, steps []campaign.EmailStep) (*campaign.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := getCampaign(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	out := *rec
	out.ID = id
	out.UserID = existing.UserID
	out.ProjectID = existing.ProjectID
	out.Status = existing.Status
	out.Stats = existing.Stats
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = r.now().UTC()

	cols, err := encodeRecord(&out)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE campaigns SET name = ?, type = ?, target_audience = ?, campaign_goal = ?, content_sources = ?,
			ai_instructions = ?, tone = ?, company_name = ?, recruiter_name = ?, settings = ?, updated_at = ?
		WHERE id = ?`,
		out.Name, out.Type, out.TargetAudience, out.CampaignGoal, cols.contentSources,
		out.AIInstructions, out.Tone, out.CompanyName, out.RecruiterName, cols.settings, out.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM campaign_steps WHERE campaign_id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to clear steps: %w", err)
	}
	if err := insertSteps(ctx, tx, id, steps); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit campaign: %w", err)
	}
	return &out, nil
}

// GetCampaign returns a campaign and its steps in send order
func (r *CampaignRepository) GetCampaign(ctx context.Context, id string) (*campaign.Record, []campaign.EmailStep, error) {
	rec, err := getCampaign(ctx, r.db, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, step_order, type, subject, content, delay, delay_unit
		FROM campaign_steps WHERE campaign_id = ?
		ORDER BY step_order`, id,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var stepRows []campaign.StepRow
	for rows.Next() {
		var s campaign.StepRow
		if err := rows.Scan(&s.ID, &s.CampaignID, &s.StepOrder, &s.Type, &s.Subject, &s.Content, &s.Delay, &s.DelayUnit); err != nil {
			return nil, nil, err
		}
		stepRows = append(stepRows, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return rec, campaign.FromRows(stepRows), nil
}

// ListCampaigns returns campaigns, newest first, and the total count
func (r *CampaignRepository) ListCampaigns(ctx context.Context, filter ListFilter) ([]campaign.Record, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.UserID != "" {
		where += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.ProjectID != "" {
		where += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaigns"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectCampaign + where + " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []campaign.Record{}
	for rows.Next() {
		rec, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	return records, total, rows.Err()
}

// DeleteCampaign removes a campaign and its steps
func (r *CampaignRepository) DeleteCampaign(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM campaigns WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectCampaign = `
	SELECT id, user_id, project_id, name, type, status, target_audience, campaign_goal, content_sources,
		ai_instructions, tone, company_name, recruiter_name, settings, stats, created_at, updated_at
	FROM campaigns`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getCampaign(ctx context.Context, q queryer, id string) (*campaign.Record, error) {
	rec, err := scanCampaign(q.QueryRowContext(ctx, selectCampaign+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	return rec, err
}

func scanCampaign(row scanner) (*campaign.Record, error) {
	var (
		rec                              campaign.Record
		sources, settings, stats         sql.NullString
		aiInstructions                   sql.NullString
		tone, companyName, recruiterName sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.ProjectID, &rec.Name, &rec.Type, &rec.Status, &rec.TargetAudience, &rec.CampaignGoal,
		&sources, &aiInstructions, &tone, &companyName, &recruiterName, &settings, &stats, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Tone = campaign.Tone(tone.String)
	rec.CompanyName = companyName.String
	rec.RecruiterName = recruiterName.String
	if aiInstructions.Valid {
		v := aiInstructions.String
		rec.AIInstructions = &v
	}

	rec.ContentSources = []string{}
	if err := decodeJSON(sources, &rec.ContentSources); err != nil {
		return nil, fmt.Errorf("campaign %s content_sources: %w", rec.ID, err)
	}
	if err := decodeJSON(settings, &rec.Settings); err != nil {
		return nil, fmt.Errorf("campaign %s settings: %w", rec.ID, err)
	}
	if err := decodeJSON(stats, &rec.Stats); err != nil {
		return nil, fmt.Errorf("campaign %s stats: %w", rec.ID, err)
	}
	return &rec, nil
}

type encodedColumns struct {
	contentSources string
	settings       string
	stats          string
}

func encodeRecord(rec *campaign.Record) (encodedColumns, error) {
	var cols encodedColumns

	sources := rec.ContentSources
	if sources == nil {
		sources = []string{}
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return cols, err
	}
	cols.contentSources = string(b)

	if b, err = json.Marshal(rec.Settings); err != nil {
		return cols, err
	}
	cols.settings = string(b)

	if b, err = json.Marshal(rec.Stats); err != nil {
		return cols, err
	}
	cols.stats = string(b)
	return cols, nil
}

func decodeJSON(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}

func insertSteps(ctx context.Context, tx *sql.Tx, campaignID string, steps []campaign.EmailStep) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_steps (campaign_id, step_order, type, subject, content, delay, delay_unit)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range campaign.ToRows(campaignID, steps) {
		typ := row.Type
		if typ == "" {
			typ = campaign.StepEmail
		}
		if _, err := stmt.ExecContext(ctx, row.CampaignID, row.StepOrder, typ, row.Subject, row.Content, row.Delay, row.DelayUnit); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", row.StepOrder, err)
		}
	}
	return nil
}
