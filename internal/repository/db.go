// Package repository persists saved campaigns, their steps and company
// collateral in SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path, creating its directory
func Open(path string) (*DB, error) {
	if path == MemoryPath {
		db, err := sql.Open("sqlite3", MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		return &DB{db}, nil
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// Migrate creates missing tables
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCampaigns,
		migrationCampaignSteps,
		migrationCollateral,
		migrationAuditLog,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const migrationCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    project_id TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('nurture', 'enrichment', 'keep-warm', 'reengage')),
    status TEXT NOT NULL DEFAULT 'draft',
    target_audience TEXT NOT NULL,
    campaign_goal TEXT NOT NULL,
    content_sources JSON,
    ai_instructions TEXT,
    tone TEXT,
    company_name TEXT,
    recruiter_name TEXT,
    settings JSON,
    stats JSON,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_campaigns_project ON campaigns(project_id);
CREATE INDEX IF NOT EXISTS idx_campaigns_user ON campaigns(user_id);
`

const migrationCampaignSteps = `
CREATE TABLE IF NOT EXISTS campaign_steps (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    step_order INTEGER NOT NULL,
    type TEXT NOT NULL DEFAULT 'email',
    subject TEXT NOT NULL,
    content TEXT NOT NULL,
    delay INTEGER NOT NULL DEFAULT 0 CHECK (delay >= 0),
    delay_unit TEXT NOT NULL CHECK (delay_unit IN ('immediately', 'business days')),
    UNIQUE(campaign_id, step_order)
);
CREATE INDEX IF NOT EXISTS idx_campaign_steps_campaign ON campaign_steps(campaign_id);
`

const migrationCollateral = `
CREATE TABLE IF NOT EXISTS collateral (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    type TEXT NOT NULL,
    content TEXT NOT NULL,
    links JSON,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_collateral_project ON collateral(project_id);
`

const migrationAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT,
    project_id TEXT,
    action TEXT NOT NULL,
    entity_type TEXT,
    entity_id TEXT,
    details JSON,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
`
