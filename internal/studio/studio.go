// Package studio binds conversation sessions to the classifier, generator,
// step editor, campaign store and test mailer.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/conversation"
	"github.com/foxzi/recruitflow/internal/generator"
	"github.com/foxzi/recruitflow/internal/mailer"
	"github.com/foxzi/recruitflow/internal/ratelimit"
	"github.com/foxzi/recruitflow/internal/repository"
	"github.com/foxzi/recruitflow/internal/session"
	"github.com/foxzi/recruitflow/internal/template"
)

const maxRecentSearches = 5

var (
	// ErrForbidden is returned when a session or campaign belongs to another user
	ErrForbidden = errors.New("access denied")
	// ErrEmptyInput is returned for a blank chat message
	ErrEmptyInput = errors.New("message is empty")
	// ErrConversationClosed is returned for chat input once review is confirmed
	ErrConversationClosed = errors.New("conversation is closed, the campaign is ready to generate")
	// ErrNotReady is returned when generation is requested before review is confirmed
	ErrNotReady = errors.New("campaign draft is not ready for generation")
	// ErrNotGenerated is returned by editor operations before generation
	ErrNotGenerated = errors.New("campaign has not been generated yet")
)

// SessionStore persists sessions
type SessionStore interface {
	Create(ctx context.Context, sess *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	Update(ctx context.Context, sess *session.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter session.ListFilter) ([]*session.Session, error)
}

// CampaignStore persists saved campaigns
type CampaignStore interface {
	CreateCampaign(ctx context.Context, rec *campaign.Record, steps []campaign.EmailStep) (*campaign.Record, error)
	UpdateCampaign(ctx context.Context, id string, rec *campaign.Record, steps []campaign.EmailStep) (*campaign.Record, error)
	GetCampaign(ctx context.Context, id string) (*campaign.Record, []campaign.EmailStep, error)
	ListCampaigns(ctx context.Context, filter repository.ListFilter) ([]campaign.Record, int, error)
}

// CollateralStore keeps company collateral per project
type CollateralStore interface {
	Add(ctx context.Context, c *campaign.Collateral) error
	ListByProject(ctx context.Context, projectID string) ([]campaign.Collateral, error)
}

// AuditLog records who changed what
type AuditLog interface {
	Add(ctx context.Context, e *repository.AuditEntry) error
}

// Sender delivers test emails
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// Options wires a Service
type Options struct {
	Sessions     SessionStore
	Campaigns    CampaignStore
	Collateral   CollateralStore
	Audit        AuditLog
	Classifier   *conversation.Classifier
	Generator    *generator.Generator
	Personalizer *generator.Personalizer
	Mailer       Sender

	// Draft defaults for new sessions
	CompanyName   string
	RecruiterName string

	Logger *slog.Logger
}

// Service runs every authoring operation for authenticated users
type Service struct {
	sessions     SessionStore
	campaigns    CampaignStore
	collateral   CollateralStore
	audit        AuditLog
	classifier   *conversation.Classifier
	generator    *generator.Generator
	personalizer *generator.Personalizer
	mailer       Sender
	engine       *template.Engine
	locks        *session.Locks

	companyName   string
	recruiterName string

	logger *slog.Logger
}

// New creates a studio service
func New(opts Options) *Service {
	return &Service{
		sessions:      opts.Sessions,
		campaigns:     opts.Campaigns,
		collateral:    opts.Collateral,
		audit:         opts.Audit,
		classifier:    opts.Classifier,
		generator:     opts.Generator,
		personalizer:  opts.Personalizer,
		mailer:        opts.Mailer,
		engine:        template.NewEngine(),
		locks:         session.NewLocks(),
		companyName:   opts.CompanyName,
		recruiterName: opts.RecruiterName,
		logger:        opts.Logger.With("component", "studio"),
	}
}

// Reply is the outcome of one chat message
type Reply struct {
	Session *session.Session    `json:"session"`
	Turn    conversation.Result `json:"turn"`
}

// StartSession opens a new conversation with an empty draft
func (s *Service) StartSession(ctx context.Context, userID, projectID string) (*session.Session, error) {
	sess := &session.Session{
		UserID:    userID,
		ProjectID: projectID,
		Draft: campaign.Draft{
			CompanyName:   s.companyName,
			RecruiterName: s.recruiterName,
		},
	}
	greeting, _ := conversation.Fallback(conversation.StateGoal, sess.Draft)
	sess.AddMessage(conversation.RoleAssistant, greeting)

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session started", "session_id", sess.ID, "user_id", userID, "project_id", projectID)
	return sess, nil
}

// GetSession returns a session owned by userID
func (s *Service) GetSession(ctx context.Context, userID, id string) (*session.Session, error) {
	return s.load(ctx, userID, id)
}

// ListSessions returns the sessions of userID, newest first
func (s *Service) ListSessions(ctx context.Context, userID string, limit, offset int) ([]*session.Session, error) {
	return s.sessions.List(ctx, session.ListFilter{UserID: userID, Limit: limit, Offset: offset})
}

// DeleteSession removes a session owned by userID
func (s *Service) DeleteSession(ctx context.Context, userID, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

// SendMessage runs one conversation turn. Turns on the same session are
// serialized, so a second submit sees the draft the first one produced.
func (s *Service) SendMessage(ctx context.Context, userID, id, input string, searches []string) (*Reply, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if sess.Generated() || sess.State == conversation.StateGenerate {
		return nil, ErrConversationClosed
	}

	sess.RecentSearches = mergeSearches(searches, sess.RecentSearches)

	ctx = s.withBudget(ctx, sess)
	result := s.classifier.ProcessUserInput(ctx, conversation.Turn{
		Input:          input,
		History:        sess.History,
		Draft:          sess.Draft,
		RecentSearches: sess.RecentSearches,
	})

	sess.AddMessage(conversation.RoleUser, input)
	sess.AddMessage(conversation.RoleAssistant, result.Message)
	sess.Draft = result.Draft
	sess.State = result.NextState

	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.logger.Debug("conversation turn",
		"session_id", sess.ID,
		"state", result.State,
		"next_state", result.NextState,
		"fallback", result.Fallback,
	)
	return &Reply{Session: sess, Turn: result}, nil
}

// Generate turns a confirmed draft into campaign data and editable steps.
// Calling it again regenerates and discards edits.
func (s *Service) Generate(ctx context.Context, userID, id string) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if sess.State != conversation.StateGenerate {
		return nil, ErrNotReady
	}

	var collateral []campaign.Collateral
	if s.collateral != nil && sess.ProjectID != "" {
		collateral, err = s.collateral.ListByProject(ctx, sess.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load collateral: %w", err)
		}
	}

	result, err := s.generator.Generate(s.withBudget(ctx, sess), sess.Draft, collateral)
	if err != nil {
		return nil, err
	}

	data := result.Data
	sess.Campaign = &data
	sess.Steps = result.Steps
	sess.GeneratedBy = result.Source

	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.logger.Info("campaign generated",
		"session_id", sess.ID,
		"example", data.MatchedExampleID,
		"steps", len(sess.Steps),
		"source", result.Source,
	)
	return sess, nil
}

// load reads a session and checks its owner
func (s *Service) load(ctx context.Context, userID, id string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrForbidden
	}
	return sess, nil
}

func (s *Service) withBudget(ctx context.Context, sess *session.Session) context.Context {
	return ratelimit.WithRequest(ctx, ratelimit.Request{UserID: sess.UserID, ProjectID: sess.ProjectID})
}

// mergeSearches puts fresh searches first and keeps the newest few
func mergeSearches(fresh, old []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{fresh, old} {
		for _, q := range list {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			key := strings.ToLower(q)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, q)
			if len(out) == maxRecentSearches {
				return out
			}
		}
	}
	return out
}
