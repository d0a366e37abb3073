// Package campaign holds the recruiting campaign data model shared by the
// conversation, generator, editor and persistence layers.
package campaign

import "time"

// Type is the kind of recruiting campaign
type Type string

const (
	TypeNurture    Type = "nurture"
	TypeEnrichment Type = "enrichment"
	TypeKeepWarm   Type = "keep-warm"
	TypeReengage   Type = "reengage"
)

// Types lists every campaign type in display order
var Types = []Type{TypeNurture, TypeEnrichment, TypeKeepWarm, TypeReengage}

// Valid reports whether t is a known campaign type
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Tone is the writing register of generated emails
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
	ToneFormal       Tone = "formal"
)

// Valid reports whether t is a known tone
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneFriendly, ToneCasual, ToneFormal:
		return true
	}
	return false
}

// EmailLength is the target body length of generated emails
type EmailLength string

const (
	LengthShort   EmailLength = "short"
	LengthConcise EmailLength = "concise"
	LengthMedium  EmailLength = "medium"
	LengthLong    EmailLength = "long"
)

// DefaultLength is used when no length was requested
const DefaultLength = LengthConcise

// Valid reports whether l is a known length
func (l EmailLength) Valid() bool {
	switch l {
	case LengthShort, LengthConcise, LengthMedium, LengthLong:
		return true
	}
	return false
}

// WordBand returns the readable word-count band for a length.
// Max is 0 when the band is open-ended.
func (l EmailLength) WordBand() (min, max int) {
	switch l {
	case LengthShort:
		return 30, 50
	case LengthMedium:
		return 100, 120
	case LengthLong:
		return 150, 0
	default:
		return 60, 80
	}
}

// StepType is the channel of a sequence step
type StepType string

const (
	StepEmail      StepType = "email"
	StepConnection StepType = "connection"
)

// DelayUnit is the unit of a step delay
type DelayUnit string

const (
	DelayImmediately  DelayUnit = "immediately"
	DelayBusinessDays DelayUnit = "business days"
)

// Valid reports whether u is an accepted delay unit
func (u DelayUnit) Valid() bool {
	return u == DelayImmediately || u == DelayBusinessDays
}

// Status values for persisted campaigns
const (
	StatusDraft = "draft"
)

// EmailStep is one scheduled message in a campaign sequence
type EmailStep struct {
	ID        int       `json:"id"`
	Type      StepType  `json:"type"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Delay     int       `json:"delay"`
	DelayUnit DelayUnit `json:"delayUnit"`
}

// NormalizeDelays enforces the send-order invariant: the first step goes out
// immediately and every later step waits in business days.
func NormalizeDelays(steps []EmailStep) {
	for i := range steps {
		if i == 0 {
			steps[i].Delay = 0
			steps[i].DelayUnit = DelayImmediately
			continue
		}
		if steps[i].Delay < 0 {
			steps[i].Delay = 0
		}
		steps[i].DelayUnit = DelayBusinessDays
	}
}

// Collateral is a piece of company content the generator may quote
type Collateral struct {
	ID        string    `json:"id,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Links     []string  `json:"links,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Collateral type tags
const (
	CollateralWhoWeAre            = "who_we_are"
	CollateralBenefits            = "benefits"
	CollateralMission             = "mission_statements"
	CollateralTalentCommunityLink = "talent_community_link"
	CollateralCareerSiteLink      = "career_site_link"
	CollateralNewsletters         = "newsletters"
	CollateralDEI                 = "dei_statements"
	CollateralLogo                = "company_logo"
)

// Data is the generated campaign summary handed to the editor
type Data struct {
	Name                  string      `json:"name"`
	Type                  Type        `json:"type"`
	Goal                  string      `json:"goal"`
	TargetAudience        string      `json:"targetAudience"`
	Tone                  Tone        `json:"tone"`
	EmailLength           EmailLength `json:"emailLength"`
	AdditionalContext     string      `json:"additionalContext,omitempty"`
	EnablePersonalization bool        `json:"enablePersonalization"`
	CompanyName           string      `json:"companyName,omitempty"`
	RecruiterName         string      `json:"recruiterName,omitempty"`
	MatchedExampleID      string      `json:"matchedExampleId,omitempty"`
	ContentSources        []string    `json:"contentSources,omitempty"`
}

// Settings are per-campaign switches persisted with the record
type Settings struct {
	EnablePersonalization bool `json:"enablePersonalization"`
}

// Stats are delivery counters persisted with the record
type Stats struct {
	Sent    int `json:"sent"`
	Opened  int `json:"opened"`
	Replied int `json:"replied"`
}

// Record is the persisted form of a campaign
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ProjectID      string    `json:"project_id"`
	Name           string    `json:"name"`
	Type           Type      `json:"type"`
	Status         string    `json:"status"`
	TargetAudience string    `json:"target_audience"`
	CampaignGoal   string    `json:"campaign_goal"`
	ContentSources []string  `json:"content_sources"`
	AIInstructions *string   `json:"ai_instructions"`
	Tone           Tone      `json:"tone"`
	CompanyName    string    `json:"company_name"`
	RecruiterName  string    `json:"recruiter_name"`
	Settings       Settings  `json:"settings"`
	Stats          Stats     `json:"stats"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewRecord builds a draft record from generated campaign data
func NewRecord(userID, projectID string, d Data) *Record {
	rec := &Record{
		UserID:         userID,
		ProjectID:      projectID,
		Name:           d.Name,
		Type:           d.Type,
		Status:         StatusDraft,
		TargetAudience: d.TargetAudience,
		CampaignGoal:   d.Goal,
		ContentSources: d.ContentSources,
		Tone:           d.Tone,
		CompanyName:    d.CompanyName,
		RecruiterName:  d.RecruiterName,
		Settings:       Settings{EnablePersonalization: d.EnablePersonalization},
	}
	if d.AdditionalContext != "" {
		ctx := d.AdditionalContext
		rec.AIInstructions = &ctx
	}
	if rec.ContentSources == nil {
		rec.ContentSources = []string{}
	}
	return rec
}

// StepRow is the persisted form of an email step
type StepRow struct {
	ID         int64     `json:"id"`
	CampaignID string    `json:"campaign_id"`
	StepOrder  int       `json:"step_order"`
	Type       StepType  `json:"type"`
	Subject    string    `json:"subject"`
	Content    string    `json:"content"`
	Delay      int       `json:"delay"`
	DelayUnit  DelayUnit `json:"delay_unit"`
}

// ToRows serializes steps in send order with a 1-based step_order
func ToRows(campaignID string, steps []EmailStep) []StepRow {
	rows := make([]StepRow, 0, len(steps))
	for i, s := range steps {
		rows = append(rows, StepRow{
			CampaignID: campaignID,
			StepOrder:  i + 1,
			Type:       s.Type,
			Subject:    s.Subject,
			Content:    s.Content,
			Delay:      s.Delay,
			DelayUnit:  s.DelayUnit,
		})
	}
	return rows
}

// FromRows restores editor steps from persisted rows, ordered by step_order
func FromRows(rows []StepRow) []EmailStep {
	steps := make([]EmailStep, 0, len(rows))
	for _, r := range rows {
		steps = append(steps, EmailStep{
			ID:        r.StepOrder,
			Type:      r.Type,
			Subject:   r.Subject,
			Content:   r.Content,
			Delay:     r.Delay,
			DelayUnit: r.DelayUnit,
		})
	}
	return steps
}
