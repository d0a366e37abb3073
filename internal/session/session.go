// Package session stores conversation and editor state per draft in bbolt.
package session

import (
	"time"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/conversation"
)

// MaxHistory bounds the chat lines kept on a session
const MaxHistory = 50

// Session is one campaign being authored
type Session struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	ProjectID      string                 `json:"project_id"`
	State          conversation.State     `json:"state"`
	Draft          campaign.Draft         `json:"draft"`
	History        []conversation.Message `json:"history"`
	RecentSearches []string               `json:"recent_searches,omitempty"`

	Campaign        *campaign.Data       `json:"campaign,omitempty"`
	Steps           []campaign.EmailStep `json:"steps,omitempty"`
	GeneratedBy     string               `json:"generated_by,omitempty"`
	SavedCampaignID string               `json:"saved_campaign_id,omitempty"`

	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddMessage appends a chat line, dropping the oldest past MaxHistory
func (s *Session) AddMessage(role, content string) {
	s.History = append(s.History, conversation.Message{Role: role, Content: content})
	if over := len(s.History) - MaxHistory; over > 0 {
		s.History = append([]conversation.Message(nil), s.History[over:]...)
	}
}

// Generated reports whether the campaign has been generated
func (s *Session) Generated() bool {
	return s.Campaign != nil
}

// ListFilter narrows List
type ListFilter struct {
	UserID string
	Limit  int
	Offset int
}
