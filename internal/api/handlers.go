package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/catalog"
	"github.com/foxzi/recruitflow/internal/conversation"
	"github.com/foxzi/recruitflow/internal/session"
	"github.com/foxzi/recruitflow/internal/studio"
)

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// StartSessionRequest is the request body for POST /sessions
type StartSessionRequest struct {
	ProjectID string `json:"projectId"`
}

// MessageRequest is the request body for POST /sessions/{id}/messages
type MessageRequest struct {
	Message        string   `json:"message"`
	RecentSearches []string `json:"recentSearches,omitempty"`
}

// MessageResponse is the response for POST /sessions/{id}/messages
type MessageResponse struct {
	conversation.Result
	SessionID string `json:"sessionId"`
	Revision  int64  `json:"revision"`
}

// GenerateResponse is the response for POST /sessions/{id}/generate
type GenerateResponse struct {
	SessionID    string               `json:"sessionId"`
	CampaignData *campaign.Data       `json:"campaignData"`
	EmailSteps   []campaign.EmailStep `json:"emailSteps"`
	Source       string               `json:"source"`
}

// ListResponse wraps paginated lists
type ListResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total,omitempty"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleCatalog handles GET /api/v1/catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	examples := s.catalog.All()
	if typ := r.URL.Query().Get("type"); typ != "" {
		filtered := []catalog.Example{}
		for _, ex := range examples {
			if string(ex.CampaignType) == typ {
				filtered = append(filtered, ex)
			}
		}
		examples = filtered
	}
	s.sendJSON(w, http.StatusOK, examples)
}

// handleStartSession handles POST /api/v1/sessions
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = r.Header.Get("X-Project-ID")
	}

	caller := CallerFromContext(r.Context())
	sess, err := s.studio.StartSession(r.Context(), caller.UserID, req.ProjectID)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, sess)
}

// handleListSessions handles GET /api/v1/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := CallerFromContext(r.Context())
	sessions, err := s.studio.ListSessions(r.Context(), caller.UserID, limit, offset)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	s.sendJSON(w, http.StatusOK, ListResponse{Items: sessions, Limit: limit, Offset: offset})
}

// handleGetSession handles GET /api/v1/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	sess, err := s.studio.GetSession(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, sess)
}

// handleDeleteSession handles DELETE /api/v1/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	if err := s.studio.DeleteSession(r.Context(), caller.UserID, chi.URLParam(r, "id")); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage handles POST /api/v1/sessions/{id}/messages
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !s.decode(w, r, &req) {
		return
	}

	caller := CallerFromContext(r.Context())
	reply, err := s.studio.SendMessage(r.Context(), caller.UserID, chi.URLParam(r, "id"), req.Message, req.RecentSearches)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, MessageResponse{
		Result:    reply.Turn,
		SessionID: reply.Session.ID,
		Revision:  reply.Session.Revision,
	})
}

// handleGenerate handles POST /api/v1/sessions/{id}/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	sess, err := s.studio.Generate(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, GenerateResponse{
		SessionID:    sess.ID,
		CampaignData: sess.Campaign,
		EmailSteps:   sess.Steps,
		Source:       sess.GeneratedBy,
	})
}

// handleSave handles POST /api/v1/sessions/{id}/save
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req studio.SaveOptions
	if !s.decode(w, r, &req) {
		return
	}

	caller := CallerFromContext(r.Context())
	rec, err := s.studio.Save(r.Context(), caller.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, rec)
}

// CampaignResponse is a saved campaign with its steps
type CampaignResponse struct {
	Campaign *campaign.Record    `json:"campaign"`
	Steps    []campaign.EmailStep `json:"steps"`
}

// handleListCampaigns handles GET /api/v1/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := CallerFromContext(r.Context())
	records, total, err := s.studio.ListCampaigns(r.Context(), caller.UserID, r.URL.Query().Get("projectId"), limit, offset)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []campaign.Record{}
	}
	s.sendJSON(w, http.StatusOK, ListResponse{Items: records, Total: total, Limit: limit, Offset: offset})
}

// handleGetCampaign handles GET /api/v1/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	rec, steps, err := s.studio.GetCampaign(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, CampaignResponse{Campaign: rec, Steps: steps})
}

// handleOpenCampaign handles POST /api/v1/campaigns/{id}/open
func (s *Server) handleOpenCampaign(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	sess, err := s.studio.OpenCampaign(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, sess)
}

// handleListCollateral handles GET /api/v1/projects/{projectID}/collateral
func (s *Server) handleListCollateral(w http.ResponseWriter, r *http.Request) {
	items, err := s.studio.ListCollateral(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, items)
}

// handleAddCollateral handles POST /api/v1/projects/{projectID}/collateral
func (s *Server) handleAddCollateral(w http.ResponseWriter, r *http.Request) {
	var c campaign.Collateral
	if !s.decode(w, r, &c) {
		return
	}
	c.ProjectID = chi.URLParam(r, "projectID")

	caller := CallerFromContext(r.Context())
	if err := s.studio.AddCollateral(r.Context(), caller.UserID, &c); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, c)
}

// stepID parses the {stepID} route parameter
func (s *Server) stepID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "stepID"))
	if err != nil || id < 1 {
		s.sendError(w, http.StatusBadRequest, "stepID must be a positive number")
		return 0, false
	}
	return id, true
}
