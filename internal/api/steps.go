package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/editor"
	"github.com/foxzi/recruitflow/internal/template"
)

// AddStepRequest is the request body for POST /sessions/{id}/steps
type AddStepRequest struct {
	Type campaign.StepType `json:"type"`
}

// MoveStepRequest is the request body for POST /steps/{stepID}/move
type MoveStepRequest struct {
	ToIndex *int `json:"toIndex"`
}

// CandidateRequest carries the preview candidate
type CandidateRequest struct {
	Candidate template.Candidate `json:"candidate"`
}

// TestEmailRequest is the request body for POST /steps/{stepID}/test-email
type TestEmailRequest struct {
	To        string             `json:"to"`
	Candidate template.Candidate `json:"candidate"`
}

// StepResponse returns the changed step with the whole sequence
type StepResponse struct {
	Step  *campaign.EmailStep  `json:"step,omitempty"`
	Steps []campaign.EmailStep `json:"steps"`
}

// handleAddStep handles POST /api/v1/sessions/{id}/steps
func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	var req AddStepRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = campaign.StepEmail
	}

	caller := CallerFromContext(r.Context())
	sess, step, err := s.studio.AddStep(r.Context(), caller.UserID, chi.URLParam(r, "id"), req.Type)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, StepResponse{Step: &step, Steps: sess.Steps})
}

// handleUpdateStep handles PATCH /api/v1/sessions/{id}/steps/{stepID}
func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := s.stepID(w, r)
	if !ok {
		return
	}
	var patch editor.Patch
	if !s.decode(w, r, &patch) {
		return
	}

	caller := CallerFromContext(r.Context())
	sess, step, err := s.studio.UpdateStep(r.Context(), caller.UserID, chi.URLParam(r, "id"), stepID, patch)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, StepResponse{Step: &step, Steps: sess.Steps})
}

// handleRemoveStep handles DELETE /api/v1/sessions/{id}/steps/{stepID}
func (s *Server) handleRemoveStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := s.stepID(w, r)
	if !ok {
		return
	}

	caller := CallerFromContext(r.Context())
	sess, err := s.studio.RemoveStep(r.Context(), caller.UserID, chi.URLParam(r, "id"), stepID)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, StepResponse{Steps: sess.Steps})
}

// handleDuplicateStep handles POST /api/v1/sessions/{id}/steps/{stepID}/duplicate
func (s *Server) handleDuplicateStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := s.stepID(w, r)
	if !ok {
		return
	}

	caller := CallerFromContext(r.Context())
	sess, step, err := s.studio.DuplicateStep(r.Context(), caller.UserID, chi.URLParam(r, "id"), stepID)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, StepResponse{Step: &step, Steps: sess.Steps})
}

// handleMoveStep handles POST /api/v1/sessions/{id}/steps/{stepID}/move
func (s *Server) handleMoveStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := s.stepID(w, r)
	if !ok {
		return
	}
	var req MoveStepRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ToIndex == nil {
		s.sendError(w, http.StatusBadRequest, "toIndex is required")
		return
	}

	caller := CallerFromContext(r.Context())
	sess, err := s.studio.MoveStep(r.Context(), caller.UserID, chi.URLParam(r, "id"), stepID, *req.ToIndex)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, StepResponse{Steps: sess.Steps})
}

// handlePreviewStep handles POST /api/v1/sessions/{id}/steps/{stepID}/preview
func (s *Server) handlePreviewStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := s.stepID(w, r)
	if !ok {
		return
	}
	var req CandidateRequest
	if !s.decode(w, r, &req) {
		return
	}

	caller := CallerFromContext(r.Context())
	preview, err := s.studio.PreviewStep(r.Context(), caller.UserID, chi.URLParam(r, "id"), stepID, req.Candidate)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, preview)
}

// handlePersonalizeStep handles POST /api/v1/sessions/{id}/steps/{stepID}/personalize
func (s *Server) handlePersonalizeStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := s.stepID(w, r)
	if !ok {
		return
	}
	var req CandidateRequest
	if !s.decode(w, r, &req) {
		return
	}

	caller := CallerFromContext(r.Context())
	preview, err := s.studio.PersonalizeStep(r.Context(), caller.UserID, chi.URLParam(r, "id"), stepID, req.Candidate)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, preview)
}

// handleSendTestEmail handles POST /api/v1/sessions/{id}/steps/{stepID}/test-email
func (s *Server) handleSendTestEmail(w http.ResponseWriter, r *http.Request) {
	stepID, ok := s.stepID(w, r)
	if !ok {
		return
	}
	var req TestEmailRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.To == "" {
		s.sendError(w, http.StatusBadRequest, "to is required")
		return
	}

	caller := CallerFromContext(r.Context())
	id, err := s.studio.SendTestEmail(r.Context(), caller.UserID, chi.URLParam(r, "id"), stepID, req.To, req.Candidate)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusAccepted, map[string]string{"messageId": id, "status": "sent"})
}
