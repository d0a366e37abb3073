package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/editor"
	"github.com/foxzi/recruitflow/internal/generator"
	"github.com/foxzi/recruitflow/internal/mailer"
	"github.com/foxzi/recruitflow/internal/repository"
	"github.com/foxzi/recruitflow/internal/session"
	"github.com/foxzi/recruitflow/internal/studio"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
	Example  string   `json:"matchedExampleId,omitempty"`
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}

// decode reads a JSON request body. An empty body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses. Internal
// errors are logged here and answered with a generic message.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *campaign.ValidationError
		noGuideline *generator.NoGuidelineError
		delivery    *mailer.DeliveryError
	)

	switch {
	case errors.As(err, &validation):
		s.sendJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:    "Campaign is not valid",
			Problems: validation.Problems,
		})
	case errors.As(err, &noGuideline):
		s.sendJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   noGuideline.Error(),
			Example: noGuideline.MatchedExampleID,
		})
	case errors.Is(err, studio.ErrForbidden):
		s.sendError(w, http.StatusForbidden, "Forbidden")
	case studio.IsNotFound(err):
		s.sendError(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, studio.ErrEmptyInput),
		errors.Is(err, editor.ErrInvalidIndex),
		errors.Is(err, editor.ErrInvalidStep),
		errors.Is(err, repository.ErrInvalidCollateral):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, studio.ErrNotReady),
		errors.Is(err, studio.ErrNotGenerated),
		errors.Is(err, studio.ErrConversationClosed),
		errors.Is(err, session.ErrConflict):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mailer.ErrDisabled):
		s.sendError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &delivery):
		if delivery.Stage == "rcpt" {
			s.sendError(w, http.StatusBadRequest, delivery.Message)
			return
		}
		s.logger.Warn("test email delivery failed", "path", r.URL.Path, "error", err)
		s.sendError(w, http.StatusBadGateway, "Test email could not be delivered")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "Session not found"
	case errors.Is(err, editor.ErrStepNotFound):
		return "Step not found"
	default:
		return "Campaign not found"
	}
}

// pagination reads limit and offset query parameters
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			return 0, 0, fmt.Errorf("limit must be between 1 and 500")
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative number")
		}
	}
	return limit, offset, nil
}
