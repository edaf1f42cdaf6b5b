package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adaptiq/app"
	"adaptiq/domain/core"
	apperrors "adaptiq/internal/errors"
)

type beginSessionRequest struct {
	UserID string `json:"user_id"`
}

type submitResponseRequest struct {
	ItemID    string   `json:"item_id"`
	Correct   *bool    `json:"correct"`
	TimeSpent *float64 `json:"time_spent_seconds,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	report, err := s.readiness.Evaluate(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	var req beginSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}
	userID, err := core.ParseUserID(req.UserID)
	if err != nil {
		s.writeError(w, apperrors.InvalidInput("user_id is required"))
		return
	}

	result, err := s.assessment.BeginSession(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	sessionID, err := core.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, apperrors.InvalidInput("session id is required"))
		return
	}

	var req submitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}
	itemID, err := core.ParseItemID(req.ItemID)
	if err != nil {
		s.writeError(w, apperrors.InvalidInput("item_id is required"))
		return
	}
	if req.Correct == nil {
		s.writeError(w, apperrors.InvalidInput("correct is required"))
		return
	}

	result, err := s.assessment.SubmitResponse(r.Context(), app.SubmitInput{
		SessionID: sessionID,
		ItemID:    itemID,
		Correct:   *req.Correct,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, err := core.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, apperrors.InvalidInput("session id is required"))
		return
	}

	progress, err := s.assessment.GetProgress(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	sessionID, err := core.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, apperrors.InvalidInput("session id is required"))
		return
	}

	report, err := s.assessment.GetResult(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encoding response: %v", err)
	}
}

// writeError maps domain and application errors onto HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := apperrors.CodeInternalError

	switch {
	case apperrors.GetCode(err) == apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
		code = apperrors.CodeInvalidInput
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
		code = apperrors.CodeNotFound
	case core.IsConflictError(err):
		status = http.StatusConflict
		code = apperrors.CodeConflict
	case core.IsValidationError(err):
		status = http.StatusBadRequest
		code = apperrors.CodeValidationError
	case core.IsPoolExhaustedError(err):
		status = http.StatusServiceUnavailable
		code = apperrors.CodePoolExhausted
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}
