package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/geogate/internal/audit"
	"github.com/nerrad567/geogate/internal/session"
)

type shaCheckRequest struct {
	Username string `json:"username"`
	SHA256   string `json:"sha256"`
}

type errorResponse struct {
	Error *string `json:"error"`
}

// handleShaCheck compares the client's signing certificate hash with the
// reference. A mismatch revokes the session.
func (s *Server) handleShaCheck(w http.ResponseWriter, r *http.Request) {
	var req shaCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	_, err := s.sessions.Evaluate(ctx, req.Username, func(string) error {
		if !s.integrity.Verify(req.SHA256) {
			return session.ErrIntegrityMismatch
		}
		return nil
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, errorResponse{})
	case errors.Is(err, session.ErrNoSession):
		writeJSON(w, http.StatusOK, errorResponse{Error: strPtr(msgNoSession)})
	case errors.Is(err, session.ErrIntegrityMismatch):
		s.audit.Record(ctx, audit.ActionIntegrityRejected, req.Username, nil)
		writeJSON(w, http.StatusOK, errorResponse{Error: strPtr(msgIntegrityFailed)})
	default:
		s.logger.Error("session evaluation failed", "username", req.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: strPtr(msgServerError)})
	}
}

type checkFailedRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// handleCheckFailed records a check the client failed locally. The session
// is left alone.
func (s *Server) handleCheckFailed(w http.ResponseWriter, r *http.Request) {
	var req checkFailedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.logger.Warn("client reported check failure", "username", req.Username, "message", req.Message)
	s.audit.Record(r.Context(), audit.ActionClientCheckFailed, req.Username, map[string]any{
		"message": req.Message,
	})
	writeJSON(w, http.StatusOK, errorResponse{})
}
