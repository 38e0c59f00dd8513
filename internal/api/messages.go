package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/geogate/internal/session"
)

// messageRequest is the request body for POST /messages. The original
// client sends Error as the literal string "None" when nothing failed.
type messageRequest struct {
	Username string  `json:"username"`
	DeviceID string  `json:"device_id"`
	Error    *string `json:"Error"`
	Message  string  `json:"message"`
}

type messageResponse struct {
	Username string  `json:"username"`
	DeviceID string  `json:"device_id"`
	Error    *string `json:"Error"`
	Message  *string `json:"Message"`
}

// reportedError returns the client-reported error, if there is one.
func (m messageRequest) reportedError() (string, bool) {
	if m.Error == nil {
		return "", false
	}
	e := strings.TrimSpace(*m.Error)
	if e == "" || e == "None" {
		return "", false
	}
	return *m.Error, true
}

// handleMessages echoes a message from an authorized device. A wrong device
// id or a client-reported error revokes the session.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	resp := messageResponse{Username: req.Username, DeviceID: req.DeviceID}
	ctx := r.Context()

	var cause error
	reported, hasReport := req.reportedError()
	if hasReport {
		cause = session.ErrClientReported
	}

	err := s.sessions.Report(ctx, req.Username, req.DeviceID, cause)
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		resp.Error = strPtr(msgNotAuthorized)
		writeJSON(w, http.StatusOK, resp)
		return
	case errors.Is(err, session.ErrClientReported):
		s.logger.Warn("client reported error", "username", req.Username, "reported", reported)
		resp.Message = strPtr("Received the error '" + reported + "'")
		writeJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		s.logger.Error("session check failed", "username", req.Username, "error", err)
		resp.Error = strPtr(msgServerError)
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	s.logger.Info("message received", "username", req.Username, "message", req.Message)
	resp.Message = strPtr("Message '" + req.Message + "' Received")
	writeJSON(w, http.StatusOK, resp)
}
