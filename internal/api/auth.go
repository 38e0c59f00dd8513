package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/geogate/internal/audit"
)

// loginRequest is the request body for POST /login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /login. The device id is not
// returned here; the client obtains it from /check-location.
type loginResponse struct {
	Login string  `json:"login"`
	Error *string `json:"error"`
}

func strPtr(s string) *string { return &s }

// handleLogin verifies credentials and issues a fresh device session,
// superseding any previous device for the user.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	ok, err := s.credentials.Verify(ctx, req.Username, req.Password)
	if err != nil {
		s.logger.Error("credential store failure", "username", req.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, loginResponse{Login: "fail", Error: strPtr(msgServerError)})
		return
	}
	if !ok {
		s.audit.Record(ctx, audit.ActionLoginFailed, req.Username, nil)
		writeJSON(w, http.StatusOK, loginResponse{Login: "fail", Error: strPtr(msgWrongCredentials)})
		return
	}

	if _, err := s.sessions.Issue(ctx, req.Username); err != nil {
		s.logger.Error("issuing session failed", "username", req.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, loginResponse{Login: "fail", Error: strPtr(msgServerError)})
		return
	}

	s.audit.Record(ctx, audit.ActionLogin, req.Username, nil)
	writeJSON(w, http.StatusOK, loginResponse{Login: "pass"})
}
