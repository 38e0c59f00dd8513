package api

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured error response for requests the protocol
// does not describe (malformed bodies, unknown routes, panics).
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// Client-facing protocol messages. Internal error text never reaches the
// client.
const (
	msgServerError        = "Server error"
	msgWrongCredentials   = "Wrong username or password"
	msgLocationFailed     = "Location Check Failed"
	msgInvalidCoordinates = "Invalid coordinates"
	msgNoSession          = "User not found in the logged in users list,try logging in again"
	msgIntegrityFailed    = "Integrity Check Failed"
	msgNotAuthorized      = "Not Authorized"
	msgNotPermitted       = "Not Permitted"
	msgNotEntitled        = "File not accessible to user"
	msgBlobMissing        = "File not found on server"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDetail writes the {"detail": ...} shape used by the file endpoints.
func writeDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}
