package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/geogate/internal/audit"
	"github.com/nerrad567/geogate/internal/files"
	"github.com/nerrad567/geogate/internal/session"
)

type getFileRequest struct {
	Username string `json:"username"`
	DeviceID string `json:"device_id"`
	Filename string `json:"filename"`
}

// checkDevice runs the session gate for the file endpoints and writes the
// failure response itself. It reports whether the handler may continue.
func (s *Server) checkDevice(ctx context.Context, w http.ResponseWriter, username, deviceID string) bool {
	err := s.sessions.Check(ctx, username, deviceID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, session.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: strPtr(msgNotPermitted)})
	default:
		s.logger.Error("session check failed", "username", username, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
	}
	return false
}

// handleListFiles returns the entitlements of an authorized device's user.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username, deviceID := q.Get("username"), q.Get("device_id")

	ctx := r.Context()
	if !s.checkDevice(ctx, w, username, deviceID) {
		return
	}

	ents, err := s.files.List(ctx, username)
	if err != nil {
		s.logger.Error("listing entitlements failed", "username", username, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, ents)
}

// handleGetFile streams an entitled file. One-time entitlements are already
// consumed by the time the first byte is written.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	var req getFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	if !s.checkDevice(ctx, w, req.Username, req.DeviceID) {
		return
	}

	blob, ent, err := s.files.Fetch(ctx, req.Username, req.Filename)
	switch {
	case errors.Is(err, files.ErrNotEntitled):
		writeDetail(w, http.StatusForbidden, msgNotEntitled)
		return
	case errors.Is(err, files.ErrBlobMissing):
		s.logger.Warn("entitled file missing from storage", "username", req.Username, "filename", req.Filename)
		writeDetail(w, http.StatusNotFound, msgBlobMissing)
		return
	case err != nil:
		s.logger.Error("fetching file failed", "username", req.Username, "filename", req.Filename, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	defer blob.Body.Close()

	if ent.ViewType == files.ViewOneTime {
		s.audit.Record(ctx, audit.ActionOneTimeConsumed, req.Username, map[string]any{"filename": ent.Filename})
	}
	s.logger.Info("serving file", "username", req.Username, "filename", ent.Filename, "viewtype", ent.ViewType)

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", contentDisposition(blob.Name))
	if blob.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(blob.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, blob.Body)
	if err != nil {
		s.logger.Warn("file transfer interrupted", "username", req.Username, "filename", ent.Filename, "bytes", n, "error", err)
		return
	}
	s.audit.Record(ctx, audit.ActionFileServed, req.Username, map[string]any{
		"filename": ent.Filename,
		"viewtype": string(ent.ViewType),
		"bytes":    n,
	})
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func contentDisposition(name string) string {
	return `attachment; filename="` + dispositionEscaper.Replace(name) + `"`
}
