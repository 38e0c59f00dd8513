package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/geogate/internal/audit"
	"github.com/nerrad567/geogate/internal/geofence"
	"github.com/nerrad567/geogate/internal/infrastructure/influxdb"
	"github.com/nerrad567/geogate/internal/session"
)

// checkLocationRequest is the request body for POST /check-location.
// Coordinates arrive as strings from the mobile client and as numbers from
// other callers.
type checkLocationRequest struct {
	Username  string          `json:"username"`
	Latitude  json.RawMessage `json:"latitude"`
	Longitude json.RawMessage `json:"longitude"`
	Altitude  json.RawMessage `json:"altitude"`
}

type checkLocationResponse struct {
	Error    *string `json:"Error"`
	DeviceID *string `json:"device_id"`
}

// parseCoordinate reads a JSON number or a numeric JSON string.
func parseCoordinate(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing coordinate")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	}
	return strconv.ParseFloat(strings.TrimSpace(text), 64)
}

// handleCheckLocation tests the reported position against the geofence. A
// position outside the fence revokes the session; inside, the live device id
// is returned to the client. Altitude is recorded but never tested.
func (s *Server) handleCheckLocation(w http.ResponseWriter, r *http.Request) {
	var req checkLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var point geofence.Point
	var latErr, lonErr error
	point.Lat, latErr = parseCoordinate(req.Latitude)
	point.Lon, lonErr = parseCoordinate(req.Longitude)
	if latErr != nil || lonErr != nil || !point.Valid() {
		writeJSON(w, http.StatusBadRequest, checkLocationResponse{Error: strPtr(msgInvalidCoordinates)})
		return
	}
	altitude, _ := parseCoordinate(req.Altitude) // informational only

	ctx := r.Context()
	inside := s.geofence.Contains(point)
	deviceID, err := s.sessions.Evaluate(ctx, req.Username, func(string) error {
		if !inside {
			return session.ErrLocationMismatch
		}
		return nil
	})
	switch {
	case errors.Is(err, session.ErrNoSession):
		writeJSON(w, http.StatusOK, checkLocationResponse{Error: strPtr(msgNoSession)})
		return
	case err != nil && !errors.Is(err, session.ErrLocationMismatch):
		s.logger.Error("session evaluation failed", "username", req.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, checkLocationResponse{Error: strPtr(msgServerError)})
		return
	}

	if s.locations != nil {
		s.locations.WriteLocationReport(influxdb.LocationReport{
			Username: req.Username,
			Lat:      point.Lat,
			Lon:      point.Lon,
			Alt:      altitude,
			Inside:   inside,
			At:       time.Now(),
		})
	}

	if !inside {
		s.audit.Record(ctx, audit.ActionLocationRejected, req.Username, map[string]any{
			"latitude":  point.Lat,
			"longitude": point.Lon,
		})
		writeJSON(w, http.StatusOK, checkLocationResponse{Error: strPtr(msgLocationFailed)})
		return
	}

	writeJSON(w, http.StatusOK, checkLocationResponse{DeviceID: &deviceID})
}
