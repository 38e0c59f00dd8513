package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementLocation is the measurement holding check-location reports.
const MeasurementLocation = "location_reports"

// LocationReport is one check-location submission.
type LocationReport struct {
	Username string
	Lat      float64
	Lon      float64
	Alt      float64
	Inside   bool
	At       time.Time
}

// WriteLocationReport queues one point for a check-location call.
// The point is tagged by username and outcome; coordinates are fields.
func (c *Client) WriteLocationReport(r LocationReport) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(locationPoint(r))
}

func locationPoint(r LocationReport) *write.Point {
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}

	outcome := "outside"
	if r.Inside {
		outcome = "inside"
	}

	return write.NewPoint(
		MeasurementLocation,
		map[string]string{
			"username": r.Username,
			"outcome":  outcome,
		},
		map[string]interface{}{
			"lat":    r.Lat,
			"lon":    r.Lon,
			"alt":    r.Alt,
			"inside": r.Inside,
		},
		at,
	)
}
