package geofence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
)

// FromConfig builds the configured polygon. A polygon file takes precedence
// over inline vertices.
func FromConfig(cfg config.GeofenceConfig) (*Polygon, error) {
	if cfg.PolygonFile != "" {
		return LoadFile(cfg.PolygonFile)
	}
	if len(cfg.Vertices) == 0 {
		return nil, fmt.Errorf("%w: no polygon file or vertices configured", ErrConfiguration)
	}
	points := make([]Point, len(cfg.Vertices))
	for i, v := range cfg.Vertices {
		points[i] = Point{Lat: v.Lat, Lon: v.Lon}
	}
	return NewPolygon(points)
}

// LoadFile reads a polygon from disk. Supported layouts:
//
//	{"12.0": "77.0", "12.1": "77.0", ...}   // areamap.json, latitude keys in document order
//	[{"lat": 12.0, "lon": 77.0}, ...]       // JSON array
//	- {lat: 12.0, lon: 77.0}                // YAML array (.yaml/.yml)
func LoadFile(path string) (*Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading polygon file: %w", ErrConfiguration, err)
	}

	var points []Point
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".yaml" || ext == ".yml":
		points, err = parseYAMLVertices(data)
	default:
		points, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return NewPolygon(points)
}

// ParseJSON decodes vertices from either JSON layout accepted by LoadFile.
func ParseJSON(data []byte) ([]Point, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty polygon source", ErrConfiguration)
	}
	switch trimmed[0] {
	case '{':
		return parseAreaMap(trimmed)
	case '[':
		var raw []rawVertex
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return rawToPoints(raw)
	default:
		return nil, fmt.Errorf("%w: polygon source must be a JSON object or array", ErrConfiguration)
	}
}

// parseAreaMap walks the object token by token so vertex order follows the
// document rather than Go map iteration.
func parseAreaMap(data []byte) ([]Point, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	var points []Point
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		key, _ := keyTok.(string)

		lat, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: latitude %q: %w", ErrConfiguration, key, err)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		lon, err := tokenFloat(valTok)
		if err != nil {
			return nil, fmt.Errorf("%w: longitude for latitude %q: %w", ErrConfiguration, key, err)
		}

		points = append(points, Point{Lat: lat, Lon: lon})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after polygon object", ErrConfiguration)
	}
	return points, nil
}

func tokenFloat(tok json.Token) (float64, error) {
	switch v := tok.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("unexpected token %v", tok)
	}
}

// coordinate accepts a JSON or YAML number or a numeric string.
type coordinate float64

func (c *coordinate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*c = coordinate(f)
	return nil
}

func (c *coordinate) UnmarshalYAML(node *yaml.Node) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64)
	if err != nil {
		return err
	}
	*c = coordinate(f)
	return nil
}

type rawVertex struct {
	Lat *coordinate `json:"lat" yaml:"lat"`
	Lon *coordinate `json:"lon" yaml:"lon"`
}

func rawToPoints(raw []rawVertex) ([]Point, error) {
	points := make([]Point, len(raw))
	for i, r := range raw {
		if r.Lat == nil || r.Lon == nil {
			return nil, fmt.Errorf("%w: vertex %d needs lat and lon", ErrConfiguration, i)
		}
		points[i] = Point{Lat: float64(*r.Lat), Lon: float64(*r.Lon)}
	}
	return points, nil
}

func parseYAMLVertices(data []byte) ([]Point, error) {
	var raw []rawVertex
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return rawToPoints(raw)
}
