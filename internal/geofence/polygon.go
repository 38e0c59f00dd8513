package geofence

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfiguration is returned when the polygon source is missing or malformed.
var ErrConfiguration = errors.New("geofence configuration error")

// epsilon bounds the cross-product residue treated as collinear.
const epsilon = 1e-12

// Point is a location in (latitude, longitude) order, as clients report it.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether both coordinates are finite and within range.
func (p Point) Valid() bool {
	return finite(p.Lat) && finite(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}

// vertex is a planar coordinate with x = longitude and y = latitude.
// All geometry below works in this order.
type vertex struct {
	x, y float64
}

func (p Point) planar() vertex {
	return vertex{x: p.Lon, y: p.Lat}
}

// Polygon is an immutable simple polygon. It is safe for concurrent use.
type Polygon struct {
	ring []vertex
}

// NewPolygon validates vertices and builds a polygon from them.
// A trailing vertex equal to the first is treated as an explicit ring closure.
func NewPolygon(vertices []Point) (*Polygon, error) {
	ring := make([]vertex, 0, len(vertices))
	for i, p := range vertices {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: vertex %d (%v, %v) is not a valid coordinate", ErrConfiguration, i, p.Lat, p.Lon)
		}
		v := p.planar()
		if len(ring) > 0 && ring[len(ring)-1] == v {
			continue
		}
		ring = append(ring, v)
	}
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}

	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: polygon needs at least 3 distinct vertices, got %d", ErrConfiguration, len(ring))
	}
	if math.Abs(signedArea(ring)) < epsilon {
		return nil, fmt.Errorf("%w: polygon has zero area", ErrConfiguration)
	}
	if i, j, ok := selfIntersection(ring); ok {
		return nil, fmt.Errorf("%w: edges %d and %d intersect", ErrConfiguration, i, j)
	}

	return &Polygon{ring: ring}, nil
}

// Contains reports whether p lies inside the polygon or on its boundary.
func (g *Polygon) Contains(p Point) bool {
	if g == nil || !finite(p.Lat) || !finite(p.Lon) {
		return false
	}
	q := p.planar()

	n := len(g.ring)
	for i := range n {
		if onSegment(q, g.ring[i], g.ring[(i+1)%n]) {
			return true
		}
	}

	// Ray casting towards +x.
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := g.ring[i], g.ring[j]
		if (a.y > q.y) != (b.y > q.y) {
			xCross := (b.x-a.x)*(q.y-a.y)/(b.y-a.y) + a.x
			if q.x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// Vertices returns the polygon corners in (latitude, longitude) order.
func (g *Polygon) Vertices() []Point {
	out := make([]Point, len(g.ring))
	for i, v := range g.ring {
		out[i] = Point{Lat: v.y, Lon: v.x}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func cross(o, a, b vertex) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

func signedArea(ring []vertex) float64 {
	var sum float64
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		sum += a.x*b.y - b.x*a.y
	}
	return sum / 2
}

// onSegment reports whether q lies on the closed segment ab.
func onSegment(q, a, b vertex) bool {
	if math.Abs(cross(a, b, q)) > epsilon {
		return false
	}
	return q.x >= math.Min(a.x, b.x)-epsilon && q.x <= math.Max(a.x, b.x)+epsilon &&
		q.y >= math.Min(a.y, b.y)-epsilon && q.y <= math.Max(a.y, b.y)+epsilon
}

func orientation(a, b, c vertex) int {
	v := cross(a, b, c)
	switch {
	case v > epsilon:
		return 1
	case v < -epsilon:
		return -1
	default:
		return 0
	}
}

// segmentsIntersect reports whether closed segments p1p2 and p3p4 share a point.
func segmentsIntersect(p1, p2, p3, p4 vertex) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if d1 != d2 && d3 != d4 && d1 != 0 && d2 != 0 && d3 != 0 && d4 != 0 {
		return true
	}
	return (d1 == 0 && onSegment(p1, p3, p4)) ||
		(d2 == 0 && onSegment(p2, p3, p4)) ||
		(d3 == 0 && onSegment(p3, p1, p2)) ||
		(d4 == 0 && onSegment(p4, p1, p2))
}

// selfIntersection returns the first pair of non-adjacent edges that touch.
func selfIntersection(ring []vertex) (int, int, bool) {
	n := len(ring)
	for i := range n {
		a1, a2 := ring[i], ring[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				// Adjacent edges share a vertex by construction.
				if collinearOverlap(a1, a2, ring[j], ring[(j+1)%n]) {
					return i, j, true
				}
				continue
			}
			if segmentsIntersect(a1, a2, ring[j], ring[(j+1)%n]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// collinearOverlap detects adjacent edges that fold back over each other.
func collinearOverlap(a1, a2, b1, b2 vertex) bool {
	if orientation(a1, a2, b1) != 0 || orientation(a1, a2, b2) != 0 {
		return false
	}
	// Shared vertex is fine; any further common point is a fold.
	shared := a2
	if a1 == b2 {
		shared = a1
	}
	other := b2
	if b1 != shared {
		other = b1
	}
	if other == shared {
		return false
	}
	mid := vertex{x: (shared.x + other.x) / 2, y: (shared.y + other.y) / 2}
	return onSegment(mid, a1, a2)
}
