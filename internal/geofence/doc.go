// Package geofence answers whether a reported location lies within the
// permitted area.
//
// The area is one simple polygon loaded at startup. Coordinates enter as
// (latitude, longitude) and are held internally as (longitude, latitude)
// planar vertices; callers never see the internal order. Points on an edge
// or vertex count as inside.
package geofence
