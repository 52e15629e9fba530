// Package route turns raw waypoint records into a validated, time-ordered Route.
package route

import (
	"time"

	"route-simulator/internal/geo"
)

// Waypoint is one recorded position on a route.
type Waypoint struct {
	Lat       float64
	Lng       float64
	Timestamp time.Time
}

func (w Waypoint) Point() geo.Point { return geo.Point{Lat: w.Lat, Lng: w.Lng} }

// RawWaypoint is an input record before normalization. Timestamp holds whatever
// the source provided (string, time.Time, unix millis) or nil.
type RawWaypoint struct {
	Lat       float64
	Lng       float64
	Timestamp any
}

// Route is an immutable, non-empty sequence of waypoints.
type Route struct {
	points      []Waypoint
	synthesized bool
}

func (r *Route) Len() int { return len(r.points) }

func (r *Route) At(i int) Waypoint { return r.points[i] }

func (r *Route) First() Waypoint { return r.points[0] }

func (r *Route) Last() Waypoint { return r.points[len(r.points)-1] }

// Start is the timestamp of the first waypoint.
func (r *Route) Start() time.Time { return r.points[0].Timestamp }

// Points returns a copy of the waypoints.
func (r *Route) Points() []Waypoint {
	out := make([]Waypoint, len(r.points))
	copy(out, r.points)
	return out
}

// Synthesized reports whether the source timestamps were replaced by evenly
// spaced synthetic ones.
func (r *Route) Synthesized() bool { return r.synthesized }
