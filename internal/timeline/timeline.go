// Package timeline maps a simulated offset onto a position along a route.
package timeline

import (
	"route-simulator/internal/geo"
	"route-simulator/internal/route"
)

// Position is where the vehicle is at some offset: the interpolated
// coordinates plus the enclosing segment [SegmentIndex, SegmentIndex+1] and
// the fraction LocalT travelled along it.
type Position struct {
	Lat          float64
	Lng          float64
	SegmentIndex int
	LocalT       float64
}

func (p Position) Point() geo.Point { return geo.Point{Lat: p.Lat, Lng: p.Lng} }

// DurationMs is the time between the first and last waypoint, never negative.
func DurationMs(r *route.Route) float64 {
	if r == nil || r.Len() < 2 {
		return 0
	}
	d := relMs(r, r.Len()-1)
	if d < 0 {
		return 0
	}
	return d
}

// PositionAt interpolates the position at offsetMs from the route start.
// Offsets are clamped to the route's first and last waypoint.
func PositionAt(r *route.Route, offsetMs float64) Position {
	n := r.Len()
	if offsetMs <= 0 {
		first := r.First()
		return Position{Lat: first.Lat, Lng: first.Lng, SegmentIndex: 0, LocalT: 0}
	}
	if offsetMs >= DurationMs(r) {
		return atEnd(r)
	}
	for i := 0; i < n-1; i++ {
		t0 := relMs(r, i)
		t1 := relMs(r, i+1)
		if offsetMs < t0 || offsetMs > t1 {
			continue
		}
		span := t1 - t0
		if span == 0 {
			span = 1
		}
		localT := (offsetMs - t0) / span
		p0, p1 := r.At(i), r.At(i+1)
		return Position{
			Lat:          p0.Lat + (p1.Lat-p0.Lat)*localT,
			Lng:          p0.Lng + (p1.Lng-p0.Lng)*localT,
			SegmentIndex: i,
			LocalT:       localT,
		}
	}
	// only reachable when the caller handed us out-of-order timestamps
	return atEnd(r)
}

func atEnd(r *route.Route) Position {
	last := r.Last()
	idx := r.Len() - 2
	if idx < 0 {
		idx = 0
	}
	return Position{Lat: last.Lat, Lng: last.Lng, SegmentIndex: idx, LocalT: 1}
}

// relMs is the offset of waypoint i from the route start in milliseconds.
func relMs(r *route.Route, i int) float64 {
	return float64(r.At(i).Timestamp.Sub(r.Start()).Nanoseconds()) / 1e6
}
