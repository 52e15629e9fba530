// Package motion derives speed, distance and heading from a timeline position.
package motion

import (
	"route-simulator/internal/geo"
	"route-simulator/internal/route"
	"route-simulator/internal/timeline"
)

// Calculator caches per-segment distances for a route. prefix[i] is the
// distance covered by all segments before segment i.
type Calculator struct {
	r       *route.Route
	seg     []float64 // meters
	prefix  []float64 // meters
	heading []float64 // degrees, degenerate segments inherit a neighbour's
}

func NewCalculator(r *route.Route) *Calculator {
	n := r.Len() - 1
	if n < 0 {
		n = 0
	}
	c := &Calculator{
		r:       r,
		seg:     make([]float64, n),
		prefix:  make([]float64, n+1),
		heading: make([]float64, n),
	}
	moving := make([]bool, n)
	for i := 0; i < n; i++ {
		a, b := r.At(i).Point(), r.At(i+1).Point()
		c.seg[i] = geo.DistanceMeters(a, b)
		c.prefix[i+1] = c.prefix[i] + c.seg[i]
		if a != b {
			c.heading[i] = geo.BearingDegrees(a, b)
			moving[i] = true
		}
	}
	fillHeadings(c.heading, moving)
	return c
}

// fillHeadings gives each stationary segment the heading of the nearest
// earlier moving segment, or of the first moving one at the start of a route.
func fillHeadings(h []float64, moving []bool) {
	first, last := -1, -1
	for i := range h {
		if moving[i] {
			if first < 0 {
				first = i
			}
			last = i
			continue
		}
		if last >= 0 {
			h[i] = h[last]
		}
	}
	for i := 0; i < first; i++ {
		h[i] = h[first]
	}
}

func (c *Calculator) inSegment(p timeline.Position) bool {
	return p.SegmentIndex >= 0 && p.SegmentIndex < len(c.seg)
}

// SpeedKmh is the average speed over the segment enclosing p. Zero for
// single-point routes and for segments with no elapsed time.
func (c *Calculator) SpeedKmh(p timeline.Position) float64 {
	if !c.inSegment(p) {
		return 0
	}
	i := p.SegmentIndex
	dt := c.r.At(i + 1).Timestamp.Sub(c.r.At(i).Timestamp).Seconds()
	if dt <= 0 {
		return 0
	}
	return c.seg[i] / dt * 3.6
}

// DistanceKm is the distance travelled from the route start to p.
func (c *Calculator) DistanceKm(p timeline.Position) float64 {
	if !c.inSegment(p) {
		return 0
	}
	t := p.LocalT
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	i := p.SegmentIndex
	return (c.prefix[i] + c.seg[i]*t) / 1000
}

// HeadingDeg is the bearing of the segment enclosing p.
func (c *Calculator) HeadingDeg(p timeline.Position) float64 {
	if !c.inSegment(p) {
		return 0
	}
	return c.heading[p.SegmentIndex]
}

func (c *Calculator) TotalDistanceKm() float64 {
	return c.prefix[len(c.prefix)-1] / 1000
}
