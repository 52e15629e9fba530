// Package trace accumulates the travelled path of a playback session for
// map rendering.
package trace

import (
	"net/http"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"route-simulator/internal/playback"
)

// Trace records distinct consecutive positions. It is written by the playback
// loop and read by HTTP handlers, hence the mutex.
type Trace struct {
	mu   sync.Mutex
	path orb.LineString
}

func New() *Trace { return &Trace{} }

// OnSample appends the sample position unless it repeats the previous one.
// A restart discards the path and starts over from the route start.
func (t *Trace) OnSample(s playback.Sample) {
	p := orb.Point{s.Position.Lng, s.Position.Lat}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.Event == playback.EventRestart {
		t.path = orb.LineString{p}
		return
	}
	if n := len(t.path); n > 0 && t.path[n-1].Equal(p) {
		return
	}
	t.path = append(t.path, p)
}

func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.path)
}

// Points returns a copy of the path as [lng, lat] pairs.
func (t *Trace) Points() orb.LineString {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path.Clone()
}

// Feature builds a GeoJSON feature for the path: a LineString, or a Point
// while only one position is known. Nil when empty.
func (t *Trace) Feature() *geojson.Feature {
	path := t.Points()
	var f *geojson.Feature
	switch len(path) {
	case 0:
		return nil
	case 1:
		f = geojson.NewFeature(path[0])
	default:
		f = geojson.NewFeature(path)
	}
	f.Properties["points"] = len(path)
	return f
}

// GeoJSON encodes the path as a FeatureCollection.
func (t *Trace) GeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	if f := t.Feature(); f != nil {
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

func (t *Trace) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	b, err := t.GeoJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(b)
}
