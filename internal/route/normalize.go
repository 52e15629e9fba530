package route

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SyntheticStep is the spacing between synthesized timestamps.
const SyntheticStep = 5000 * time.Millisecond

var ErrInvalidRoute = errors.New("invalid route")

var (
	latKeys = []string{"latitude", "lat"}
	lngKeys = []string{"longitude", "lng", "lon", "long"}
	tsKeys  = []string{"timestamp", "ts", "time"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize builds a Route from raw records. When every record carries a
// parseable timestamp they are kept as given (no reordering). Otherwise all
// timestamps are discarded and replaced with now + i*SyntheticStep.
func Normalize(raws []RawWaypoint, now time.Time) (*Route, error) {
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no waypoints", ErrInvalidRoute)
	}
	pts := make([]Waypoint, len(raws))
	allValid := true
	for i, raw := range raws {
		pts[i] = Waypoint{Lat: raw.Lat, Lng: raw.Lng}
		ts, ok := ParseTimestamp(raw.Timestamp)
		if !ok {
			allValid = false
			continue
		}
		pts[i].Timestamp = ts
	}
	if allValid {
		return &Route{points: pts}, nil
	}
	for i := range pts {
		pts[i].Timestamp = now.Add(time.Duration(i) * SyntheticStep)
	}
	return &Route{points: pts, synthesized: true}, nil
}

// DecodeRawWaypoint reads a loosely-typed record, accepting the common field
// name aliases for coordinates and timestamps.
func DecodeRawWaypoint(rec map[string]any) (RawWaypoint, error) {
	var w RawWaypoint
	lat, ok := lookupFloat(rec, latKeys)
	if !ok {
		return w, fmt.Errorf("%w: missing or non-numeric latitude", ErrInvalidRoute)
	}
	lng, ok := lookupFloat(rec, lngKeys)
	if !ok {
		return w, fmt.Errorf("%w: missing or non-numeric longitude", ErrInvalidRoute)
	}
	w.Lat, w.Lng = lat, lng
	for _, k := range tsKeys {
		if v, exists := rec[k]; exists && v != nil {
			w.Timestamp = v
			break
		}
	}
	return w, nil
}

// DecodeRawWaypoints decodes a list of records, reporting the index of the
// first bad one.
func DecodeRawWaypoints(recs []map[string]any) ([]RawWaypoint, error) {
	out := make([]RawWaypoint, 0, len(recs))
	for i, rec := range recs {
		w, err := DecodeRawWaypoint(rec)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

// ParseTimestamp converts a raw timestamp into an instant. Numbers are unix
// milliseconds. Nil, empty, zero and unparseable values report false.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromMillis(f)
	}
	if f, ok := toFloat(v); ok {
		return fromMillis(f)
	}
	return time.Time{}, false
}

func fromMillis(ms float64) (time.Time, bool) {
	if ms == 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func lookupFloat(rec map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		v, exists := rec[k]
		if !exists || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
