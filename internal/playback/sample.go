package playback

import (
	"fmt"
	"time"

	"route-simulator/internal/geo"
)

// Sample is one observation of the engine at a given offset. It is a value;
// observers may keep it without affecting the controller.
type Sample struct {
	Position     geo.Point `json:"position"`
	SegmentIndex int       `json:"segmentIndex"`
	LocalT       float64   `json:"localT"`
	OffsetMs     float64   `json:"offsetMs"`
	SpeedKmh     float64   `json:"speedKmh"`
	DistanceKm   float64   `json:"distanceKm"`
	HeadingDeg   float64   `json:"headingDeg"`
	Status       Status    `json:"status"`
	Event        Event     `json:"event"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s Sample) IsPlaying() bool { return s.Status == StatusPlaying }

// CurrentPos is the simulated position with its simulated wall-clock time.
type CurrentPos struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is the payload shape consumed by stats panels.
type Stats struct {
	IsPlaying  bool       `json:"isPlaying"`
	ElapsedMs  float64    `json:"elapsedMs"`
	SpeedKmh   float64    `json:"speedKmh"`
	DistanceKm float64    `json:"distanceKm"`
	CurrentPos CurrentPos `json:"currentPos"`
}

func (s Sample) Stats() Stats {
	return Stats{
		IsPlaying:  s.IsPlaying(),
		ElapsedMs:  s.OffsetMs,
		SpeedKmh:   s.SpeedKmh,
		DistanceKm: s.DistanceKm,
		CurrentPos: CurrentPos{Lat: s.Position.Lat, Lng: s.Position.Lng, Timestamp: s.Timestamp},
	}
}

// FormatElapsed renders a millisecond offset as HH:MM:SS.
func FormatElapsed(ms float64) string {
	if ms < 0 {
		ms = 0
	}
	total := int64(ms / 1000)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
