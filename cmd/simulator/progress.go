package main

import (
	"log"
	"time"

	"route-simulator/internal/playback"
)

// progressLogger logs every non-tick Sample and at most one tick Sample per
// interval of wall time.
type progressLogger struct {
	session string
	every   time.Duration
	now     func() time.Time
	last    time.Time
	logf    func(format string, args ...any)
}

func newProgressLogger(session string, every time.Duration) *progressLogger {
	return &progressLogger{session: session, every: every, now: time.Now, logf: log.Printf}
}

func (p *progressLogger) OnSample(s playback.Sample) {
	now := p.now()
	if s.Event == playback.EventTick && now.Sub(p.last) < p.every {
		return
	}
	p.last = now
	p.logf("session %s %s: status=%s elapsed=%s pos=%.5f,%.5f speed=%.1fkm/h distance=%.2fkm heading=%.0f",
		p.session, s.Event, s.Status, playback.FormatElapsed(s.OffsetMs),
		s.Position.Lat, s.Position.Lng, s.SpeedKmh, s.DistanceKm, s.HeadingDeg)
}
