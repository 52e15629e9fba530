// Package playback drives a vehicle along a route in simulated time.
//
// The Controller never owns a clock. The host calls Tick with its own
// monotonic millisecond timestamp and the controller converts elapsed host
// time into simulated offset using the current speed multiplier:
//
//	offset = baseOffset + (now - baseWall) * multiplier
//
// The baseline pair is recaptured on Play, Pause and SetSpeed so a change of
// rate never moves the vehicle. All methods must be called from a single
// goroutine.
package playback

import (
	"errors"
	"fmt"
	"math"
	"time"

	"route-simulator/internal/motion"
	"route-simulator/internal/route"
	"route-simulator/internal/timeline"
)

var ErrInvalidSpeed = errors.New("invalid speed multiplier")

type Option func(*Controller) error

// WithObserver registers the observer that receives every emitted Sample.
func WithObserver(o Observer) Option {
	return func(c *Controller) error {
		c.observer = o
		return nil
	}
}

// WithSpeed sets the initial speed multiplier.
func WithSpeed(m float64) Option {
	return func(c *Controller) error {
		if err := validSpeed(m); err != nil {
			return err
		}
		c.speed = m
		return nil
	}
}

type Controller struct {
	route      *route.Route
	calc       *motion.Calculator
	durationMs float64
	observer   Observer

	status   Status
	offsetMs float64
	speed    float64

	baseOffset float64
	baseWall   float64
	haveBase   bool    // false until the first tick after play
	lastWall   float64 // host time of the most recent tick
}

func New(r *route.Route, opts ...Option) (*Controller, error) {
	if r == nil || r.Len() == 0 {
		return nil, fmt.Errorf("%w: no waypoints", route.ErrInvalidRoute)
	}
	c := &Controller{
		route:      r,
		calc:       motion.NewCalculator(r),
		durationMs: timeline.DurationMs(r),
		status:     StatusIdle,
		speed:      1,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Controller) Route() *route.Route { return c.route }

func (c *Controller) DurationMs() float64 { return c.durationMs }

func (c *Controller) TotalDistanceKm() float64 { return c.calc.TotalDistanceKm() }

func (c *Controller) State() State {
	return State{OffsetMs: c.offsetMs, SpeedMultiplier: c.speed, Status: c.status}
}

// Current computes the Sample for the present state without emitting it.
func (c *Controller) Current() Sample {
	s := c.sample(EventTick)
	if c.status == StatusFinished {
		s.SpeedKmh = 0
	}
	return s
}

// Play starts or resumes playback from the current offset.
func (c *Controller) Play() {
	if c.status != StatusIdle && c.status != StatusPaused {
		return
	}
	c.status = StatusPlaying
	c.baseOffset = c.offsetMs
	c.haveBase = false
}

// Pause freezes the offset and emits a Sample reflecting the paused state.
func (c *Controller) Pause() {
	if c.status != StatusPlaying {
		return
	}
	c.status = StatusPaused
	c.baseOffset = c.offsetMs
	c.haveBase = false
	c.emit(c.sample(EventPause))
}

// Restart rewinds to the route start and returns to Idle. The speed
// multiplier is kept.
func (c *Controller) Restart() {
	c.status = StatusIdle
	c.offsetMs = 0
	c.baseOffset = 0
	c.haveBase = false
	s := c.sample(EventRestart)
	s.SpeedKmh = 0
	s.DistanceKm = 0
	c.emit(s)
}

// SetSpeed changes the rate of simulated time. The current offset becomes the
// new baseline first, so only future advancement is affected.
func (c *Controller) SetSpeed(m float64) error {
	if err := validSpeed(m); err != nil {
		return err
	}
	c.baseOffset = c.offsetMs
	if c.haveBase {
		c.baseWall = c.lastWall
	}
	c.speed = m
	return nil
}

// Tick advances simulated time to match host time nowMs. It does nothing
// unless playing.
func (c *Controller) Tick(nowMs float64) {
	if c.status != StatusPlaying {
		return
	}
	if !c.haveBase {
		c.baseWall = nowMs
		c.haveBase = true
	}
	c.lastWall = nowMs

	sim := c.baseOffset + (nowMs-c.baseWall)*c.speed
	if sim < 0 {
		sim = 0
	}
	if sim >= c.durationMs {
		c.offsetMs = c.durationMs
		c.status = StatusFinished
		c.haveBase = false
		s := c.sample(EventFinish)
		s.SpeedKmh = 0
		c.emit(s)
		return
	}
	c.offsetMs = sim
	c.emit(c.sample(EventTick))
}

func (c *Controller) sample(ev Event) Sample {
	pos := timeline.PositionAt(c.route, c.offsetMs)
	return Sample{
		Position:     pos.Point(),
		SegmentIndex: pos.SegmentIndex,
		LocalT:       pos.LocalT,
		OffsetMs:     c.offsetMs,
		SpeedKmh:     c.calc.SpeedKmh(pos),
		DistanceKm:   c.calc.DistanceKm(pos),
		HeadingDeg:   c.calc.HeadingDeg(pos),
		Status:       c.status,
		Event:        ev,
		Timestamp:    c.route.Start().Add(time.Duration(c.offsetMs * float64(time.Millisecond))),
	}
}

func (c *Controller) emit(s Sample) {
	if c.observer != nil {
		c.observer.OnSample(s)
	}
}

func validSpeed(m float64) error {
	if !(m > 0) || math.IsInf(m, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, m)
	}
	return nil
}
