package playback

import (
	"errors"
	"math"
	"testing"
	"time"

	"route-simulator/internal/route"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type recorder struct{ samples []Sample }

func (r *recorder) OnSample(s Sample) { r.samples = append(r.samples, s) }

func (r *recorder) last(t *testing.T) Sample {
	t.Helper()
	if len(r.samples) == 0 {
		t.Fatalf("no samples emitted")
	}
	return r.samples[len(r.samples)-1]
}

func equatorRoute(t *testing.T) *route.Route {
	t.Helper()
	r, err := route.Normalize([]route.RawWaypoint{
		{Lat: 0, Lng: 0, Timestamp: t0},
		{Lat: 0, Lng: 1, Timestamp: t0.Add(10 * time.Second)},
	}, t0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return r
}

func newController(t *testing.T, r *route.Route, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	c, err := New(r, append([]Option{WithObserver(rec)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, rec
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, route.ErrInvalidRoute) {
		t.Fatalf("expected ErrInvalidRoute, got %v", err)
	}
	if _, err := New(equatorRoute(t), WithSpeed(0)); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("expected ErrInvalidSpeed, got %v", err)
	}
}

func TestNew_InitialState(t *testing.T) {
	c, rec := newController(t, equatorRoute(t))
	st := c.State()
	if st.Status != StatusIdle || st.OffsetMs != 0 || st.SpeedMultiplier != 1 {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if len(rec.samples) != 0 {
		t.Fatalf("construction should not emit samples")
	}
	if c.DurationMs() != 10000 {
		t.Fatalf("duration = %v, want 10000", c.DurationMs())
	}
}

func TestTick_SpeedTwoScenario(t *testing.T) {
	c, rec := newController(t, equatorRoute(t), WithSpeed(2))
	c.Play()

	steps := []struct {
		now    float64
		offset float64
	}{
		{0, 0},
		{1000, 2000},
		{3000, 6000},
	}
	for _, st := range steps {
		c.Tick(st.now)
		got := c.State()
		if got.OffsetMs != st.offset {
			t.Fatalf("tick(%v): offset = %v, want %v", st.now, got.OffsetMs, st.offset)
		}
		if got.Status != StatusPlaying {
			t.Fatalf("tick(%v): status = %v, want playing", st.now, got.Status)
		}
		if s := rec.last(t); s.Event != EventTick || s.OffsetMs != st.offset {
			t.Fatalf("tick(%v): emitted %+v", st.now, s)
		}
	}

	c.Tick(5200)
	st := c.State()
	if st.Status != StatusFinished || st.OffsetMs != 10000 {
		t.Fatalf("expected finished at 10000, got %+v", st)
	}
	final := rec.last(t)
	if final.Event != EventFinish || final.SpeedKmh != 0 || final.OffsetMs != 10000 {
		t.Fatalf("unexpected final sample %+v", final)
	}
	if final.Position.Lat != 0 || final.Position.Lng != 1 {
		t.Fatalf("final position = %+v, want last waypoint", final.Position)
	}
	if final.IsPlaying() {
		t.Fatalf("final sample should not report playing")
	}

	n := len(rec.samples)
	c.Tick(9000)
	if len(rec.samples) != n {
		t.Fatalf("tick after finish must be a no-op")
	}
}

func TestTick_ExactlyDurationFinishes(t *testing.T) {
	c, rec := newController(t, equatorRoute(t))
	c.Play()
	c.Tick(100)
	c.Tick(10100)
	if c.State().Status != StatusFinished {
		t.Fatalf("expected finished, got %v", c.State().Status)
	}
	if rec.last(t).Event != EventFinish {
		t.Fatalf("expected finish event")
	}
}

func TestTick_SampleContents(t *testing.T) {
	c, rec := newController(t, equatorRoute(t))
	c.Play()
	c.Tick(0)
	c.Tick(5000)
	s := rec.last(t)
	if math.Abs(s.Position.Lng-0.5) > 1e-12 || s.SegmentIndex != 0 || math.Abs(s.LocalT-0.5) > 1e-12 {
		t.Fatalf("unexpected position data %+v", s)
	}
	if math.Abs(s.DistanceKm-55.597) > 0.01 {
		t.Fatalf("distance = %v, want about 55.6 km", s.DistanceKm)
	}
	if s.SpeedKmh <= 0 || math.Abs(s.HeadingDeg-90) > 1e-9 {
		t.Fatalf("speed/heading = %v/%v", s.SpeedKmh, s.HeadingDeg)
	}
	if want := t0.Add(5 * time.Second); !s.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %s, want %s", s.Timestamp, want)
	}
	if !s.IsPlaying() || s.Status != StatusPlaying {
		t.Fatalf("expected playing sample")
	}
}

func TestTick_IgnoredUnlessPlaying(t *testing.T) {
	c, rec := newController(t, equatorRoute(t))
	c.Tick(1000)
	if len(rec.samples) != 0 || c.State().OffsetMs != 0 {
		t.Fatalf("tick in idle must be a no-op")
	}
}

func TestPause_FreezesAndResumesWithoutJump(t *testing.T) {
	c, rec := newController(t, equatorRoute(t), WithSpeed(2))
	c.Play()
	c.Tick(0)
	c.Tick(1000)

	c.Pause()
	if c.State().Status != StatusPaused {
		t.Fatalf("expected paused")
	}
	p := rec.last(t)
	if p.Event != EventPause || p.Status != StatusPaused || p.OffsetMs != 2000 {
		t.Fatalf("unexpected pause sample %+v", p)
	}

	n := len(rec.samples)
	c.Tick(4000)
	c.Pause()
	if len(rec.samples) != n {
		t.Fatalf("tick and pause while paused must be no-ops")
	}

	c.Play()
	c.Tick(50000)
	if got := c.State().OffsetMs; got != 2000 {
		t.Fatalf("offset after resume = %v, want 2000", got)
	}
	c.Tick(51000)
	if got := c.State().OffsetMs; got != 4000 {
		t.Fatalf("offset one second after resume = %v, want 4000", got)
	}
}

func TestPlay_NoOpWhenPlayingOrFinished(t *testing.T) {
	c, _ := newController(t, equatorRoute(t))
	c.Play()
	c.Tick(0)
	c.Tick(1000)
	c.Play()
	c.Tick(2000)
	if got := c.State().OffsetMs; got != 2000 {
		t.Fatalf("second play must not rebase: offset = %v, want 2000", got)
	}
	c.Tick(20000)
	c.Play()
	if c.State().Status != StatusFinished {
		t.Fatalf("play must not leave finished")
	}
}

func TestSetSpeed_Continuity(t *testing.T) {
	c, _ := newController(t, equatorRoute(t))
	c.Play()
	c.Tick(0)
	c.Tick(1000)

	before := c.State().OffsetMs
	if err := c.SetSpeed(3); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	after := c.State()
	if after.OffsetMs != before {
		t.Fatalf("offset changed across SetSpeed: %v -> %v", before, after.OffsetMs)
	}
	if after.SpeedMultiplier != 3 {
		t.Fatalf("multiplier = %v, want 3", after.SpeedMultiplier)
	}
	c.Tick(2000)
	if got := c.State().OffsetMs; got != 4000 {
		t.Fatalf("offset after speed change = %v, want 4000", got)
	}
}

func TestSetSpeed_BeforeFirstTick(t *testing.T) {
	c, _ := newController(t, equatorRoute(t))
	c.Play()
	if err := c.SetSpeed(4); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	c.Tick(100)
	c.Tick(600)
	if got := c.State().OffsetMs; got != 2000 {
		t.Fatalf("offset = %v, want 2000", got)
	}
}

func TestSetSpeed_Rejected(t *testing.T) {
	c, rec := newController(t, equatorRoute(t), WithSpeed(1.5))
	c.Play()
	c.Tick(0)
	c.Tick(1000)
	before := c.State()
	n := len(rec.samples)
	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := c.SetSpeed(m); !errors.Is(err, ErrInvalidSpeed) {
			t.Fatalf("SetSpeed(%v): expected ErrInvalidSpeed, got %v", m, err)
		}
	}
	if c.State() != before || len(rec.samples) != n {
		t.Fatalf("rejected SetSpeed must not change state")
	}
	c.Tick(2000)
	if got := c.State().OffsetMs; got != 3000 {
		t.Fatalf("offset = %v, want 3000", got)
	}
}

func TestRestart(t *testing.T) {
	c, rec := newController(t, equatorRoute(t), WithSpeed(2))
	c.Play()
	c.Tick(0)
	c.Tick(2000)
	c.Restart()

	st := c.State()
	if st.Status != StatusIdle || st.OffsetMs != 0 || st.SpeedMultiplier != 2 {
		t.Fatalf("unexpected state after restart %+v", st)
	}
	s := rec.last(t)
	if s.Event != EventRestart || s.SpeedKmh != 0 || s.DistanceKm != 0 || s.OffsetMs != 0 {
		t.Fatalf("unexpected restart sample %+v", s)
	}
	if s.Position.Lat != 0 || s.Position.Lng != 0 || !s.Timestamp.Equal(t0) {
		t.Fatalf("restart sample should be at the route start: %+v", s)
	}

	c.Tick(5000)
	if c.State().OffsetMs != 0 {
		t.Fatalf("restart must leave the controller idle")
	}
}

func TestRestart_FromFinished(t *testing.T) {
	c, _ := newController(t, equatorRoute(t))
	c.Play()
	c.Tick(0)
	c.Tick(20000)
	c.Restart()
	c.Play()
	c.Tick(100)
	c.Tick(1100)
	if st := c.State(); st.Status != StatusPlaying || st.OffsetMs != 1000 {
		t.Fatalf("unexpected state after replay %+v", st)
	}
}

func TestRestart_ReproducesFreshSession(t *testing.T) {
	r := equatorRoute(t)
	fresh, freshRec := newController(t, r, WithSpeed(1.5))
	fresh.Play()
	fresh.Tick(100)
	fresh.Tick(1600)

	used, usedRec := newController(t, r, WithSpeed(1.5))
	used.Play()
	used.Tick(0)
	used.Tick(3000)
	used.Pause()
	used.Restart()
	used.Play()
	used.Tick(100)
	used.Tick(1600)

	if a, b := freshRec.last(t), usedRec.last(t); a != b {
		t.Fatalf("samples differ:\nfresh %+v\nused  %+v", a, b)
	}
	if fresh.State() != used.State() {
		t.Fatalf("states differ: %+v vs %+v", fresh.State(), used.State())
	}
}

func TestSinglePointRoute(t *testing.T) {
	r, err := route.Normalize([]route.RawWaypoint{{Lat: 7, Lng: 8}}, t0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	c, rec := newController(t, r)
	if c.DurationMs() != 0 {
		t.Fatalf("duration = %v, want 0", c.DurationMs())
	}
	c.Play()
	c.Tick(0)
	s := rec.last(t)
	if c.State().Status != StatusFinished || s.Event != EventFinish {
		t.Fatalf("single point route should finish on first tick")
	}
	if s.Position.Lat != 7 || s.Position.Lng != 8 || s.SpeedKmh != 0 || s.DistanceKm != 0 {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestCurrent(t *testing.T) {
	c, rec := newController(t, equatorRoute(t))
	s := c.Current()
	if s.OffsetMs != 0 || s.Status != StatusIdle || len(rec.samples) != 0 {
		t.Fatalf("Current should not emit: %+v", s)
	}
	c.Play()
	c.Tick(0)
	c.Tick(30000)
	if got := c.Current(); got.SpeedKmh != 0 || got.Status != StatusFinished {
		t.Fatalf("finished Current should report zero speed: %+v", got)
	}
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	calls := 0
	obs := Observers{a, nil, ObserverFunc(func(Sample) { calls++ }), b}
	c, err := New(equatorRoute(t), WithObserver(obs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Restart()
	if len(a.samples) != 1 || len(b.samples) != 1 || calls != 1 {
		t.Fatalf("fan-out failed: %d %d %d", len(a.samples), len(b.samples), calls)
	}
}
