package main

import (
	"errors"
	"testing"
	"time"

	"route-simulator/internal/playback"
	"route-simulator/internal/publisher"
	"route-simulator/internal/route"
)

func testController(t *testing.T) *playback.Controller {
	t.Helper()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r, err := route.Normalize([]route.RawWaypoint{
		{Lat: 0, Lng: 0, Timestamp: base},
		{Lat: 0, Lng: 1, Timestamp: base.Add(10 * time.Second)},
	}, base)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	ctrl, err := playback.New(r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ctrl
}

func TestApplyCommand(t *testing.T) {
	ctrl := testController(t)

	if err := applyCommand(ctrl, publisher.Command{Name: publisher.CommandPlay}); err != nil {
		t.Fatalf("play: %v", err)
	}
	ctrl.Tick(0)
	ctrl.Tick(1000)
	if st := ctrl.State(); st.Status != playback.StatusPlaying || st.OffsetMs != 1000 {
		t.Fatalf("after play: %+v", st)
	}

	if err := applyCommand(ctrl, publisher.Command{Name: publisher.CommandSpeed, Value: 3}); err != nil {
		t.Fatalf("speed: %v", err)
	}
	if st := ctrl.State(); st.SpeedMultiplier != 3 || st.OffsetMs != 1000 {
		t.Fatalf("after speed: %+v", st)
	}

	if err := applyCommand(ctrl, publisher.Command{Name: publisher.CommandPause}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if st := ctrl.State(); st.Status != playback.StatusPaused {
		t.Fatalf("after pause: %+v", st)
	}

	if err := applyCommand(ctrl, publisher.Command{Name: publisher.CommandRestart}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if st := ctrl.State(); st.Status != playback.StatusIdle || st.OffsetMs != 0 || st.SpeedMultiplier != 3 {
		t.Fatalf("after restart: %+v", st)
	}
}

func TestApplyCommand_Rejected(t *testing.T) {
	ctrl := testController(t)

	err := applyCommand(ctrl, publisher.Command{Name: publisher.CommandSpeed, Value: -1})
	if !errors.Is(err, playback.ErrInvalidSpeed) {
		t.Fatalf("err = %v, want ErrInvalidSpeed", err)
	}
	if st := ctrl.State(); st.SpeedMultiplier != 1 {
		t.Fatalf("rejected speed changed state: %+v", st)
	}

	if err := applyCommand(ctrl, publisher.Command{Name: "rewind"}); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}
