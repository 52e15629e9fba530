package playback

import "fmt"

type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StatusIdle
	case "playing":
		*s = StatusPlaying
	case "paused":
		*s = StatusPaused
	case "finished":
		*s = StatusFinished
	default:
		return fmt.Errorf("unknown playback status %q", b)
	}
	return nil
}

// Event names the operation that produced a Sample.
type Event string

const (
	EventTick    Event = "tick"
	EventPause   Event = "pause"
	EventRestart Event = "restart"
	EventFinish  Event = "finish"
)

// State is a snapshot of the controller's playback state.
type State struct {
	OffsetMs        float64
	SpeedMultiplier float64
	Status          Status
}
