package main

import (
	"fmt"

	"route-simulator/internal/publisher"
)

// playbackControl is the subset of *playback.Controller driven by remote commands.
type playbackControl interface {
	Play()
	Pause()
	Restart()
	SetSpeed(m float64) error
}

// applyCommand runs a decoded control command against the controller. It must
// only be called from the playback loop goroutine.
func applyCommand(ctrl playbackControl, cmd publisher.Command) error {
	switch cmd.Name {
	case publisher.CommandPlay:
		ctrl.Play()
	case publisher.CommandPause:
		ctrl.Pause()
	case publisher.CommandRestart:
		ctrl.Restart()
	case publisher.CommandSpeed:
		if err := ctrl.SetSpeed(cmd.Value); err != nil {
			return fmt.Errorf("speed %v: %w", cmd.Value, err)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}
