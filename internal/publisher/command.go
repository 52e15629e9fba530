package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	CommandPlay    = "play"
	CommandPause   = "pause"
	CommandRestart = "restart"
	CommandSpeed   = "speed"
)

// Command is a control message sent by a UI, e.g. {"command":"speed","value":2}.
type Command struct {
	Name  string  `json:"command"`
	Value float64 `json:"value,omitempty"`
}

func ParseCommand(b []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(b, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	c.Name = strings.ToLower(strings.TrimSpace(c.Name))
	switch c.Name {
	case CommandPlay, CommandPause, CommandRestart, CommandSpeed:
		return c, nil
	case "":
		return Command{}, fmt.Errorf("missing command name")
	}
	return Command{}, fmt.Errorf("unknown command %q", c.Name)
}
