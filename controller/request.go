package controller

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
)

// Request asks the controller to queue one routine.
type Request struct {
	Routine string         `json:"routine"`
	Object  robot.ObjectID `json:"object"`

	// Slot and Position choose where the action goes. Position names are
	// those of queue.Position; empty means at_end.
	Slot     queue.SlotHandle `json:"slot"`
	Position string           `json:"position,omitempty"`
	// Retries overrides the controller default.
	Retries *int `json:"retries,omitempty"`
	// Tag is a caller-chosen tag below action.FirstEngineTag, or 0.
	Tag action.Tag `json:"tag,omitempty"`

	// Routine arguments.
	Distance         float64  `json:"distance,omitempty"`
	Duration         Duration `json:"duration,omitempty"`
	ApproachAngleDeg *float64 `json:"approach_angle_deg,omitempty"`
	PreAction        string   `json:"pre_action,omitempty"`

	// Source records who asked, e.g. "api" or "schedule:nightly".
	Source string `json:"source,omitempty"`
}

// position resolves the request's queue position.
func (r Request) position() (queue.Position, error) {
	if r.Position == "" {
		return queue.PositionAtEnd, nil
	}
	p, ok := queue.ParsePosition(r.Position)
	if !ok {
		return 0, fmt.Errorf("unknown position %q", r.Position)
	}
	return p, nil
}

// Duration is a time.Duration that reads "1.5s" style strings or plain
// nanosecond counts from JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		*d = Duration(v)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}
