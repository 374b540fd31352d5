package action

import (
	"fmt"

	"github.com/nomis52/botcore/robot"
)

// CompletionKind says which fields of a Completion are meaningful.
type CompletionKind int

const (
	CompletionDefault CompletionKind = iota
	CompletionObjectInteraction
	CompletionAnimation
)

// String returns a human-readable representation of the CompletionKind
func (k CompletionKind) String() string {
	switch k {
	case CompletionObjectInteraction:
		return "object_interaction"
	case CompletionAnimation:
		return "animation"
	default:
		return "default"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k CompletionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CompletionKind) UnmarshalText(b []byte) error {
	for c := CompletionDefault; c <= CompletionAnimation; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown completion kind %q", b)
}

// Completion is the payload that accompanies a terminal result.
type Completion struct {
	Kind      CompletionKind   `json:"kind"`
	ObjectIDs []robot.ObjectID `json:"object_ids,omitempty"`
	Animation string           `json:"animation,omitempty"`
}

// ObjectCompletion builds an object interaction payload, skipping unset ids.
func ObjectCompletion(ids ...robot.ObjectID) Completion {
	c := Completion{Kind: CompletionObjectInteraction}
	for _, id := range ids {
		if id.IsSet() {
			c.ObjectIDs = append(c.ObjectIDs, id)
		}
	}
	return c
}

// Outcome is what an owner reports when one of its actions finishes.
type Outcome struct {
	// Slot is filled in by containers that have slots; -1 otherwise.
	Slot     int    `json:"slot"`
	Tag      Tag    `json:"tag"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Result   Result `json:"result"`
	Attempts int    `json:"attempts"`

	Completion    Completion `json:"completion"`
	HasCompletion bool       `json:"has_completion"`
}

// Succeeded reports whether the owner should treat the outcome as success.
func (o Outcome) Succeeded() bool {
	return o.Result == Success || o.Result == FailureProceed
}
