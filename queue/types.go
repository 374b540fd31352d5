package queue

import "github.com/nomis52/botcore/action"

// SlotHandle addresses one Queue inside a List.
type SlotHandle int

const (
	// UnknownSlot means "no slot", or "every slot" where a filter is expected.
	UnknownSlot SlotHandle = -1
	// DefaultSlot is the conventional main slot.
	DefaultSlot SlotHandle = 0
)

// Position selects an insertion policy at run time.
type Position int

const (
	PositionNow Position = iota
	PositionNext
	PositionAtEnd
	PositionAtFront
	// PositionNowAndClearRemaining cancels everything in the slot first.
	PositionNowAndClearRemaining
	// PositionInParallel runs the action in a newly allocated slot.
	PositionInParallel
)

// String returns a human-readable representation of the Position
func (p Position) String() string {
	switch p {
	case PositionNow:
		return "now"
	case PositionNext:
		return "next"
	case PositionAtEnd:
		return "at_end"
	case PositionAtFront:
		return "at_front"
	case PositionNowAndClearRemaining:
		return "now_and_clear_remaining"
	case PositionInParallel:
		return "in_parallel"
	default:
		return "unknown"
	}
}

// ParsePosition is the inverse of Position.String.
func ParsePosition(s string) (Position, bool) {
	for p := PositionNow; p <= PositionInParallel; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return PositionAtEnd, false
}

// Entry is a read-only description of one queued action.
type Entry struct {
	Tag         action.Tag  `json:"tag"`
	Name        string      `json:"name"`
	Type        action.Type `json:"type"`
	Current     bool        `json:"current"`
	Started     bool        `json:"started"`
	Attempts    int         `json:"attempts"`
	RetriesLeft int         `json:"retries_left"`
}

func newEntry(r *action.Runner, current bool) Entry {
	return Entry{
		Tag:         r.Tag(),
		Name:        r.Action().Name(),
		Type:        r.Action().Type(),
		Current:     current,
		Started:     r.Started(),
		Attempts:    r.Attempts(),
		RetriesLeft: r.RetriesLeft(),
	}
}

// Observer receives action lifecycle events from queues. Calls happen on
// the tick goroutine and must return promptly.
type Observer interface {
	ActionStarted(slot SlotHandle, tag action.Tag, name string, actionType action.Type, attempt int)
	ActionFinished(o action.Outcome)
	QueueLength(slot SlotHandle, outstanding int)
}

type nopObserver struct{}

func (nopObserver) ActionStarted(SlotHandle, action.Tag, string, action.Type, int) {}
func (nopObserver) ActionFinished(action.Outcome)                                 {}
func (nopObserver) QueueLength(SlotHandle, int)                                   {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (os Observers) ActionStarted(slot SlotHandle, tag action.Tag, name string, actionType action.Type, attempt int) {
	for _, o := range os {
		o.ActionStarted(slot, tag, name, actionType, attempt)
	}
}

func (os Observers) ActionFinished(out action.Outcome) {
	for _, o := range os {
		o.ActionFinished(out)
	}
}

func (os Observers) QueueLength(slot SlotHandle, outstanding int) {
	for _, o := range os {
		o.QueueLength(slot, outstanding)
	}
}
