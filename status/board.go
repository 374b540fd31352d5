// Package status keeps a live picture of what every slot is doing.
//
// Board is a queue.Observer installed on the controller's List. The server
// reads it from HTTP goroutines while the tick loop writes it.
//
//	board := status.NewBoard(logger, clock)
//	list := queue.NewList(env, queue.WithListObserver(board))
//	...
//	for _, s := range board.Slots() {
//	    fmt.Println(s.Slot, s.Current.Name, s.Outstanding)
//	}
package status

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/queue"
)

// Current describes the action a slot is running.
type Current struct {
	Tag     action.Tag  `json:"tag"`
	Name    string      `json:"name"`
	Type    action.Type `json:"type"`
	Attempt int         `json:"attempt"`
	Since   time.Time   `json:"since"`
}

// Slot is the status of one slot.
type Slot struct {
	Slot        queue.SlotHandle `json:"slot"`
	Current     *Current         `json:"current,omitempty"`
	Outstanding int              `json:"outstanding"`
	Last        *action.Outcome  `json:"last,omitempty"`
	FinishedAt  time.Time        `json:"finished_at,omitempty"`
}

// Totals counts outcomes since the board was created.
type Totals struct {
	Started   int `json:"started"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Board implements queue.Observer. All methods are safe for concurrent use.
type Board struct {
	logger *slog.Logger
	clock  action.Clock

	mu     sync.RWMutex
	slots  map[queue.SlotHandle]*Slot
	totals Totals
}

var _ queue.Observer = (*Board)(nil)

// NewBoard creates an empty board. Each status change is logged at Info.
func NewBoard(logger *slog.Logger, clock action.Clock) *Board {
	if clock == nil {
		clock = action.SystemClock{}
	}
	return &Board{
		logger: logger,
		clock:  clock,
		slots:  make(map[queue.SlotHandle]*Slot),
	}
}

func (b *Board) slot(h queue.SlotHandle) *Slot {
	s, ok := b.slots[h]
	if !ok {
		s = &Slot{Slot: h}
		b.slots[h] = s
	}
	return s
}

func (b *Board) ActionStarted(slot queue.SlotHandle, tag action.Tag, name string, t action.Type, attempt int) {
	b.logger.Info("action started", "slot", int(slot), "tag", uint32(tag), "action", name, "attempt", attempt)

	b.mu.Lock()
	defer b.mu.Unlock()
	if attempt == 1 {
		b.totals.Started++
	}
	b.slot(slot).Current = &Current{Tag: tag, Name: name, Type: t, Attempt: attempt, Since: b.clock.Now()}
}

func (b *Board) ActionFinished(o action.Outcome) {
	b.logger.Info("action finished", "slot", o.Slot, "tag", uint32(o.Tag), "action", o.Name, "result", o.Result.String())

	b.mu.Lock()
	defer b.mu.Unlock()
	if o.Succeeded() {
		b.totals.Succeeded++
	} else {
		b.totals.Failed++
	}
	s := b.slot(queue.SlotHandle(o.Slot))
	if s.Current != nil && s.Current.Tag == o.Tag {
		s.Current = nil
	}
	last := o
	s.Last = &last
	s.FinishedAt = b.clock.Now()
}

// QueueLength also clears the current action of an emptied slot, which is
// how cancellations are seen.
func (b *Board) QueueLength(slot queue.SlotHandle, outstanding int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.slot(slot)
	s.Outstanding = outstanding
	if outstanding == 0 {
		s.Current = nil
	}
}

// Slots returns a copy of every known slot ordered by handle.
func (b *Board) Slots() []Slot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Slot, 0, len(b.slots))
	for _, s := range b.slots {
		cp := *s
		if s.Current != nil {
			cur := *s.Current
			cp.Current = &cur
		}
		if s.Last != nil {
			last := *s.Last
			cp.Last = &last
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Totals returns the outcome counters.
func (b *Board) Totals() Totals {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.totals
}

// Busy reports whether any slot has outstanding work.
func (b *Board) Busy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.slots {
		if s.Outstanding > 0 {
			return true
		}
	}
	return false
}
