package queue

import (
	"log/slog"

	"github.com/nomis52/botcore/action"
)

// List is a set of independent Queues addressed by slot handle.
//
// A slot is created the first time it is addressed and stays registered
// even when its queue drains, so handles are stable for the List's
// lifetime. Actions in different slots never see each other. Update visits
// slots in registration order so runs are reproducible.
type List struct {
	env      *action.Env
	logger   *slog.Logger
	tags     *action.TagAllocator
	observer Observer
	actions  ActionLogger

	queues map[SlotHandle]*Queue
	order  []SlotHandle
}

// ListOption configures a List.
type ListOption func(*List)

// WithListLogger sets the logger used by the list and its queues.
func WithListLogger(logger *slog.Logger) ListOption {
	return func(l *List) {
		l.logger = logger
	}
}

// WithListObserver registers an observer for every slot's queue.
func WithListObserver(o Observer) ListOption {
	return func(l *List) {
		l.observer = o
	}
}

// WithListActionLogger gives every action admitted to any slot its own
// logger.
func WithListActionLogger(a ActionLogger) ListOption {
	return func(l *List) {
		l.actions = a
	}
}

// NewList creates a List with no slots.
func NewList(env *action.Env, opts ...ListOption) *List {
	l := &List{
		env:      env,
		logger:   env.Log(),
		tags:     action.NewTagAllocator(),
		observer: nopObserver{},
		queues:   make(map[SlotHandle]*Queue),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.observer == nil {
		l.observer = nopObserver{}
	}
	return l
}

// slot returns the queue for handle, creating it on first use.
func (l *List) slot(handle SlotHandle) *Queue {
	if q, ok := l.queues[handle]; ok {
		return q
	}
	q := NewQueue(l.env,
		WithLogger(l.logger),
		WithTagAllocator(l.tags),
		WithObserver(l.observer),
		WithActionLogger(l.actions),
		withSlot(handle),
	)
	l.queues[handle] = q
	l.order = append(l.order, handle)
	return q
}

// AddConcurrentAction queues a at the end of a newly allocated slot, which
// is the lowest handle not yet registered.
func (l *List) AddConcurrentAction(a action.Action, retries int) (SlotHandle, error) {
	handle, _, err := l.addConcurrent(a, retries, action.InvalidTag)
	return handle, err
}

func (l *List) addConcurrent(a action.Action, retries int, tag action.Tag) (SlotHandle, action.Tag, error) {
	if a == nil {
		l.logger.Warn("refusing to add a nil concurrent action")
		return UnknownSlot, action.InvalidTag, ErrNilAction
	}

	handle := DefaultSlot
	for {
		if _, used := l.queues[handle]; !used {
			break
		}
		handle++
	}

	t, err := l.slot(handle).queueTagged(PositionAtEnd, tag, a, retries)
	if err != nil {
		return UnknownSlot, action.InvalidTag, err
	}
	return handle, t, nil
}

// QueueActionNext queues a in the default slot, right after its current action.
func (l *List) QueueActionNext(a action.Action, retries int) (action.Tag, error) {
	return l.slot(DefaultSlot).QueueNext(a, retries)
}

// QueueActionAtEnd queues a at the end of the default slot.
func (l *List) QueueActionAtEnd(a action.Action, retries int) (action.Tag, error) {
	return l.slot(DefaultSlot).QueueAtEnd(a, retries)
}

// QueueActionNow replaces the default slot's current action with a.
func (l *List) QueueActionNow(a action.Action, retries int) (action.Tag, error) {
	return l.slot(DefaultSlot).QueueNow(a, retries)
}

// QueueActionAtFront interrupts the default slot's current action to run a first.
func (l *List) QueueActionAtFront(a action.Action, retries int) (action.Tag, error) {
	return l.slot(DefaultSlot).QueueAtFront(a, retries)
}

// QueueAction queues a in the default slot using the given policy.
func (l *List) QueueAction(pos Position, a action.Action, retries int) (action.Tag, error) {
	return l.QueueActionInSlot(DefaultSlot, pos, a, retries)
}

// QueueActionInSlot queues a in the given slot using the given policy.
// PositionInParallel ignores slot and allocates a new one.
func (l *List) QueueActionInSlot(slot SlotHandle, pos Position, a action.Action, retries int) (action.Tag, error) {
	return l.QueueActionTagged(slot, pos, action.InvalidTag, a, retries)
}

// QueueActionTagged is QueueActionInSlot with a caller-chosen tag.
// InvalidTag asks for an automatically assigned tag.
func (l *List) QueueActionTagged(slot SlotHandle, pos Position, tag action.Tag, a action.Action, retries int) (action.Tag, error) {
	if pos == PositionInParallel {
		_, t, err := l.addConcurrent(a, retries, tag)
		return t, err
	}
	if slot == UnknownSlot {
		slot = DefaultSlot
	}
	return l.slot(slot).queueTagged(pos, tag, a, retries)
}

// Update ticks every slot once and returns the outcomes of the actions
// that finished during this update, in slot registration order.
func (l *List) Update() []action.Outcome {
	var outcomes []action.Outcome
	for _, handle := range l.order {
		if o, done := l.queues[handle].Update(); done {
			outcomes = append(outcomes, o)
		}
	}
	return outcomes
}

// Cancel cancels actions matching withType in fromSlot, or in every slot
// when fromSlot is UnknownSlot.
func (l *List) Cancel(fromSlot SlotHandle, withType action.Type) bool {
	found := false
	for _, handle := range l.order {
		if fromSlot == UnknownSlot || fromSlot == handle {
			if l.queues[handle].Cancel(withType) {
				found = true
			}
		}
	}
	return found
}

// CancelTag cancels the action carrying tag in fromSlot, or in every slot
// when fromSlot is UnknownSlot.
func (l *List) CancelTag(tag action.Tag, fromSlot SlotHandle) bool {
	if fromSlot != UnknownSlot {
		q, ok := l.queues[fromSlot]
		if !ok {
			l.logger.Warn("no slot with handle", "slot", int(fromSlot))
			return false
		}
		return q.CancelTag(tag)
	}

	found := false
	for _, handle := range l.order {
		if l.queues[handle].CancelTag(tag) {
			if found {
				l.logger.Warn("actions in multiple slots cancelled with the same tag", "tag", uint32(tag))
			}
			found = true
		}
	}
	return found
}

// QueueLength returns the slot's outstanding work: pending actions plus one
// if there is a current action. Unregistered slots have length 0.
func (l *List) QueueLength(slot SlotHandle) int {
	q, ok := l.queues[slot]
	if !ok {
		return 0
	}
	return q.Outstanding()
}

// IsCurrAction reports whether any slot's current action has the given name.
func (l *List) IsCurrAction(name string) bool {
	for _, handle := range l.order {
		if a, _, ok := l.queues[handle].Current(); ok && a.Name() == name {
			return true
		}
	}
	return false
}

// IsCurrTag reports whether the slot's current action carries tag.
func (l *List) IsCurrTag(tag action.Tag, slot SlotHandle) bool {
	q, ok := l.queues[slot]
	if !ok {
		return false
	}
	_, t, ok := q.Current()
	return ok && t == tag
}

// Queue returns the queue registered at slot without creating it.
func (l *List) Queue(slot SlotHandle) (*Queue, bool) {
	q, ok := l.queues[slot]
	return q, ok
}

// Slots returns the registered slot handles in registration order.
func (l *List) Slots() []SlotHandle {
	out := make([]SlotHandle, len(l.order))
	copy(out, l.order)
	return out
}

// NumQueues returns the number of registered slots.
func (l *List) NumQueues() int {
	return len(l.order)
}

// IsEmpty reports whether no slot has outstanding work.
func (l *List) IsEmpty() bool {
	for _, q := range l.queues {
		if !q.IsEmpty() {
			return false
		}
	}
	return true
}

// Clear cleans up and removes every action in every slot. Slots stay registered.
func (l *List) Clear() {
	for _, handle := range l.order {
		l.queues[handle].Clear()
	}
}
