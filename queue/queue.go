// Package queue provides the two containers that drive actions: Queue, a
// strictly ordered pipeline with one current action, and List, a set of
// independent Queues addressed by slot handle.
//
// # Insertion policies
//
//   - QueueAtEnd appends to the pending sequence.
//   - QueueNext inserts directly after the current action, so repeated
//     calls run in reverse call order.
//   - QueueNow cleans up and discards the current action and makes the new
//     action current. The pending sequence is untouched.
//   - QueueAtFront cleans up and resets the current action, then puts it
//     back at the front of the pending sequence behind the new action. An
//     action that refuses interruption is handled as QueueNow.
//
// All four behave like QueueAtEnd on an empty queue.
//
// # Ownership
//
// A queue owns every action handed to it. Each one is wrapped in an
// action.Runner, which runs Cleanup exactly once per attempt whether the
// action finishes, is cancelled or is discarded by QueueNow.
//
// Cancellation is synchronous: Cleanup has run before Cancel returns.
package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nomis52/botcore/action"
)

var (
	// ErrNilAction is returned when a nil action is queued.
	ErrNilAction = errors.New("refusing to queue a nil action")
	// ErrDuplicateAction is returned when the queue already holds an
	// action that reports itself a duplicate of the new one.
	ErrDuplicateAction = errors.New("duplicate action")
)

// Queue is a single ordered pipeline of actions.
// It is not safe for concurrent use; it is driven from one tick loop.
type Queue struct {
	env      *action.Env
	logger   *slog.Logger
	tags     *action.TagAllocator
	observer Observer
	slot     SlotHandle

	// actionLogger derives the logger each admitted action sees.
	actionLogger ActionLogger
	envs         map[action.Tag]*action.Env

	// current is nil only when pending is empty too.
	current *action.Runner
	pending []*action.Runner
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used by the queue.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithTagAllocator shares a tag allocator between queues.
func WithTagAllocator(tags *action.TagAllocator) Option {
	return func(q *Queue) {
		q.tags = tags
	}
}

// WithObserver registers an observer for action lifecycle events.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// ActionLogger derives a per-action logger from the queue's logger.
type ActionLogger interface {
	LoggerForAction(base *slog.Logger, tag action.Tag) *slog.Logger
}

// WithActionLogger gives every admitted action its own logger.
func WithActionLogger(l ActionLogger) Option {
	return func(q *Queue) {
		q.actionLogger = l
	}
}

func withSlot(slot SlotHandle) Option {
	return func(q *Queue) {
		q.slot = slot
	}
}

// NewQueue creates an empty queue that runs its actions against env.
func NewQueue(env *action.Env, opts ...Option) *Queue {
	q := &Queue{
		env:      env,
		logger:   env.Log(),
		observer: nopObserver{},
		slot:     DefaultSlot,
		envs:     make(map[action.Tag]*action.Env),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.tags == nil {
		q.tags = action.NewTagAllocator()
	}
	if q.observer == nil {
		q.observer = nopObserver{}
	}
	q.logger = q.logger.With("component", "action_queue", "slot", int(q.slot))
	return q
}

// QueueAtEnd appends a to the pending sequence.
func (q *Queue) QueueAtEnd(a action.Action, retries int) (action.Tag, error) {
	r, err := q.admit(a, retries, action.InvalidTag)
	if err != nil {
		return action.InvalidTag, err
	}
	q.pushBack(r)
	return r.Tag(), nil
}

// QueueNext inserts a directly after the current action.
func (q *Queue) QueueNext(a action.Action, retries int) (action.Tag, error) {
	r, err := q.admit(a, retries, action.InvalidTag)
	if err != nil {
		return action.InvalidTag, err
	}
	q.pushNext(r)
	return r.Tag(), nil
}

// QueueNow discards the current action, after cleaning it up, and makes a
// current in its place.
func (q *Queue) QueueNow(a action.Action, retries int) (action.Tag, error) {
	r, err := q.admit(a, retries, action.InvalidTag)
	if err != nil {
		return action.InvalidTag, err
	}
	q.replaceCurrent(r)
	return r.Tag(), nil
}

// QueueAtFront interrupts the current action so that a runs first and the
// interrupted action runs again, from scratch, afterwards.
func (q *Queue) QueueAtFront(a action.Action, retries int) (action.Tag, error) {
	r, err := q.admit(a, retries, action.InvalidTag)
	if err != nil {
		return action.InvalidTag, err
	}
	q.pushFront(r)
	return r.Tag(), nil
}

// queueTagged queues a with a caller-chosen tag at the given position.
func (q *Queue) queueTagged(pos Position, tag action.Tag, a action.Action, retries int) (action.Tag, error) {
	r, err := q.admit(a, retries, tag)
	if err != nil {
		return action.InvalidTag, err
	}
	switch pos {
	case PositionNext:
		q.pushNext(r)
	case PositionNow:
		q.replaceCurrent(r)
	case PositionAtFront:
		q.pushFront(r)
	case PositionNowAndClearRemaining:
		q.Cancel(action.TypeUnknown)
		q.pushBack(r)
	default:
		q.pushBack(r)
	}
	return r.Tag(), nil
}

func (q *Queue) admit(a action.Action, retries int, tag action.Tag) (*action.Runner, error) {
	if a == nil {
		q.logger.Error("refusing to queue a nil action")
		return nil, ErrNilAction
	}
	if q.IsDuplicate(a) {
		q.logger.Warn("refusing to queue duplicate action", "action", a.Name())
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAction, a.Name())
	}
	if tag == action.InvalidTag {
		tag = q.tags.Next()
	} else if err := q.tags.Reserve(tag); err != nil {
		return nil, err
	}
	if q.actionLogger != nil {
		base := q.env.Log().With("slot", int(q.slot), "tag", uint32(tag), "action", a.Name())
		q.envs[tag] = q.env.WithLogger(q.actionLogger.LoggerForAction(base, tag))
	}
	return action.NewRunner(a, tag, retries), nil
}

// envFor returns the environment r runs against.
func (q *Queue) envFor(r *action.Runner) *action.Env {
	if env, ok := q.envs[r.Tag()]; ok {
		return env
	}
	return q.env
}

func (q *Queue) pushBack(r *action.Runner) {
	if q.current == nil {
		q.current = r
	} else {
		q.pending = append(q.pending, r)
	}
	q.reportLength()
}

func (q *Queue) pushNext(r *action.Runner) {
	if q.current == nil {
		q.current = r
	} else {
		q.pending = append([]*action.Runner{r}, q.pending...)
	}
	q.reportLength()
}

func (q *Queue) replaceCurrent(r *action.Runner) {
	if q.current != nil {
		q.logger.Info("discarding current action", "action", q.current.Action().Name(), "replacement", r.Action().Name())
		q.discard(q.current)
	}
	q.current = r
	q.reportLength()
}

func (q *Queue) pushFront(r *action.Runner) {
	cur := q.current
	if cur == nil {
		q.pushBack(r)
		return
	}
	if !action.CanInterrupt(cur.Action()) {
		q.replaceCurrent(r)
		return
	}

	q.logger.Info("interrupting action to run another in front of it",
		"interrupted", cur.Action().Name(),
		"action", r.Action().Name(),
	)
	if cur.Started() {
		cur.Restart(q.envFor(cur))
	}
	q.pending = append([]*action.Runner{cur}, q.pending...)
	q.current = r
	q.reportLength()
}

// Update advances the current action by one tick. The returned bool is
// true when an action finished during this update, in which case the
// Outcome describes it. An action that used up its retry budget is
// reported with FailureAbort.
//
// The queue does not drain its pending actions after a failure; the
// caller sees the failure in the Outcome and decides.
func (q *Queue) Update() (action.Outcome, bool) {
	r := q.current
	if r == nil {
		return action.Outcome{}, false
	}

	if !r.Started() {
		q.observer.ActionStarted(q.slot, r.Tag(), r.Action().Name(), r.Action().Type(), r.Attempts()+1)
	}

	res := r.Step(q.envFor(r))
	switch res {
	case action.Running:
		return action.Outcome{}, false
	case action.FailureRetry:
		if r.ConsumeRetry() {
			q.logger.Info("retrying action",
				"action", r.Action().Name(),
				"tag", uint32(r.Tag()),
				"retries_left", r.RetriesLeft(),
			)
			r.Restart(q.envFor(r))
			return action.Outcome{}, false
		}
		q.logger.Warn("action out of retries", "action", r.Action().Name(), "tag", uint32(r.Tag()))
		return q.finishCurrent(action.FailureAbort), true
	default:
		return q.finishCurrent(res), true
	}
}

func (q *Queue) finishCurrent(res action.Result) action.Outcome {
	r := q.current
	o := r.Outcome(q.envFor(r), res)
	o.Slot = int(q.slot)

	q.discard(r)
	q.current = nil
	q.promote()

	if o.Succeeded() {
		q.logger.Debug("action completed", "action", o.Name, "tag", uint32(o.Tag), "result", o.Result.String())
	} else {
		q.logger.Warn("action failed", "action", o.Name, "tag", uint32(o.Tag), "result", o.Result.String())
	}
	q.observer.ActionFinished(o)
	q.reportLength()
	return o
}

// discard releases the runner and its tag.
func (q *Queue) discard(r *action.Runner) {
	r.Release(q.envFor(r))
	delete(q.envs, r.Tag())
	q.tags.Release(r.Tag())
}

// promote makes the first pending action current when there is none.
func (q *Queue) promote() {
	if q.current != nil || len(q.pending) == 0 {
		return
	}
	q.current = q.pending[0]
	q.pending = q.pending[1:]
}

// Cancel cleans up and removes every action whose type matches. TypeUnknown
// matches everything. It reports whether anything was cancelled.
func (q *Queue) Cancel(withType action.Type) bool {
	return q.cancelMatching(func(r *action.Runner) bool {
		return r.Action().Type().Matches(withType)
	})
}

// CancelTag cleans up and removes the action carrying tag.
func (q *Queue) CancelTag(tag action.Tag) bool {
	count := 0
	found := q.cancelMatching(func(r *action.Runner) bool {
		if r.Tag() != tag {
			return false
		}
		count++
		return true
	})
	if count > 1 {
		q.logger.Warn("multiple actions cancelled with the same tag", "tag", uint32(tag), "count", count)
	}
	return found
}

func (q *Queue) cancelMatching(match func(*action.Runner) bool) bool {
	found := false

	if q.current != nil && match(q.current) {
		q.logger.Info("cancelling current action", "action", q.current.Action().Name(), "tag", uint32(q.current.Tag()))
		q.discard(q.current)
		q.current = nil
		found = true
	}

	kept := q.pending[:0]
	for _, r := range q.pending {
		if match(r) {
			q.logger.Debug("cancelling pending action", "action", r.Action().Name(), "tag", uint32(r.Tag()))
			q.discard(r)
			found = true
			continue
		}
		kept = append(kept, r)
	}
	clear(q.pending[len(kept):])
	q.pending = kept

	q.promote()
	if found {
		q.reportLength()
	}
	return found
}

// Clear cleans up and removes every action.
func (q *Queue) Clear() {
	q.Cancel(action.TypeUnknown)
}

// IsEmpty reports whether there is neither a current nor a pending action.
func (q *Queue) IsEmpty() bool {
	return q.current == nil && len(q.pending) == 0
}

// Len returns the number of pending actions, not counting the current one.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Outstanding returns the pending count plus one if there is a current action.
func (q *Queue) Outstanding() int {
	n := len(q.pending)
	if q.current != nil {
		n++
	}
	return n
}

// Current returns the current action and its tag.
func (q *Queue) Current() (action.Action, action.Tag, bool) {
	if q.current == nil {
		return nil, action.InvalidTag, false
	}
	return q.current.Action(), q.current.Tag(), true
}

// CurrentRunning returns the current action only once it has been initialized.
func (q *Queue) CurrentRunning() (action.Action, bool) {
	if q.current == nil || !q.current.Started() {
		return nil, false
	}
	return q.current.Action(), true
}

// IsDuplicate reports whether any queued action is a duplicate of a.
func (q *Queue) IsDuplicate(a action.Action) bool {
	if q.current != nil && q.current.Action().IsDuplicateOf(a) {
		return true
	}
	for _, r := range q.pending {
		if r.Action().IsDuplicateOf(a) {
			return true
		}
	}
	return false
}

// Entries describes the queued actions, current first.
func (q *Queue) Entries() []Entry {
	entries := make([]Entry, 0, q.Outstanding())
	if q.current != nil {
		entries = append(entries, newEntry(q.current, true))
	}
	for _, r := range q.pending {
		entries = append(entries, newEntry(r, false))
	}
	return entries
}

// String lists the queued action names, current first.
func (q *Queue) String() string {
	if q.IsEmpty() {
		return "empty"
	}
	names := make([]string, 0, q.Outstanding())
	for _, e := range q.Entries() {
		names = append(names, e.Name)
	}
	return strings.Join(names, ", ")
}

func (q *Queue) reportLength() {
	q.observer.QueueLength(q.slot, q.Outstanding())
}
