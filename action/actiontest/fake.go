// Package actiontest provides a scriptable Action for exercising containers.
package actiontest

import (
	"fmt"

	"github.com/nomis52/botcore/action"
)

// Events is a shared, ordered log of lifecycle calls, e.g. "A.init".
type Events struct {
	entries []string
}

// Record appends an entry.
func (e *Events) Record(format string, args ...any) {
	e.entries = append(e.entries, fmt.Sprintf(format, args...))
}

// All returns every recorded entry in order.
func (e *Events) All() []string {
	out := make([]string, len(e.entries))
	copy(out, e.entries)
	return out
}

// Fake is an Action whose results are scripted. Counters are exported so
// tests can assert on the lifecycle.
type Fake struct {
	name       string
	actionType action.Type

	initResult  action.Result
	script      []action.Result
	tickIndex   int
	completion  *action.Completion
	uninterrupt bool
	events      *Events

	Inits    int
	Ticks    int
	Cleanups int
	Resets   int
}

// Option configures a Fake.
type Option func(*Fake)

// WithType sets the action type. The default is TypeWait.
func WithType(t action.Type) Option {
	return func(f *Fake) {
		f.actionType = t
	}
}

// WithInit sets what Init returns. The default is Success.
func WithInit(r action.Result) Option {
	return func(f *Fake) {
		f.initResult = r
	}
}

// WithTicks scripts successive Tick results. The last one repeats. With no
// script, Tick returns Success.
func WithTicks(results ...action.Result) Option {
	return func(f *Fake) {
		f.script = results
	}
}

// WithEvents records lifecycle calls into events.
func WithEvents(events *Events) Option {
	return func(f *Fake) {
		f.events = events
	}
}

// WithCompletion makes the fake report the given completion payload.
func WithCompletion(c action.Completion) Option {
	return func(f *Fake) {
		f.completion = &c
	}
}

// NotInterruptible makes the fake refuse interruption.
func NotInterruptible() Option {
	return func(f *Fake) {
		f.uninterrupt = true
	}
}

// New creates a Fake named name.
func New(name string, opts ...Option) *Fake {
	f := &Fake{
		name:       name,
		actionType: action.TypeWait,
		initResult: action.Success,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fake) Name() string       { return f.name }
func (f *Fake) Type() action.Type  { return f.actionType }
func (f *Fake) CanInterrupt() bool { return !f.uninterrupt }

func (f *Fake) Init(*action.Env) action.Result {
	f.Inits++
	f.record("init")
	return f.initResult
}

func (f *Fake) Tick(*action.Env) action.Result {
	f.Ticks++
	f.record("tick")
	if len(f.script) == 0 {
		return action.Success
	}
	i := f.tickIndex
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.tickIndex++
	return f.script[i]
}

func (f *Fake) Cleanup(*action.Env) {
	f.Cleanups++
	f.record("cleanup")
}

func (f *Fake) Reset() {
	f.Resets++
	f.tickIndex = 0
	f.record("reset")
}

// IsDuplicateOf treats fakes with the same name as duplicates.
func (f *Fake) IsDuplicateOf(other action.Action) bool {
	o, ok := other.(*Fake)
	return ok && o != f && o.name == f.name
}

func (f *Fake) Completion(*action.Env) (action.Completion, bool) {
	if f.completion == nil {
		return action.Completion{}, false
	}
	return *f.completion, true
}

func (f *Fake) record(what string) {
	if f.events != nil {
		f.events.Record("%s.%s", f.name, what)
	}
}
