// Package compound composes several actions into one.
//
// A compound exclusively owns its children and drives them through
// action.Runner, so every child that was initialized is cleaned up exactly
// once. Children never surface a completion of their own: the compound
// reports its default payload, its proxy child's payload, or nothing.
package compound

import (
	"strings"
	"time"

	"github.com/nomis52/botcore/action"
)

const noProxy = -1

type child struct {
	runner        *action.Runner
	ignoreFailure bool
	done          bool
}

// Option configures a compound action.
type Option func(*base)

// WithProxy makes the compound report the type and completion payload of the
// child at index i.
func WithProxy(i int) Option {
	return func(b *base) {
		b.proxy = i
	}
}

// WithoutCompletion suppresses the compound's completion payload. Use it
// when the compound is an implementation detail of another action.
func WithoutCompletion() Option {
	return func(b *base) {
		b.emitCompletion = false
	}
}

// WithDelayBetween waits d between consecutive children of a sequential
// compound.
func WithDelayBetween(d time.Duration) Option {
	return func(b *base) {
		b.delay = d
	}
}

// WithRetries lets a sequential compound restart itself n times when a
// child asks to be retried.
func WithRetries(n int) Option {
	return func(b *base) {
		if n < 0 {
			n = 0
		}
		b.retries = n
	}
}

// base holds the state shared by Sequential and Parallel.
type base struct {
	children []*child

	proxy          int
	emitCompletion bool
	delay          time.Duration
	retries        int
	retriesLeft    int
}

func newBase(actions []action.Action, opts []Option) base {
	b := base{
		proxy:          noProxy,
		emitCompletion: true,
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.retriesLeft = b.retries
	for _, a := range actions {
		b.add(a, false)
	}
	return b
}

func (b *base) add(a action.Action, ignoreFailure bool) {
	if a == nil {
		return
	}
	b.children = append(b.children, &child{
		runner:        action.NewSubRunner(a),
		ignoreFailure: ignoreFailure,
	})
}

// name is "[A+B+C]".
func (b *base) name() string {
	names := make([]string, len(b.children))
	for i, c := range b.children {
		names[i] = c.runner.Action().Name()
	}
	return "[" + strings.Join(names, "+") + "]"
}

func (b *base) proxyChild() (action.Action, bool) {
	if b.proxy < 0 || b.proxy >= len(b.children) {
		return nil, false
	}
	return b.children[b.proxy].runner.Action(), true
}

func (b *base) actionType() action.Type {
	if a, ok := b.proxyChild(); ok {
		return a.Type()
	}
	return action.TypeCompound
}

func (b *base) completion(env *action.Env) (action.Completion, bool) {
	if !b.emitCompletion {
		return action.Completion{}, false
	}
	if a, ok := b.proxyChild(); ok {
		if cr, ok := a.(action.CompletionReporter); ok {
			return cr.Completion(env)
		}
		return action.Completion{}, false
	}
	return action.Completion{Kind: action.CompletionDefault}, true
}

// succeeded reports whether res lets the compound move past c.
func (c *child) succeeded(res action.Result) bool {
	switch res {
	case action.Success, action.FailureProceed:
		return true
	case action.FailureRetry, action.FailureAbort:
		return c.ignoreFailure
	default:
		return false
	}
}

func (b *base) cleanupAll(env *action.Env) {
	for _, c := range b.children {
		c.runner.EndAttempt(env)
	}
}

func (b *base) resetAll() {
	for _, c := range b.children {
		c.runner.Reset()
		c.done = false
	}
	b.retriesLeft = b.retries
}
