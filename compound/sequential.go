package compound

import (
	"time"

	"github.com/nomis52/botcore/action"
)

// Sequential runs its children one after another and fails fast.
type Sequential struct {
	base

	index     int
	waitUntil time.Time
}

// NewSequential creates a compound that runs actions in order.
func NewSequential(actions []action.Action, opts ...Option) *Sequential {
	return &Sequential{base: newBase(actions, opts)}
}

// AddAction appends a child. A failure of a child added with ignoreFailure
// is treated as success. Children must be added before the compound runs.
func (s *Sequential) AddAction(a action.Action, ignoreFailure bool) {
	s.add(a, ignoreFailure)
}

func (s *Sequential) Name() string      { return s.name() }
func (s *Sequential) Type() action.Type { return s.actionType() }

func (s *Sequential) Init(env *action.Env) action.Result {
	s.index = 0
	s.waitUntil = time.Time{}
	return action.Success
}

func (s *Sequential) Tick(env *action.Env) action.Result {
	for s.index < len(s.children) {
		if !s.waitUntil.IsZero() {
			if env.Now().Before(s.waitUntil) {
				return action.Running
			}
			s.waitUntil = time.Time{}
		}

		c := s.children[s.index]
		res := c.runner.Step(env)
		switch {
		case res == action.Running:
			return action.Running
		case c.succeeded(res):
			c.runner.EndAttempt(env)
			c.done = true
			s.index++
			if s.delay > 0 && s.index < len(s.children) {
				s.waitUntil = env.Now().Add(s.delay)
			}
		case res == action.FailureRetry && s.retriesLeft > 0:
			s.retriesLeft--
			env.Log().Info("retrying compound",
				"action", s.Name(),
				"failed_child", c.runner.Action().Name(),
				"retries_left", s.retriesLeft)
			s.restart(env)
			return action.Running
		default:
			c.runner.EndAttempt(env)
			return res
		}
	}
	return action.Success
}

func (s *Sequential) restart(env *action.Env) {
	left := s.retriesLeft
	s.cleanupAll(env)
	s.Reset()
	s.retriesLeft = left
}

// Cleanup cleans up every child that still owes one.
func (s *Sequential) Cleanup(env *action.Env) {
	s.cleanupAll(env)
}

func (s *Sequential) Reset() {
	s.resetAll()
	s.index = 0
	s.waitUntil = time.Time{}
}

// IsDuplicateOf is always false; compounds are never deduplicated.
func (s *Sequential) IsDuplicateOf(action.Action) bool { return false }

func (s *Sequential) Completion(env *action.Env) (action.Completion, bool) {
	return s.completion(env)
}

// CanInterrupt delegates to the child currently running.
func (s *Sequential) CanInterrupt() bool {
	if s.index < len(s.children) {
		return action.CanInterrupt(s.children[s.index].runner.Action())
	}
	return true
}

// Current returns the child currently being run.
func (s *Sequential) Current() (action.Action, bool) {
	if s.index >= len(s.children) {
		return nil, false
	}
	return s.children[s.index].runner.Action(), true
}
