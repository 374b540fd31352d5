// Package motion holds the primitive robot actions that the docking
// protocol and the routine catalog compose: waiting, head and lift moves,
// driving, facing and visually verifying objects, and placing a carried
// object on the ground.
//
// Every action sends its commands at Init and then polls robot state. Time
// based give-ups are measured with the Env clock.
package motion

import (
	"math"
	"time"

	"github.com/nomis52/botcore/action"
)

// Defaults shared by the primitives.
const (
	DefaultHeadTolerance  = 2.0 * math.Pi / 180
	DefaultLiftTolerance  = 5.0
	DefaultDistTolerance  = 10.0
	DefaultAngleTolerance = 5.0 * math.Pi / 180

	DefaultMoveTimeout   = 5 * time.Second
	DefaultDriveTimeout  = 30 * time.Second
	DefaultVerifyTimeout = time.Second
)

// Option configures a primitive.
type Option func(*deadline)

// WithTimeout overrides how long the action may run before asking to be
// retried. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(dl *deadline) {
		dl.timeout = d
	}
}

// deadline tracks when the current attempt started.
type deadline struct {
	start   time.Time
	timeout time.Duration
}

func newDeadline(timeout time.Duration, opts []Option) deadline {
	d := deadline{timeout: timeout}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d *deadline) begin(env *action.Env) {
	d.start = env.Now()
}

func (d *deadline) elapsed(env *action.Env) time.Duration {
	return env.Now().Sub(d.start)
}

func (d *deadline) expired(env *action.Env) bool {
	return d.timeout > 0 && d.elapsed(env) >= d.timeout
}

// sub runs a child action owned by a primitive.
type sub struct {
	runner *action.Runner
}

func (s *sub) set(a action.Action) {
	s.runner = action.NewSubRunner(a)
}

func (s *sub) active() bool {
	return s.runner != nil
}

func (s *sub) step(env *action.Env) action.Result {
	res := s.runner.Step(env)
	if res.IsTerminal() {
		s.runner.EndAttempt(env)
	}
	return res
}

func (s *sub) cleanup(env *action.Env) {
	if s.runner != nil {
		s.runner.EndAttempt(env)
	}
}

func (s *sub) reset() {
	s.runner = nil
}
