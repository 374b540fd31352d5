// Package action defines the contract every orchestrated unit of robot work
// implements, and the Runner that owns one action on behalf of a queue or
// compound.
//
// An Action is a cooperative state machine. It is driven entirely by its
// owner: Init once per attempt, Tick until a terminal Result, Cleanup
// exactly once per attempt on every exit path, and Reset before being
// attempted again. Nothing in this package blocks or starts goroutines.
package action

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/nomis52/botcore/robot"
)

// Action is a single unit of robot work.
//
// IMPLEMENTATION CONTRACT:
// - Init sends whatever commands start the work and must not block.
//   Success or Running from Init means "initialized"; the owner ticks in
//   the same update. Any failure from Init ends the attempt.
// - Tick polls robot and world state and returns Running until it knows
//   the outcome. It is never called again after a terminal result until
//   Reset has been called.
// - Cleanup restores anything the action changed (vision modes, head angle,
//   face overlays). It must be idempotent and safe when Init never ran or
//   only partially ran. It never reports errors; log them instead.
// - Reset clears everything derived from a previous attempt.
// - Errors never cross this boundary: a command-send failure is FailureAbort.
type Action interface {
	Name() string
	Type() Type

	Init(env *Env) Result
	Tick(env *Env) Result
	Cleanup(env *Env)
	Reset()

	// IsDuplicateOf reports whether other would do semantically identical work.
	IsDuplicateOf(other Action) bool
}

// CompletionReporter is implemented by actions that describe what their
// terminal outcome involved. ok is false when the action suppresses its
// completion signal.
type CompletionReporter interface {
	Completion(env *Env) (c Completion, ok bool)
}

// Interrupter is implemented by actions that can refuse to be interrupted.
// Actions that do not implement it are interruptible.
type Interrupter interface {
	CanInterrupt() bool
}

// CanInterrupt reports whether a may be interrupted and re-queued.
func CanInterrupt(a Action) bool {
	if i, ok := a.(Interrupter); ok {
		return i.CanInterrupt()
	}
	return true
}

// Clock supplies the monotonic time actions use for their own timeouts.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Env is threaded through every Init, Tick and Cleanup call.
// It replaces ambient singletons so that tests can swap each collaborator.
type Env struct {
	Robot    robot.Robot
	World    robot.World
	Overlays robot.Overlays
	Clock    Clock
	Rand     *rand.Rand
	Logger   *slog.Logger
}

// Now returns the Env's clock reading.
func (e *Env) Now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

// Log returns the Env's logger, falling back to the default logger.
func (e *Env) Log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// WithLogger returns a shallow copy of e that logs through logger.
func (e *Env) WithLogger(logger *slog.Logger) *Env {
	cp := *e
	cp.Logger = logger
	return &cp
}
