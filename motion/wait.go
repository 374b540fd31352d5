package motion

import (
	"fmt"
	"time"

	"github.com/nomis52/botcore/action"
)

// Wait succeeds once its duration has elapsed.
type Wait struct {
	min, max time.Duration
	duration time.Duration
	start    time.Time
}

// NewWait waits for d.
func NewWait(d time.Duration) *Wait {
	return &Wait{min: d, max: d, duration: d}
}

// NewRandomWait waits for a duration drawn uniformly from [lo, hi] at
// Init time.
func NewRandomWait(lo, hi time.Duration) *Wait {
	if hi < lo {
		lo, hi = hi, lo
	}
	return &Wait{min: lo, max: hi, duration: lo}
}

func (w *Wait) Name() string {
	if w.min == w.max {
		return fmt.Sprintf("Wait(%s)", w.min)
	}
	return fmt.Sprintf("RandomWait(%s-%s)", w.min, w.max)
}

func (w *Wait) Type() action.Type { return action.TypeWait }

func (w *Wait) Init(env *action.Env) action.Result {
	w.duration = w.min
	if w.max > w.min && env.Rand != nil {
		w.duration += time.Duration(env.Rand.Int63n(int64(w.max-w.min) + 1))
	}
	w.start = env.Now()
	return action.Success
}

func (w *Wait) Tick(env *action.Env) action.Result {
	if env.Now().Sub(w.start) >= w.duration {
		return action.Success
	}
	return action.Running
}

func (w *Wait) Cleanup(*action.Env) {}

func (w *Wait) Reset() {
	w.start = time.Time{}
}

func (w *Wait) IsDuplicateOf(action.Action) bool { return false }

// Duration returns the duration chosen for the current attempt.
func (w *Wait) Duration() time.Duration {
	return w.duration
}
