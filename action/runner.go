package action

// attemptState tracks where the owned action is within its current attempt.
type attemptState int

const (
	attemptFresh attemptState = iota
	attemptRunning
	attemptDone
)

// Runner exclusively owns one Action on behalf of a queue or compound.
//
// It guarantees Cleanup runs exactly once per attempt whatever way the
// attempt ends, including an action that is released before it ever ran.
// After Release every method is a no-op, so owners never need a
// "being deleted" guard.
type Runner struct {
	action   Action
	tag      Tag
	retries  int
	attempts int

	state        attemptState
	last         Result
	needsCleanup bool
	released     bool
}

// NewRunner takes ownership of a with the given retry budget. The action is
// owed a Cleanup from the moment it is owned, so releasing it before it
// ever runs still cleans it up.
func NewRunner(a Action, tag Tag, retries int) *Runner {
	if retries < 0 {
		retries = 0
	}
	return &Runner{
		action:       a,
		tag:          tag,
		retries:      retries,
		needsCleanup: true,
	}
}

// NewSubRunner takes ownership of a child of a compound action. Unlike
// NewRunner, Cleanup is only owed once the child has been initialized, so a
// compound that fails fast never cleans up children it did not reach.
func NewSubRunner(a Action) *Runner {
	return &Runner{
		action: a,
		tag:    InvalidTag,
	}
}

// Action returns the owned action.
func (r *Runner) Action() Action {
	return r.action
}

// Tag returns the tag assigned when the action was queued.
func (r *Runner) Tag() Tag {
	return r.tag
}

// Attempts returns how many times Init has been called.
func (r *Runner) Attempts() int {
	return r.attempts
}

// RetriesLeft returns the remaining retry budget.
func (r *Runner) RetriesLeft() int {
	return r.retries
}

// Started reports whether the current attempt has been initialized.
func (r *Runner) Started() bool {
	return r.state != attemptFresh
}

// Released reports whether the owner has let go of the action.
func (r *Runner) Released() bool {
	return r.released
}

// Step advances the action by one update: Init on the first step of an
// attempt, then Tick. Once a terminal result has been reported the same
// result is returned without ticking until Restart is called.
func (r *Runner) Step(env *Env) Result {
	if r.released {
		return FailureAbort
	}

	switch r.state {
	case attemptDone:
		return r.last
	case attemptFresh:
		r.attempts++
		r.needsCleanup = true
		res := r.action.Init(env)
		if res != Success && res != Running {
			r.finish(res)
			return res
		}
		r.state = attemptRunning
	}

	res := r.action.Tick(env)
	if res.IsTerminal() {
		r.finish(res)
	}
	return res
}

func (r *Runner) finish(res Result) {
	r.state = attemptDone
	r.last = res
}

// ConsumeRetry spends one unit of retry budget, reporting false when the
// budget is already exhausted.
func (r *Runner) ConsumeRetry() bool {
	if r.retries <= 0 {
		return false
	}
	r.retries--
	return true
}

// Restart ends the current attempt (Cleanup if still owed) and resets the
// action so the next Step re-initializes it. It is used both for retries
// and for interrupting an action that will run again later.
func (r *Runner) Restart(env *Env) {
	if r.released {
		return
	}
	r.cleanup(env)
	r.action.Reset()
	r.state = attemptFresh
	r.needsCleanup = true
}

// EndAttempt runs Cleanup if it is still owed for the current attempt but
// keeps the runner reusable. Compounds use it for children that finish
// while the compound itself keeps going.
func (r *Runner) EndAttempt(env *Env) {
	if r.released {
		return
	}
	r.cleanup(env)
}

// Reset prepares the action for a fresh attempt without cleaning up. The
// owner must already have ended the previous attempt.
func (r *Runner) Reset() {
	if r.released {
		return
	}
	r.action.Reset()
	r.state = attemptFresh
}

// Release ends ownership. Cleanup runs if it is still owed for the current
// attempt. Calling Release more than once is safe.
func (r *Runner) Release(env *Env) {
	if r.released {
		return
	}
	r.cleanup(env)
	r.released = true
}

// Outcome describes the finished action for its owner's caller.
func (r *Runner) Outcome(env *Env, res Result) Outcome {
	o := Outcome{
		Slot:     -1,
		Tag:      r.tag,
		Name:     r.action.Name(),
		Type:     r.action.Type(),
		Result:   res,
		Attempts: r.attempts,
	}
	if cr, ok := r.action.(CompletionReporter); ok {
		o.Completion, o.HasCompletion = cr.Completion(env)
	}
	return o
}

func (r *Runner) cleanup(env *Env) {
	if !r.needsCleanup {
		return
	}
	r.needsCleanup = false
	r.action.Cleanup(env)
}
