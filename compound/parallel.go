package compound

import "github.com/nomis52/botcore/action"

// Parallel ticks all its children every tick and succeeds once all of them
// have.
type Parallel struct {
	base
}

// NewParallel creates a compound that runs actions concurrently.
func NewParallel(actions []action.Action, opts ...Option) *Parallel {
	return &Parallel{base: newBase(actions, opts)}
}

// AddAction adds a child. A failure of a child added with ignoreFailure is
// treated as success.
func (p *Parallel) AddAction(a action.Action, ignoreFailure bool) {
	p.add(a, ignoreFailure)
}

func (p *Parallel) Name() string      { return p.name() }
func (p *Parallel) Type() action.Type { return p.actionType() }

func (p *Parallel) Init(env *action.Env) action.Result {
	return action.Success
}

func (p *Parallel) Tick(env *action.Env) action.Result {
	running := false
	for _, c := range p.children {
		if c.done {
			continue
		}
		res := c.runner.Step(env)
		switch {
		case res == action.Running:
			running = true
		case c.succeeded(res):
			c.runner.EndAttempt(env)
			c.done = true
		default:
			env.Log().Debug("parallel child failed",
				"action", p.Name(),
				"failed_child", c.runner.Action().Name(),
				"result", res)
			p.cleanupAll(env)
			return res
		}
	}
	if running {
		return action.Running
	}
	return action.Success
}

func (p *Parallel) Cleanup(env *action.Env) {
	p.cleanupAll(env)
}

func (p *Parallel) Reset() {
	p.resetAll()
}

func (p *Parallel) IsDuplicateOf(action.Action) bool { return false }

func (p *Parallel) Completion(env *action.Env) (action.Completion, bool) {
	return p.completion(env)
}

// CanInterrupt is false if any unfinished child refuses interruption.
func (p *Parallel) CanInterrupt() bool {
	for _, c := range p.children {
		if !c.done && !action.CanInterrupt(c.runner.Action()) {
			return false
		}
	}
	return true
}
