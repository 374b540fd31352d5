package motion

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// PlaceObjectOnGround sets the carried object down in front of the robot
// and checks that it can be seen where it was left.
type PlaceObjectOnGround struct {
	deadline
	object   robot.ObjectID
	started  bool
	verifier sub
}

// NewPlaceObjectOnGround places whatever the robot is carrying.
func NewPlaceObjectOnGround(opts ...Option) *PlaceObjectOnGround {
	return &PlaceObjectOnGround{
		deadline: newDeadline(DefaultDriveTimeout, opts),
		object:   robot.NoObject,
	}
}

func (p *PlaceObjectOnGround) Name() string { return "PlaceObjectOnGround" }

func (p *PlaceObjectOnGround) Type() action.Type { return action.TypePlaceObjectOnGround }

func (p *PlaceObjectOnGround) Init(env *action.Env) action.Result {
	p.begin(env)
	st := env.Robot.State()
	if !st.IsCarrying() {
		env.Log().Warn("not carrying an object to place")
		return action.FailureAbort
	}
	p.object = st.CarriedObject
	if err := env.Robot.PlaceObjectOnGround(); err != nil {
		env.Log().Warn("failed to place object", "object", p.object, "error", err)
		return action.FailureAbort
	}
	p.started = true
	return action.Success
}

func (p *PlaceObjectOnGround) Tick(env *action.Env) action.Result {
	if p.verifier.active() {
		res := p.verifier.step(env)
		if res.IsFailure() {
			env.Log().Info("placed object not seen, clearing it", "object", p.object)
			env.World.ClearObject(p.object)
			return action.FailureRetry
		}
		return res
	}

	st := env.Robot.State()
	if st.PickingOrPlacing || st.Moving {
		if p.expired(env) {
			return action.FailureRetry
		}
		return action.Running
	}
	p.started = false

	if !st.LastPickOrPlaceSucceeded {
		env.Log().Info("robot reported place failure", "object", p.object)
		return action.FailureRetry
	}

	p.verifier.set(NewVisuallyVerifyObject(p.object, robot.NoMarker))
	return p.verifier.step(env)
}

// Cleanup stops a placement that is still in progress.
func (p *PlaceObjectOnGround) Cleanup(env *action.Env) {
	p.verifier.cleanup(env)
	if p.started && env.Robot.State().PickingOrPlacing {
		if err := env.Robot.AbortDocking(); err != nil {
			env.Log().Warn("failed to abort placement", "error", err)
		}
	}
	p.started = false
}

func (p *PlaceObjectOnGround) Reset() {
	p.verifier.reset()
	p.object = robot.NoObject
	p.started = false
}

func (p *PlaceObjectOnGround) IsDuplicateOf(other action.Action) bool {
	o, ok := other.(*PlaceObjectOnGround)
	return ok && o != p
}

func (p *PlaceObjectOnGround) Completion(*action.Env) (action.Completion, bool) {
	return action.ObjectCompletion(p.object), true
}
