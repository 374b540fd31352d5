package dock

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/motion"
	"github.com/nomis52/botcore/robot"
)

// stackLimit bounds the walk up a stack when reporting a placement.
const stackLimit = 8

type placeRelative struct {
	basic
	onGround bool
	carried  robot.ObjectID

	verifier *action.Runner
	lowering *action.Runner
}

// NewPlaceOnObject stacks the carried object on top of target.
func NewPlaceOnObject(target robot.ObjectID, params Params) *Action {
	return New(target, newPlaceRelative(target, false), params)
}

// NewPlaceRelObject sets the carried object on the ground next to target,
// offset by the placement offsets in params.
func NewPlaceRelObject(target robot.ObjectID, params Params) *Action {
	return New(target, newPlaceRelative(target, true), params)
}

func newPlaceRelative(target robot.ObjectID, onGround bool) *placeRelative {
	return &placeRelative{
		basic:    basic{object: target, unset: action.TypePickAndPlaceIncomplete},
		onGround: onGround,
		carried:  robot.NoObject,
	}
}

func (p *placeRelative) Name() string {
	if p.onGround {
		return "PlaceRelObject"
	}
	return "PlaceOnObject"
}

func (p *placeRelative) PreActionKind() robot.PreActionKind {
	if p.onGround {
		return robot.PreActionPlacement
	}
	return robot.PreActionPlacing
}

func (p *placeRelative) SelectDockAction(env *action.Env, _ robot.Object) (Kind, error) {
	st := env.Robot.State()
	if !st.IsCarrying() {
		return KindNone, ErrNotCarrying
	}
	p.carried = st.CarriedObject
	if p.onGround {
		return KindPlaceLow, nil
	}
	return KindPlaceHigh, nil
}

// Verify checks the robot let go, then looks for the placed object. A high
// placement finishes by lowering the lift.
func (p *placeRelative) Verify(env *action.Env, kind Kind) action.Result {
	if p.lowering != nil {
		return stepSub(env, p.lowering)
	}

	st := env.Robot.State()
	if p.verifier == nil {
		if !st.LastPickOrPlaceSucceeded {
			env.Log().Info("robot reported place failure")
			return action.FailureRetry
		}
		if st.IsCarrying() {
			env.Log().Warn("still carrying after placing", "carried", int(st.CarriedObject))
			return action.FailureAbort
		}
		p.verifier = action.NewSubRunner(motion.NewFaceObject(p.carried, robot.NoMarker, true))
	}

	res := stepSub(env, p.verifier)
	switch {
	case res == action.Running:
		return action.Running
	case res != action.Success:
		if kind == KindPlaceLow {
			env.Log().Info("placed object not seen, clearing it", "carried", int(p.carried))
			env.World.ClearObject(p.carried)
		} else {
			env.Log().Info("placed object not seen, assuming it is still on the lift", "carried", int(p.carried))
			env.Robot.SetCarriedObject(p.carried)
		}
		return action.FailureRetry
	case kind == KindPlaceHigh:
		p.lowering = action.NewSubRunner(motion.NewMoveLiftToHeight(robot.LiftHeightLowDock, 0))
		return stepSub(env, p.lowering)
	default:
		return action.Success
	}
}

// Completion reports the target and everything now stacked above it.
func (p *placeRelative) Completion(env *action.Env, _ Kind) (action.Completion, bool) {
	ids := []robot.ObjectID{p.object}
	for id := p.object; len(ids) < stackLimit; {
		top, ok := env.World.ObjectOnTopOf(id, onTopZTolerance)
		if !ok {
			break
		}
		ids = append(ids, top.ID)
		id = top.ID
	}
	return action.ObjectCompletion(ids...), true
}

func (p *placeRelative) Cleanup(env *action.Env) {
	for _, r := range []*action.Runner{p.verifier, p.lowering} {
		if r != nil {
			r.EndAttempt(env)
		}
	}
}

func (p *placeRelative) Reset() {
	p.carried = robot.NoObject
	p.verifier = nil
	p.lowering = nil
}
