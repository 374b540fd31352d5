package dock

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// Body pitch thresholds that confirm the stunt maneuvers.
var (
	wheelieMinPitch   = 1.0
	facePlantMaxPitch = robot.Deg(-70)
)

type popAWheelie struct {
	basic
}

// NewPopAWheelie pushes down on a block to tip the robot onto its back.
func NewPopAWheelie(object robot.ObjectID, params Params) *Action {
	return New(object, &popAWheelie{basic{object: object, unset: action.TypePickAndPlaceIncomplete}}, params)
}

func (p *popAWheelie) Name() string { return "PopAWheelie" }

func (p *popAWheelie) PreActionKind() robot.PreActionKind { return robot.PreActionDocking }

func (p *popAWheelie) SelectDockAction(env *action.Env, obj robot.Object) (Kind, error) {
	if err := tooHighOrCarrying(env, obj); err != nil {
		return KindNone, err
	}
	return KindPopAWheelie, nil
}

func (p *popAWheelie) Verify(env *action.Env, _ Kind) action.Result {
	st := env.Robot.State()
	if !st.LastPickOrPlaceSucceeded {
		env.Log().Info("robot reported wheelie failure")
		return action.FailureRetry
	}
	if st.Pitch < wheelieMinPitch {
		env.Log().Info("robot did not tip back", "pitch", st.Pitch)
		return action.FailureRetry
	}
	return action.Success
}

type facePlant struct {
	basic
}

// NewFacePlant drives into a block to tip the robot onto its face.
func NewFacePlant(object robot.ObjectID, params Params) *Action {
	return New(object, &facePlant{basic{object: object, unset: action.TypeFacePlant}}, params)
}

func (f *facePlant) Name() string { return "FacePlant" }

func (f *facePlant) PreActionKind() robot.PreActionKind { return robot.PreActionDocking }

func (f *facePlant) SelectDockAction(env *action.Env, obj robot.Object) (Kind, error) {
	if err := tooHighOrCarrying(env, obj); err != nil {
		return KindNone, err
	}
	return KindFacePlant, nil
}

func (f *facePlant) Verify(env *action.Env, _ Kind) action.Result {
	if pitch := env.Robot.State().Pitch; pitch > facePlantMaxPitch {
		env.Log().Info("robot did not tip forward", "pitch", pitch)
		return action.FailureRetry
	}
	return action.Success
}

type align struct {
	basic
}

// NewAlignWithObject stops in front of object's marker at distance.
func NewAlignWithObject(object robot.ObjectID, distance float64, params Params) *Action {
	params.PlacementOffsetX = distance
	return New(object, &align{basic{object: object, unset: action.TypeAlignWithObject}}, params)
}

func (a *align) Name() string { return "AlignWithObject" }

func (a *align) PreActionKind() robot.PreActionKind { return robot.PreActionDocking }

func (a *align) SelectDockAction(*action.Env, robot.Object) (Kind, error) {
	return KindAlign, nil
}

func (a *align) Verify(env *action.Env, _ Kind) action.Result {
	st := env.Robot.State()
	if st.PickingOrPlacing || st.TraversingPath {
		env.Log().Warn("robot still moving after aligning")
		return action.FailureAbort
	}
	return action.Success
}
