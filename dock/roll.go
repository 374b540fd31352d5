package dock

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/motion"
	"github.com/nomis52/botcore/robot"
)

type roll struct {
	basic
	expected robot.MarkerCode
	verifier *action.Runner
}

// NewRollObject rolls a block onto its side.
func NewRollObject(object robot.ObjectID, params Params) *Action {
	return New(object, &roll{
		basic:    basic{object: object, unset: action.TypePickAndPlaceIncomplete},
		expected: robot.NoMarker,
	}, params)
}

func (r *roll) Name() string { return "RollObject" }

func (r *roll) PreActionKind() robot.PreActionKind { return robot.PreActionRolling }

func (r *roll) SelectDockAction(env *action.Env, obj robot.Object) (Kind, error) {
	if obj.Type != robot.ObjectBlock {
		return KindNone, ErrWrongObjectType
	}
	if err := tooHighOrCarrying(env, obj); err != nil {
		return KindNone, err
	}
	// The marker on top before the roll is expected to face the robot after it.
	r.expected = robot.NoMarker
	if hasMarker(obj, obj.TopMarker.Code) {
		r.expected = obj.TopMarker.Code
	}
	return KindRollLow, nil
}

func (r *roll) Verify(env *action.Env, _ Kind) action.Result {
	if r.verifier == nil {
		st := env.Robot.State()
		if !st.LastPickOrPlaceSucceeded {
			env.Log().Info("robot reported roll failure")
			return action.FailureRetry
		}
		if st.IsCarrying() {
			env.Log().Warn("carrying an object after rolling", "carried", int(st.CarriedObject))
			return action.FailureAbort
		}
		r.verifier = action.NewSubRunner(motion.NewVisuallyVerifyObject(r.object, r.expected))
	}

	res := stepSub(env, r.verifier)
	if res.IsFailure() {
		env.Log().Warn("rolled object not seen with expected marker", "marker", int(r.expected))
		return action.FailureAbort
	}
	return res
}

func (r *roll) Cleanup(env *action.Env) {
	if r.verifier != nil {
		r.verifier.EndAttempt(env)
	}
}

func (r *roll) Reset() {
	r.expected = robot.NoMarker
	r.verifier = nil
}
