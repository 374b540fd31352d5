package dock

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/motion"
	"github.com/nomis52/botcore/robot"
)

// sameObjectTolerance is how close two objects of one type must be to be
// considered the same physical object.
const sameObjectTolerance = 20.0

type pickup struct {
	basic
	original robot.Pose
}

// NewPickup picks up object, choosing a low or high grab by its height.
func NewPickup(object robot.ObjectID, params Params) *Action {
	return New(object, &pickup{basic: basic{object: object, unset: action.TypePickAndPlaceIncomplete}}, params)
}

func (p *pickup) Name() string { return "PickupObject" }

func (p *pickup) PreActionKind() robot.PreActionKind { return robot.PreActionDocking }

func (p *pickup) SelectDockAction(env *action.Env, obj robot.Object) (Kind, error) {
	st := env.Robot.State()
	if st.IsCarrying() {
		return KindNone, ErrAlreadyCarrying
	}
	p.original = obj.Pose
	if motion.IsHighObject(obj, st.Pose) {
		return KindPickupHigh, nil
	}
	return KindPickupLow, nil
}

// Verify succeeds once the robot reports carrying and nothing of the same
// type, the carried object included, is still seen where the object used to
// be.
func (p *pickup) Verify(env *action.Env, _ Kind) action.Result {
	st := env.Robot.State()
	if !st.IsCarrying() {
		env.Log().Info("robot is not carrying anything after pickup")
		return action.FailureRetry
	}
	carried, ok := env.World.Object(st.CarriedObject)
	if !ok {
		env.Log().Warn("carried object is missing from the world", "carried", int(st.CarriedObject))
		return action.FailureAbort
	}

	left, found := env.World.FindObjectAt(carried.Type, p.original, 0.5*sameObjectTolerance, robot.NoObject)
	if !found {
		return action.Success
	}
	if left.ID == carried.ID {
		// The world still has the carried object on the ground, so the lift
		// is most likely empty.
		env.Robot.SetCarriedObject(robot.NoObject)
		env.Log().Info("carried object still seen at its original pose", "carried", int(carried.ID))
		return action.FailureRetry
	}
	// The object is still on the ground, so the world model holds two
	// copies of it. Keep the carried id at the observed pose.
	if err := env.World.SetObjectPose(carried.ID, left.Pose); err != nil {
		env.Log().Warn("failed to move carried object", "carried", int(carried.ID), "error", err)
	}
	env.World.DeleteObject(left.ID)
	env.Robot.SetCarriedObject(robot.NoObject)
	env.Log().Info("object still seen at its original pose", "carried", int(carried.ID))
	return action.FailureRetry
}

func (p *pickup) Completion(env *action.Env, _ Kind) (action.Completion, bool) {
	if st := env.Robot.State(); st.IsCarrying() {
		return action.ObjectCompletion(st.CarriedObject), true
	}
	return action.ObjectCompletion(p.object), true
}

func (p *pickup) Reset() {
	p.original = robot.Pose{}
}
