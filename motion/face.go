package motion

import (
	"fmt"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// Head angles used to look at an object.
var (
	LowObjectHeadAngle  = robot.Deg(-15)
	HighObjectHeadAngle = robot.Deg(17)
)

// highObjectFraction of the robot's bounding height separates low objects
// from ones resting on something.
const highObjectFraction = 0.5

// IsHighObject reports whether obj sits higher than the robot can reach
// from the ground.
func IsHighObject(obj robot.Object, robotPose robot.Pose) bool {
	return obj.Pose.Z-robotPose.Z > highObjectFraction*robot.BoundingHeight
}

// FaceObject turns the robot and tilts its head toward an object, then
// optionally confirms it can still see the given marker.
type FaceObject struct {
	deadline
	object robot.ObjectID
	marker robot.MarkerCode
	verify bool

	verifier sub
}

// NewFaceObject faces object. With verify set, the action finishes with a
// VisuallyVerifyObject of marker (NoMarker accepts any marker).
func NewFaceObject(object robot.ObjectID, marker robot.MarkerCode, verify bool, opts ...Option) *FaceObject {
	return &FaceObject{
		deadline: newDeadline(DefaultMoveTimeout, opts),
		object:   object,
		marker:   marker,
		verify:   verify,
	}
}

func (f *FaceObject) Name() string {
	return fmt.Sprintf("FaceObject(%d)", f.object)
}

func (f *FaceObject) Type() action.Type { return action.TypeFaceObject }

func (f *FaceObject) Init(env *action.Env) action.Result {
	f.begin(env)
	obj, ok := env.World.Object(f.object)
	if !ok || !obj.PoseKnown {
		env.Log().Warn("object to face is unknown", "object", f.object)
		return action.FailureAbort
	}

	here := env.Robot.State().Pose
	if err := env.Robot.TurnToHeading(here.BearingTo(obj.Pose)); err != nil {
		env.Log().Warn("failed to turn toward object", "object", f.object, "error", err)
		return action.FailureAbort
	}

	headAngle := LowObjectHeadAngle
	if IsHighObject(obj, here) {
		headAngle = HighObjectHeadAngle
	}
	if err := env.Robot.MoveHeadToAngle(headAngle); err != nil {
		env.Log().Warn("failed to tilt head toward object", "object", f.object, "error", err)
		return action.FailureAbort
	}
	return action.Success
}

func (f *FaceObject) Tick(env *action.Env) action.Result {
	if f.verifier.active() {
		return f.verifier.step(env)
	}

	st := env.Robot.State()
	if st.Moving || st.HeadMoving {
		if f.expired(env) {
			env.Log().Info("gave up facing object", "object", f.object)
			return action.FailureRetry
		}
		return action.Running
	}

	if !f.verify {
		return action.Success
	}
	f.verifier.set(NewVisuallyVerifyObject(f.object, f.marker))
	return f.verifier.step(env)
}

func (f *FaceObject) Cleanup(env *action.Env) {
	f.verifier.cleanup(env)
}

func (f *FaceObject) Reset() {
	f.verifier.reset()
}

func (f *FaceObject) IsDuplicateOf(action.Action) bool { return false }

func (f *FaceObject) Completion(*action.Env) (action.Completion, bool) {
	return action.ObjectCompletion(f.object), true
}

// VisuallyVerifyObject moves the lift out of view and waits for a fresh
// observation of an object's marker.
type VisuallyVerifyObject struct {
	deadline
	object robot.ObjectID
	marker robot.MarkerCode

	lift sub
}

// NewVisuallyVerifyObject verifies marker on object. NoMarker accepts any
// marker.
func NewVisuallyVerifyObject(object robot.ObjectID, marker robot.MarkerCode, opts ...Option) *VisuallyVerifyObject {
	return &VisuallyVerifyObject{
		deadline: newDeadline(DefaultVerifyTimeout, opts),
		object:   object,
		marker:   marker,
	}
}

func (v *VisuallyVerifyObject) Name() string {
	return fmt.Sprintf("VisuallyVerifyObject(%d)", v.object)
}

func (v *VisuallyVerifyObject) Type() action.Type { return action.TypeVisuallyVerifyObject }

func (v *VisuallyVerifyObject) Init(env *action.Env) action.Result {
	v.begin(env)
	if _, ok := env.World.Object(v.object); !ok {
		env.Log().Warn("object to verify is unknown", "object", v.object)
		return action.FailureAbort
	}
	if env.Robot.State().IsCarrying() {
		return action.Success
	}
	v.lift.set(NewMoveLiftToHeight(robot.LiftHeightLowDock, 0))
	if res := v.lift.step(env); res != action.Success && res != action.Running {
		return res
	}
	return action.Success
}

func (v *VisuallyVerifyObject) Tick(env *action.Env) action.Result {
	if _, ok := env.World.Object(v.object); !ok {
		env.Log().Warn("verified object disappeared", "object", v.object)
		return action.FailureAbort
	}
	if seen := env.World.LastObserved(v.object, v.marker); !seen.IsZero() && seen.After(v.start) {
		return action.Success
	}

	if v.lift.active() {
		if res := v.lift.step(env); res != action.Success {
			if res != action.Running {
				env.Log().Warn("failed to move lift out of view", "result", res)
			}
			return res
		}
	}

	if !env.Robot.State().Moving && v.expired(env) {
		env.Log().Info("did not see object", "object", v.object, "marker", int(v.marker))
		return action.FailureRetry
	}
	return action.Running
}

func (v *VisuallyVerifyObject) Cleanup(env *action.Env) {
	v.lift.cleanup(env)
}

func (v *VisuallyVerifyObject) Reset() {
	v.lift.reset()
}

func (v *VisuallyVerifyObject) IsDuplicateOf(action.Action) bool { return false }
