package dock

import (
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// traverseSettle is the settle time after leaving a ramp or mounting the
// charger.
const traverseSettle = time.Second

type crossBridge struct {
	basic
}

// NewCrossBridge drives over a bridge, entering at the nearest end.
func NewCrossBridge(bridge robot.ObjectID, params Params) *Action {
	return New(bridge, &crossBridge{basic{object: bridge, unset: action.TypeCrossBridge}}, params)
}

func (c *crossBridge) Name() string { return "CrossBridge" }

func (c *crossBridge) PreActionKind() robot.PreActionKind { return robot.PreActionEntry }

func (c *crossBridge) SelectDockAction(*action.Env, robot.Object) (Kind, error) {
	return KindCrossBridge, nil
}

// DockMarker2 is the marker at the far end of the bridge.
func (c *crossBridge) DockMarker2(poses []robot.PreActionPose, closest int) *robot.Marker {
	if len(poses) != 2 {
		return nil
	}
	m := poses[1-closest].Marker
	return &m
}

func (c *crossBridge) Verify(*action.Env, Kind) action.Result {
	return action.Success
}

type rampTraverse struct {
	basic
}

// NewAscendOrDescendRamp drives up or down a ramp depending on which end
// the robot starts from.
func NewAscendOrDescendRamp(ramp robot.ObjectID, params Params) *Action {
	return New(ramp, &rampTraverse{basic{object: ramp, unset: action.TypeAscendOrDescendRamp}}, params)
}

func (r *rampTraverse) Name() string { return "AscendOrDescendRamp" }

func (r *rampTraverse) PreActionKind() robot.PreActionKind { return robot.PreActionEntry }

func (r *rampTraverse) SelectDockAction(env *action.Env, obj robot.Object) (Kind, error) {
	if obj.Type != robot.ObjectRamp {
		return KindNone, ErrWrongObjectType
	}
	dir := env.World.RampDirection(obj.ID, env.Robot.State().Pose)
	env.Robot.SetOnRamp(obj.ID, dir)
	switch dir {
	case robot.RampAscending:
		return KindAscendRamp, nil
	case robot.RampDescending:
		return KindDescendRamp, nil
	default:
		return KindNone, ErrUnknownRampDirection
	}
}

func (r *rampTraverse) ActionType(Kind) action.Type { return action.TypeAscendOrDescendRamp }

func (r *rampTraverse) VerifyDelay() time.Duration { return traverseSettle }

func (r *rampTraverse) Verify(*action.Env, Kind) action.Result {
	return action.Success
}

type mountCharger struct {
	basic
}

// NewMountCharger backs the robot onto a charger.
func NewMountCharger(charger robot.ObjectID, params Params) *Action {
	return New(charger, &mountCharger{basic{object: charger, unset: action.TypeMountCharger}}, params)
}

func (m *mountCharger) Name() string { return "MountCharger" }

func (m *mountCharger) PreActionKind() robot.PreActionKind { return robot.PreActionEntry }

func (m *mountCharger) SelectDockAction(env *action.Env, obj robot.Object) (Kind, error) {
	if obj.Type != robot.ObjectCharger {
		return KindNone, ErrWrongObjectType
	}
	env.Robot.SetCharger(obj.ID)
	return KindMountCharger, nil
}

func (m *mountCharger) VerifyDelay() time.Duration { return traverseSettle }

func (m *mountCharger) Verify(env *action.Env, _ Kind) action.Result {
	if !env.Robot.State().OnCharger {
		env.Log().Warn("robot is not on the charger")
		return action.FailureAbort
	}
	return action.Success
}
