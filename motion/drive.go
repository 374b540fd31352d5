package motion

import (
	"fmt"
	"math"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// DriveToPose drives the robot to a goal pose.
type DriveToPose struct {
	deadline
	goal      robot.Pose
	distTol   float64
	angleTol  float64
	commanded bool
}

// NewDriveToPose drives to goal. Zero tolerances use the defaults.
func NewDriveToPose(goal robot.Pose, distTol, angleTol float64, opts ...Option) *DriveToPose {
	if distTol <= 0 {
		distTol = DefaultDistTolerance
	}
	if angleTol <= 0 {
		angleTol = DefaultAngleTolerance
	}
	return &DriveToPose{
		deadline: newDeadline(DefaultDriveTimeout, opts),
		goal:     goal,
		distTol:  distTol,
		angleTol: angleTol,
	}
}

func (d *DriveToPose) Name() string {
	return fmt.Sprintf("DriveToPose(%.0f,%.0f)", d.goal.X, d.goal.Y)
}

func (d *DriveToPose) Type() action.Type { return action.TypeDriveToPose }

// Goal returns the goal pose.
func (d *DriveToPose) Goal() robot.Pose {
	return d.goal
}

func (d *DriveToPose) Init(env *action.Env) action.Result {
	d.begin(env)
	d.commanded = false
	if env.Robot.State().Pose.IsSameAs(d.goal, d.distTol, d.angleTol) {
		return action.Success
	}
	if err := env.Robot.ExecutePath(d.goal); err != nil {
		env.Log().Warn("failed to execute path", "goal_x", d.goal.X, "goal_y", d.goal.Y, "error", err)
		return action.FailureAbort
	}
	d.commanded = true
	return action.Success
}

func (d *DriveToPose) Tick(env *action.Env) action.Result {
	st := env.Robot.State()
	if st.TraversingPath {
		if d.expired(env) {
			env.Log().Info("gave up driving to pose", "elapsed", d.elapsed(env))
			return action.FailureRetry
		}
		return action.Running
	}
	d.commanded = false
	if st.Pose.IsSameAs(d.goal, d.distTol, d.angleTol) {
		return action.Success
	}
	env.Log().Info("path finished away from goal",
		"distance", st.Pose.DistanceTo(d.goal),
		"angle_error", math.Abs(robot.AngleDiff(st.Pose.Heading, d.goal.Heading)))
	return action.FailureRetry
}

// Cleanup aborts a path that is still being followed.
func (d *DriveToPose) Cleanup(env *action.Env) {
	if !d.commanded {
		return
	}
	d.commanded = false
	if env.Robot.State().TraversingPath {
		if err := env.Robot.AbortPath(); err != nil {
			env.Log().Warn("failed to abort path", "error", err)
		}
	}
}

func (d *DriveToPose) Reset() {
	d.commanded = false
}

func (d *DriveToPose) IsDuplicateOf(action.Action) bool { return false }

// DriveToObject drives to the nearest pre-action pose of an object.
type DriveToObject struct {
	object   robot.ObjectID
	kind     robot.PreActionKind
	opts     []Option
	offsetX  float64
	approach *float64

	drive sub
}

// NewDriveToObject drives to the nearest pose of the given kind.
func NewDriveToObject(object robot.ObjectID, kind robot.PreActionKind, opts ...Option) *DriveToObject {
	return &DriveToObject{object: object, kind: kind, opts: opts}
}

// WithPlacementOffset shifts placement poses by x along the marker normal.
func (d *DriveToObject) WithPlacementOffset(x float64) *DriveToObject {
	d.offsetX = x
	return d
}

// WithApproachAngle prefers the pose whose heading is closest to angle.
func (d *DriveToObject) WithApproachAngle(angle float64) *DriveToObject {
	d.approach = &angle
	return d
}

func (d *DriveToObject) Name() string {
	return fmt.Sprintf("DriveToObject(%d)", d.object)
}

func (d *DriveToObject) Type() action.Type { return action.TypeDriveToObject }

func (d *DriveToObject) Init(env *action.Env) action.Result {
	obj, ok := env.World.Object(d.object)
	if !ok || !obj.PoseKnown {
		env.Log().Warn("object to drive to is unknown", "object", d.object)
		return action.FailureAbort
	}

	poses := env.World.PreActionPoses(d.object, d.kind, d.offsetX)
	if len(poses) == 0 {
		env.Log().Warn("object has no pre-action poses", "object", d.object, "kind", d.kind.String())
		return action.FailureAbort
	}

	here := env.Robot.State().Pose
	best := poses[0]
	for _, p := range poses[1:] {
		if d.approach != nil {
			if math.Abs(robot.AngleDiff(p.Pose.Heading, *d.approach)) < math.Abs(robot.AngleDiff(best.Pose.Heading, *d.approach)) {
				best = p
			}
			continue
		}
		if p.Pose.DistanceTo(here) < best.Pose.DistanceTo(here) {
			best = p
		}
	}
	d.drive.set(NewDriveToPose(best.Pose, 0, 0, d.opts...))
	return d.drive.step(env)
}

func (d *DriveToObject) Tick(env *action.Env) action.Result {
	return d.drive.step(env)
}

func (d *DriveToObject) Cleanup(env *action.Env) {
	d.drive.cleanup(env)
}

func (d *DriveToObject) Reset() {
	d.drive.reset()
}

// IsDuplicateOf matches another drive to the same object.
func (d *DriveToObject) IsDuplicateOf(other action.Action) bool {
	o, ok := other.(*DriveToObject)
	return ok && o != d && o.object == d.object && o.kind == d.kind
}

func (d *DriveToObject) Completion(*action.Env) (action.Completion, bool) {
	return action.ObjectCompletion(d.object), true
}
