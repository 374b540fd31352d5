// Package dock implements the docking protocol shared by every object
// interaction: pick up, place, roll, pop a wheelie, face plant, align,
// cross a bridge, traverse a ramp and mount the charger.
//
// One Action drives the common phases and a Behavior supplies the parts that
// differ per maneuver. The phases are tracked with a looplab/fsm machine so
// that progress shows up in logs and status reports.
package dock

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/looplab/fsm"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/motion"
	"github.com/nomis52/botcore/robot"
)

// Phases of a docking attempt.
const (
	PhaseSelectingPose        = "selecting_pose"
	PhaseVisuallyVerifying    = "visually_verifying"
	PhaseCommandingDock       = "commanding_dock"
	PhaseWaitingForCompletion = "waiting_for_completion"
	PhaseVerifying            = "verifying"
	PhaseSucceeded            = "succeeded"
	PhaseRetrying             = "retrying"
	PhaseAborted              = "aborted"
)

const (
	eventPoseSelected = "pose_selected"
	eventVerified     = "verified"
	eventCommanded    = "commanded"
	eventManeuverDone = "maneuver_done"
	eventSucceed      = "succeed"
	eventRetry        = "retry"
	eventAbort        = "abort"
)

// SquintLayer is the face overlay shown while the maneuver runs.
const SquintLayer = "dock_squint"

// approachWindow is how far a pose's heading may be from the requested
// approach angle.
var approachWindow = robot.Deg(45)

// onTopZTolerance is the vertical slack when looking for a stacked object.
const onTopZTolerance = 15.0

var activePhases = []string{
	PhaseSelectingPose,
	PhaseVisuallyVerifying,
	PhaseCommandingDock,
	PhaseWaitingForCompletion,
	PhaseVerifying,
}

func newMachine(a *Action) *fsm.FSM {
	return fsm.NewFSM(
		PhaseSelectingPose,
		fsm.Events{
			{Name: eventPoseSelected, Src: []string{PhaseSelectingPose}, Dst: PhaseVisuallyVerifying},
			{Name: eventVerified, Src: []string{PhaseVisuallyVerifying}, Dst: PhaseCommandingDock},
			{Name: eventCommanded, Src: []string{PhaseCommandingDock}, Dst: PhaseWaitingForCompletion},
			{Name: eventManeuverDone, Src: []string{PhaseWaitingForCompletion}, Dst: PhaseVerifying},
			{Name: eventSucceed, Src: activePhases, Dst: PhaseSucceeded},
			{Name: eventRetry, Src: activePhases, Dst: PhaseRetrying},
			{Name: eventAbort, Src: activePhases, Dst: PhaseAborted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				a.logger().Debug("dock phase", "from", e.Src, "to", e.Dst, "event", e.Event)
			},
		},
	)
}

// Action docks with one object using a Behavior.
type Action struct {
	behavior Behavior
	object   robot.ObjectID
	params   Params

	machine *fsm.FSM
	log     *slog.Logger

	kind    Kind
	marker  robot.Marker
	marker2 *robot.Marker

	// touched is set once Init has run, so Cleanup knows there is robot
	// state to restore.
	touched    bool
	verifier   *action.Runner
	sawDocking bool
	verifyAt   time.Time
	squint     robot.LayerTag

	emitCompletion bool
}

// New creates a docking action on object.
func New(object robot.ObjectID, behavior Behavior, params Params) *Action {
	a := &Action{
		behavior:       behavior,
		object:         object,
		params:         params,
		kind:           KindNone,
		squint:         robot.NoLayer,
		emitCompletion: true,
	}
	a.machine = newMachine(a)
	return a
}

// SuppressCompletion stops the action from reporting a completion payload.
func (a *Action) SuppressCompletion() *Action {
	a.emitCompletion = false
	return a
}

func (a *Action) Name() string { return a.behavior.Name() }

func (a *Action) Type() action.Type { return a.behavior.ActionType(a.kind) }

// Object returns the object being docked with.
func (a *Action) Object() robot.ObjectID { return a.object }

// Kind returns the maneuver chosen for the current attempt.
func (a *Action) Kind() Kind { return a.kind }

// Phase returns the current phase name.
func (a *Action) Phase() string { return a.machine.Current() }

func (a *Action) logger() *slog.Logger {
	if a.log == nil {
		return slog.Default()
	}
	return a.log
}

func (a *Action) fire(event string) {
	if err := a.machine.Event(context.Background(), event); err != nil {
		a.logger().Warn("unexpected dock phase change", "event", event, "phase", a.machine.Current(), "error", err)
	}
}

// finish records a terminal result in the phase machine.
func (a *Action) finish(res action.Result) action.Result {
	switch res {
	case action.Success, action.FailureProceed:
		a.fire(eventSucceed)
	case action.FailureRetry:
		a.fire(eventRetry)
	case action.FailureAbort:
		a.fire(eventAbort)
	}
	return res
}

func (a *Action) Init(env *action.Env) action.Result {
	a.log = env.Log().With("action", a.Name(), "object", int(a.object))
	a.touched = true
	a.sawDocking = false
	a.verifyAt = time.Time{}
	a.machine.SetState(PhaseSelectingPose)

	obj, ok := env.World.Object(a.object)
	if !ok || !obj.PoseKnown {
		a.log.Warn("object to dock with is unknown")
		return a.finish(action.FailureAbort)
	}

	poses := env.World.PreActionPoses(a.object, a.behavior.PreActionKind(), a.params.PlacementOffsetX)
	if a.params.ApproachAngle != nil {
		poses = filterApproach(poses, *a.params.ApproachAngle)
	}
	if len(poses) == 0 {
		a.log.Warn("no usable pre-action poses", "kind", a.behavior.PreActionKind().String())
		return a.finish(action.FailureAbort)
	}

	here := env.Robot.State().Pose
	closest, dx, dy := closestPose(poses, here)
	if threshold := distanceThreshold(obj.Pose, here, a.params.AngleTolerance); threshold > 0 && (dx > threshold || dy > threshold) {
		a.log.Info("too far from pre-action pose", "dx", dx, "dy", dy, "threshold", threshold)
		return a.finish(action.FailureRetry)
	}

	if a.params.CheckForObjectOnTop {
		if top, found := env.World.ObjectOnTopOf(a.object, onTopZTolerance); found {
			a.log.Warn("object has something on top", "on_top", int(top.ID))
			return a.finish(action.FailureAbort)
		}
	}

	kind, err := a.behavior.SelectDockAction(env, obj)
	if err != nil {
		a.log.Warn("cannot dock with object", "error", err)
		return a.finish(action.FailureAbort)
	}
	a.kind = kind
	a.marker = poses[closest].Marker
	a.marker2 = a.behavior.DockMarker2(poses, closest)
	a.fire(eventPoseSelected)

	a.verifier = action.NewSubRunner(motion.NewFaceObject(a.object, a.marker.Code, true))
	switch res := a.verifier.Step(env); res {
	case action.Success, action.Running:
		return action.Success
	default:
		a.log.Info("could not face object before docking", "result", res)
		return a.finish(res)
	}
}

func (a *Action) Tick(env *action.Env) action.Result {
	if a.machine.Is(PhaseVisuallyVerifying) {
		res := a.verifier.Step(env)
		if res == action.Running {
			return action.Running
		}
		a.verifier.EndAttempt(env)
		a.verifier = nil
		if res != action.Success {
			a.log.Info("object not verified before docking", "result", res)
			return a.finish(res)
		}
		a.fire(eventVerified)
	}

	if a.machine.Is(PhaseCommandingDock) {
		if err := env.Robot.DockWithObject(a.command()); err != nil {
			a.log.Warn("failed to send dock command", "error", err)
			return a.finish(action.FailureAbort)
		}
		a.fire(eventCommanded)
	}

	if a.machine.Is(PhaseWaitingForCompletion) {
		if !a.maneuverDone(env) {
			return action.Running
		}
		a.fire(eventManeuverDone)
	}

	if a.machine.Is(PhaseVerifying) {
		res := a.behavior.Verify(env, a.kind)
		if res == action.Running {
			return action.Running
		}
		a.log.Debug("dock verified", "kind", a.kind.String(), "result", res)
		return a.finish(res)
	}

	return a.terminal()
}

// terminal repeats the outcome of a finished attempt.
func (a *Action) terminal() action.Result {
	switch a.machine.Current() {
	case PhaseSucceeded:
		return action.Success
	case PhaseRetrying:
		return action.FailureRetry
	default:
		return action.FailureAbort
	}
}

func (a *Action) command() robot.DockCommand {
	return robot.DockCommand{
		Object:               a.object,
		Maneuver:             a.kind.Maneuver(),
		Marker:               a.marker,
		Marker2:              a.marker2,
		Speed:                a.params.Speed,
		Accel:                a.params.Accel,
		Decel:                a.params.Decel,
		PlacementOffsetX:     a.params.PlacementOffsetX,
		PlacementOffsetY:     a.params.PlacementOffsetY,
		PlacementOffsetAngle: a.params.PlacementOffsetAngle,
	}
}

// maneuverDone waits for the robot to report docking, then for it to stop,
// then for the settle delay.
func (a *Action) maneuverDone(env *action.Env) bool {
	st := env.Robot.State()
	if !a.sawDocking {
		if !st.PickingOrPlacing {
			return false
		}
		a.sawDocking = true
		if env.Overlays != nil {
			tag, err := env.Overlays.AddFaceLayer(SquintLayer)
			if err != nil {
				a.log.Warn("failed to add face layer", "layer", SquintLayer, "error", err)
			} else {
				a.squint = tag
			}
		}
		return false
	}

	if st.PickingOrPlacing || st.Moving {
		return false
	}
	if st.HeadMoving {
		a.verifyAt = time.Time{}
		return false
	}
	if a.verifyAt.IsZero() {
		a.verifyAt = env.Now().Add(a.verifyDelay())
	}
	return !env.Now().Before(a.verifyAt)
}

func (a *Action) verifyDelay() time.Duration {
	if d := a.behavior.VerifyDelay(); d > a.params.VerifyDelay {
		return d
	}
	return a.params.VerifyDelay
}

// Cleanup restores vision, levels the head and stops any motion the dock
// started.
func (a *Action) Cleanup(env *action.Env) {
	if a.verifier != nil {
		a.verifier.EndAttempt(env)
		a.verifier = nil
	}
	a.behavior.Cleanup(env)
	if !a.touched {
		return
	}
	a.touched = false

	log := a.logger()
	if err := env.Robot.SetVisionMode(robot.VisionDetectingMarkers, true); err != nil {
		log.Warn("failed to enable marker detection", "error", err)
	}
	if err := env.Robot.SetVisionMode(robot.VisionTracking, false); err != nil {
		log.Warn("failed to disable tracking", "error", err)
	}
	if err := env.Robot.MoveHeadToAngle(0); err != nil {
		log.Warn("failed to level head", "error", err)
	}

	st := env.Robot.State()
	if st.TraversingPath {
		if err := env.Robot.AbortPath(); err != nil {
			log.Warn("failed to abort path", "error", err)
		}
	}
	if st.PickingOrPlacing {
		if err := env.Robot.AbortDocking(); err != nil {
			log.Warn("failed to abort docking", "error", err)
		}
	}

	if a.squint != robot.NoLayer && env.Overlays != nil {
		env.Overlays.RemoveFaceLayer(a.squint)
	}
	a.squint = robot.NoLayer
}

func (a *Action) Reset() {
	a.machine.SetState(PhaseSelectingPose)
	a.kind = KindNone
	a.marker = robot.Marker{}
	a.marker2 = nil
	a.verifier = nil
	a.sawDocking = false
	a.verifyAt = time.Time{}
	a.behavior.Reset()
}

// IsDuplicateOf matches a dock with the same behavior on the same object.
func (a *Action) IsDuplicateOf(other action.Action) bool {
	o, ok := other.(*Action)
	return ok && o != a && o.object == a.object && o.behavior.Name() == a.behavior.Name()
}

func (a *Action) Completion(env *action.Env) (action.Completion, bool) {
	if !a.emitCompletion {
		return action.Completion{}, false
	}
	return a.behavior.Completion(env, a.kind)
}

// String implements fmt.Stringer.
func (a *Action) String() string {
	return fmt.Sprintf("%s(%d)[%s]", a.Name(), a.object, a.Phase())
}

// closestPose returns the index of the pose with the smallest rectified
// offset from here, and that offset.
func closestPose(poses []robot.PreActionPose, here robot.Pose) (int, float64, float64) {
	best := -1
	var bestX, bestY float64
	for i, p := range poses {
		dx, dy := p.Pose.RectifiedOffset(here)
		if best < 0 || math.Hypot(dx, dy) < math.Hypot(bestX, bestY) {
			best, bestX, bestY = i, dx, dy
		}
	}
	return best, bestX, bestY
}

// distanceThreshold is how far from a pre-action pose the robot may be,
// proportional to its 3D range from the object, so raised objects allow a
// little more slack. Negative disables the check.
func distanceThreshold(object, here robot.Pose, angleTolerance float64) float64 {
	if angleTolerance <= 0 {
		return -1
	}
	return object.DistanceTo(here) * math.Sin(angleTolerance)
}

// filterApproach keeps the pose whose heading best matches angle, if it is
// within the approach window.
func filterApproach(poses []robot.PreActionPose, angle float64) []robot.PreActionPose {
	best := -1
	bestDiff := math.Inf(1)
	for i, p := range poses {
		if d := math.Abs(robot.AngleDiff(p.Pose.Heading, angle)); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	if best < 0 || bestDiff > approachWindow {
		return nil
	}
	return poses[best : best+1]
}
