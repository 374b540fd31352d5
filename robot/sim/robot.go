package sim

import (
	"fmt"
	"math"
	"sync"

	"github.com/nomis52/botcore/robot"
)

// Command names accepted by Reject.
const (
	CmdMoveHead   = "move_head"
	CmdMoveLift   = "move_lift"
	CmdTurn       = "turn"
	CmdPath       = "path"
	CmdAbortPath  = "abort_path"
	CmdDock       = "dock"
	CmdPlace      = "place_on_ground"
	CmdAbortDock  = "abort_dock"
	CmdVisionMode = "vision_mode"
	CmdTrack      = "track"
)

const (
	// observeRadius is how close an object must be to be seen.
	observeRadius = 600.0
	// placeGroundOffset is how far in front of the robot a placed object lands.
	placeGroundOffset = 40.0

	wheeliePitch   = 1.2
	facePlantPitch = -80.0 * math.Pi / 180
)

// Robot is a simulated robot. Commands take effect on the next Step.
type Robot struct {
	mu    sync.Mutex
	world *World
	clock *Clock

	state robot.State

	headTarget *float64
	liftTarget *float64
	turnTarget *float64
	pathGoal   *robot.Pose
	dock       *robot.DockCommand
	placing    bool

	failDocks int
	rejected  map[string]bool
	vision    map[robot.VisionMode]bool
	tracking  robot.ObjectID
	ramp      robot.ObjectID
	rampDir   robot.RampDirection
	charger   robot.ObjectID

	commands []string
}

// NewRobot creates a robot at the origin acting on world.
func NewRobot(world *World, clock *Clock) *Robot {
	return &Robot{
		world:    world,
		clock:    clock,
		state:    robot.State{CarriedObject: robot.NoObject},
		rejected: make(map[string]bool),
		vision: map[robot.VisionMode]bool{
			robot.VisionDetectingMarkers: true,
		},
		tracking: robot.NoObject,
		ramp:     robot.NoObject,
		charger:  robot.NoObject,
	}
}

// SetPose teleports the robot.
func (r *Robot) SetPose(p robot.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Pose = p
}

// Reject makes the named command fail to send.
func (r *Robot) Reject(cmd string, rejected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[cmd] = rejected
}

// FailDocks makes the next n dock maneuvers report physical failure.
func (r *Robot) FailDocks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failDocks = n
}

// Commands returns every accepted command, oldest first.
func (r *Robot) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

// VisionEnabled reports whether the vision mode is on.
func (r *Robot) VisionEnabled(mode robot.VisionMode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vision[mode]
}

// Tracking returns the object being tracked, or NoObject.
func (r *Robot) Tracking() robot.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracking
}

// Ramp returns the ramp the robot was told it is on.
func (r *Robot) Ramp() (robot.ObjectID, robot.RampDirection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ramp, r.rampDir
}

func (r *Robot) State() robot.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Robot) send(cmd, format string, args ...any) error {
	if r.rejected[cmd] {
		return fmt.Errorf("%s: %w", cmd, robot.ErrCommandRejected)
	}
	r.commands = append(r.commands, cmd+" "+fmt.Sprintf(format, args...))
	return nil
}

func (r *Robot) MoveHeadToAngle(angle float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdMoveHead, "%.3f", angle); err != nil {
		return err
	}
	angle = math.Max(robot.MinHeadAngle, math.Min(robot.MaxHeadAngle, angle))
	r.headTarget = &angle
	r.state.HeadMoving = true
	return nil
}

func (r *Robot) MoveLiftToHeight(height float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdMoveLift, "%.1f", height); err != nil {
		return err
	}
	r.liftTarget = &height
	r.state.LiftMoving = true
	return nil
}

func (r *Robot) TurnToHeading(heading float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdTurn, "%.3f", heading); err != nil {
		return err
	}
	r.turnTarget = &heading
	r.state.Moving = true
	return nil
}

func (r *Robot) ExecutePath(goal robot.Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdPath, "%.1f,%.1f", goal.X, goal.Y); err != nil {
		return err
	}
	r.pathGoal = &goal
	r.state.TraversingPath = true
	r.state.Moving = true
	return nil
}

func (r *Robot) AbortPath() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdAbortPath, ""); err != nil {
		return err
	}
	r.pathGoal = nil
	r.state.TraversingPath = false
	r.state.Moving = false
	return nil
}

func (r *Robot) DockWithObject(cmd robot.DockCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdDock, "%s object=%d", cmd.Maneuver, cmd.Object); err != nil {
		return err
	}
	r.dock = &cmd
	r.state.PickingOrPlacing = true
	r.state.Moving = true
	return nil
}

func (r *Robot) PlaceObjectOnGround() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdPlace, "object=%d", r.state.CarriedObject); err != nil {
		return err
	}
	r.placing = true
	r.state.PickingOrPlacing = true
	r.state.Moving = true
	return nil
}

func (r *Robot) AbortDocking() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdAbortDock, ""); err != nil {
		return err
	}
	r.dock = nil
	r.placing = false
	r.state.PickingOrPlacing = false
	r.state.Moving = false
	return nil
}

func (r *Robot) SetVisionMode(mode robot.VisionMode, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdVisionMode, "%d=%t", mode, enabled); err != nil {
		return err
	}
	r.vision[mode] = enabled
	return nil
}

func (r *Robot) TrackObject(id robot.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(CmdTrack, "object=%d", id); err != nil {
		return err
	}
	r.tracking = id
	return nil
}

func (r *Robot) SetCarriedObject(id robot.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.CarriedObject = id
}

func (r *Robot) SetOnRamp(ramp robot.ObjectID, dir robot.RampDirection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ramp, r.rampDir = ramp, dir
}

func (r *Robot) SetCharger(id robot.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.charger = id
}

// Step completes every outstanding command and publishes a new state report.
func (r *Robot) Step() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.headTarget != nil {
		r.state.HeadAngle = *r.headTarget
		r.headTarget = nil
	}
	r.state.HeadMoving = false

	if r.liftTarget != nil {
		r.state.LiftHeight = *r.liftTarget
		r.liftTarget = nil
	}
	r.state.LiftMoving = false

	if r.turnTarget != nil {
		r.state.Pose.Heading = robot.NormalizeAngle(*r.turnTarget)
		r.turnTarget = nil
	}
	if r.pathGoal != nil {
		r.state.Pose = *r.pathGoal
		r.pathGoal = nil
	}
	r.state.TraversingPath = false

	if r.dock != nil {
		r.finishDock(*r.dock)
		r.dock = nil
	}
	if r.placing {
		r.finishPlace()
		r.placing = false
	}
	r.state.PickingOrPlacing = false
	r.state.Moving = false

	if r.vision[robot.VisionDetectingMarkers] {
		r.world.observeNear(r.state.Pose, observeRadius, r.clock.Now())
	}
}

func (r *Robot) finishDock(cmd robot.DockCommand) {
	if r.failDocks > 0 {
		r.failDocks--
		r.state.LastPickOrPlaceSucceeded = false
		return
	}
	r.state.LastPickOrPlaceSucceeded = true

	target, ok := r.world.Object(cmd.Object)
	if !ok {
		r.state.LastPickOrPlaceSucceeded = false
		return
	}

	switch cmd.Maneuver {
	case robot.ManeuverPickupLow, robot.ManeuverPickupHigh:
		_ = r.world.SetObjectPose(cmd.Object, r.carriedPose())
		r.state.CarriedObject = cmd.Object
		r.state.LiftHeight = robot.LiftHeightCarry
	case robot.ManeuverPlaceLow:
		p := target.Pose
		p.X += cmd.PlacementOffsetX
		p.Y += cmd.PlacementOffsetY
		p.Z = 0
		r.dropCarried(p)
	case robot.ManeuverPlaceHigh:
		p := target.Pose
		p.Z += target.Height
		r.dropCarried(p)
	case robot.ManeuverRollLow:
		p := target.Pose
		p.Heading = robot.NormalizeAngle(p.Heading + math.Pi/2)
		_ = r.world.SetObjectPose(cmd.Object, p)
	case robot.ManeuverPopAWheelie:
		r.state.Pitch = wheeliePitch
	case robot.ManeuverFacePlant:
		r.state.Pitch = facePlantPitch
	case robot.ManeuverCrossBridge, robot.ManeuverAscendRamp, robot.ManeuverDescendRamp:
		// Come out the far side, mirrored through the object's origin.
		p := r.state.Pose
		p.X = 2*target.Pose.X - p.X
		p.Y = 2*target.Pose.Y - p.Y
		r.state.Pose = p
	case robot.ManeuverMountCharger:
		r.state.Pose = target.Pose
		r.state.OnCharger = true
	}
}

func (r *Robot) finishPlace() {
	p := r.state.Pose
	p.X += placeGroundOffset * math.Cos(p.Heading)
	p.Y += placeGroundOffset * math.Sin(p.Heading)
	p.Z = 0
	r.state.LastPickOrPlaceSucceeded = r.state.CarriedObject.IsSet()
	r.dropCarried(p)
}

func (r *Robot) dropCarried(p robot.Pose) {
	if r.state.CarriedObject.IsSet() {
		_ = r.world.SetObjectPose(r.state.CarriedObject, p)
	}
	r.state.CarriedObject = robot.NoObject
	r.state.LiftHeight = robot.LiftHeightLowDock
}

func (r *Robot) carriedPose() robot.Pose {
	p := r.state.Pose
	p.Z = robot.LiftHeightCarry
	return p
}
