// Package robot defines the collaborators the action core talks to: the
// robot command channel and its state reports, the world/object model, and
// the face overlay registry.
//
// Every command is fire-and-forget. A nil error only means the command was
// accepted locally; the physical outcome shows up later in State. The
// packages above this one poll State once per tick and never block on the
// robot.
package robot

import (
	"errors"
	"time"
)

// ErrCommandRejected is returned by a Robot when a command cannot be sent.
var ErrCommandRejected = errors.New("command rejected")

// State is the most recent state report received from the robot.
// It may be stale by one tick.
type State struct {
	Pose       Pose
	HeadAngle  float64
	LiftHeight float64
	// Pitch is the body pitch angle, positive when the front is raised.
	Pitch float64

	PickingOrPlacing         bool
	Moving                   bool
	HeadMoving               bool
	LiftMoving               bool
	TraversingPath           bool
	LastPickOrPlaceSucceeded bool
	OnCharger                bool

	// CarriedObject is the object on the lift, or NoObject.
	CarriedObject ObjectID
}

// IsCarrying reports whether the robot believes an object is on its lift.
func (s State) IsCarrying() bool {
	return s.CarriedObject.IsSet()
}

// Maneuver is the physical docking routine the robot is asked to run.
type Maneuver int

const (
	ManeuverNone Maneuver = iota
	ManeuverPickupLow
	ManeuverPickupHigh
	ManeuverPlaceLow
	ManeuverPlaceHigh
	ManeuverRollLow
	ManeuverPopAWheelie
	ManeuverFacePlant
	ManeuverAlign
	ManeuverCrossBridge
	ManeuverAscendRamp
	ManeuverDescendRamp
	ManeuverMountCharger
)

// String returns a human-readable representation of the Maneuver
func (m Maneuver) String() string {
	switch m {
	case ManeuverPickupLow:
		return "pickup_low"
	case ManeuverPickupHigh:
		return "pickup_high"
	case ManeuverPlaceLow:
		return "place_low"
	case ManeuverPlaceHigh:
		return "place_high"
	case ManeuverRollLow:
		return "roll_low"
	case ManeuverPopAWheelie:
		return "pop_a_wheelie"
	case ManeuverFacePlant:
		return "face_plant"
	case ManeuverAlign:
		return "align"
	case ManeuverCrossBridge:
		return "cross_bridge"
	case ManeuverAscendRamp:
		return "ascend_ramp"
	case ManeuverDescendRamp:
		return "descend_ramp"
	case ManeuverMountCharger:
		return "mount_charger"
	default:
		return "none"
	}
}

// DockCommand asks the robot to dock with an object using the given markers.
type DockCommand struct {
	Object   ObjectID
	Maneuver Maneuver
	Marker   Marker
	// Marker2 is a second marker for maneuvers that cross the object, or nil.
	Marker2 *Marker

	Speed float64
	Accel float64
	Decel float64

	PlacementOffsetX     float64
	PlacementOffsetY     float64
	PlacementOffsetAngle float64
}

// VisionMode is a toggleable vision pipeline feature.
type VisionMode int

const (
	VisionDetectingMarkers VisionMode = iota
	VisionTracking
)

// Robot is the command channel plus the latest state report.
type Robot interface {
	State() State

	MoveHeadToAngle(angle float64) error
	MoveLiftToHeight(height float64) error
	TurnToHeading(heading float64) error
	ExecutePath(goal Pose) error
	AbortPath() error
	DockWithObject(cmd DockCommand) error
	PlaceObjectOnGround() error
	AbortDocking() error

	SetVisionMode(mode VisionMode, enabled bool) error
	TrackObject(id ObjectID) error

	// SetCarriedObject updates which object the robot believes is on its lift.
	SetCarriedObject(id ObjectID)
	SetOnRamp(ramp ObjectID, dir RampDirection)
	SetCharger(id ObjectID)
}

// World is the object model.
type World interface {
	Object(id ObjectID) (Object, bool)
	// PreActionPoses returns candidate poses of the given kind, already
	// filtered against known obstacles.
	PreActionPoses(id ObjectID, kind PreActionKind, placementOffsetX float64) []PreActionPose
	// ObjectOnTopOf returns the object resting on id, within zTolerance.
	ObjectOnTopOf(id ObjectID, zTolerance float64) (Object, bool)
	// FindObjectAt returns an object of the given type at pose, ignoring exclude.
	FindObjectAt(objType ObjectType, pose Pose, distTolerance float64, exclude ObjectID) (Object, bool)
	SetObjectPose(id ObjectID, pose Pose) error
	DeleteObject(id ObjectID)
	// ClearObject marks the object's pose as unknown without deleting it.
	ClearObject(id ObjectID)
	// LastObserved returns when the marker on the object was last seen, or
	// the zero time. NoMarker matches any marker.
	LastObserved(id ObjectID, marker MarkerCode) time.Time
	RampDirection(ramp ObjectID, from Pose) RampDirection
}

// LayerTag identifies a temporary face overlay.
type LayerTag uint32

// NoLayer is the LayerTag meaning "no overlay".
const NoLayer LayerTag = 0

// Overlays is the face animation layer registry.
type Overlays interface {
	AddFaceLayer(name string) (LayerTag, error)
	RemoveFaceLayer(tag LayerTag)
}
