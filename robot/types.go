package robot

import "math"

// Physical constants of the robot, in millimetres and radians.
const (
	// BoundingHeight is the height of the robot's bounding box.
	BoundingHeight = 44.0

	// LiftHeightLowDock is the lift height used to engage an object on the ground.
	LiftHeightLowDock = 32.0
	// LiftHeightHighDock is the lift height used to engage an object resting on another.
	LiftHeightHighDock = 76.0
	// LiftHeightCarry is the lift height while carrying an object.
	LiftHeightCarry = 92.0

	// MinHeadAngle and MaxHeadAngle bound the head's travel.
	MinHeadAngle = -25.0 * math.Pi / 180
	MaxHeadAngle = 44.5 * math.Pi / 180
)

// ObjectID identifies an object in the world model.
type ObjectID int

// NoObject is the ObjectID meaning "no object".
const NoObject ObjectID = -1

// IsSet reports whether id refers to an object.
func (id ObjectID) IsSet() bool {
	return id >= 0
}

// ObjectType is the family an object belongs to.
type ObjectType int

const (
	ObjectUnknown ObjectType = iota
	ObjectBlock
	ObjectRamp
	ObjectCharger
	ObjectBridge
)

// String returns a human-readable representation of the ObjectType
func (t ObjectType) String() string {
	switch t {
	case ObjectBlock:
		return "block"
	case ObjectRamp:
		return "ramp"
	case ObjectCharger:
		return "charger"
	case ObjectBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// MarkerCode is the identity of a visual fiducial.
type MarkerCode int

// NoMarker is the MarkerCode meaning "any or no marker".
const NoMarker MarkerCode = -1

// Marker is one fiducial attached to an object face.
type Marker struct {
	Code MarkerCode
	Face int
}

// Pose is a position in millimetres plus a heading about the vertical axis.
type Pose struct {
	X, Y, Z float64
	Heading float64
}

// DistanceTo returns the 3D distance between the two positions.
func (p Pose) DistanceTo(o Pose) float64 {
	return math.Sqrt((p.X-o.X)*(p.X-o.X) + (p.Y-o.Y)*(p.Y-o.Y) + (p.Z-o.Z)*(p.Z-o.Z))
}

// RectifiedOffset returns |dx| and |dy| between the two positions.
func (p Pose) RectifiedOffset(o Pose) (float64, float64) {
	return math.Abs(p.X - o.X), math.Abs(p.Y - o.Y)
}

// BearingTo returns the world-frame heading that points from p toward o.
func (p Pose) BearingTo(o Pose) float64 {
	return math.Atan2(o.Y-p.Y, o.X-p.X)
}

// IsSameAs reports whether the poses match within the given tolerances.
func (p Pose) IsSameAs(o Pose, distTol, angleTol float64) bool {
	if p.DistanceTo(o) > distTol {
		return false
	}
	return math.Abs(AngleDiff(p.Heading, o.Heading)) <= angleTol
}

// Object is the world model's view of a single object.
type Object struct {
	ID        ObjectID
	Type      ObjectType
	Pose      Pose
	PoseKnown bool
	// Height is the object's vertical extent.
	Height float64
	// Markers lists the fiducials on the object; TopMarker is the one facing up.
	Markers   []Marker
	TopMarker Marker
}

// PreActionKind is the purpose a pre-action pose serves.
type PreActionKind int

const (
	PreActionDocking PreActionKind = iota
	PreActionPlacing
	PreActionRolling
	PreActionEntry
	PreActionPlacement
)

// String returns a human-readable representation of the PreActionKind
func (k PreActionKind) String() string {
	switch k {
	case PreActionDocking:
		return "docking"
	case PreActionPlacing:
		return "placing"
	case PreActionRolling:
		return "rolling"
	case PreActionEntry:
		return "entry"
	case PreActionPlacement:
		return "placement"
	default:
		return "unknown"
	}
}

// PreActionPose is a candidate standing pose relative to one of an object's markers.
type PreActionPose struct {
	Kind   PreActionKind
	Pose   Pose
	Marker Marker
}

// RampDirection is which way a ramp will be traversed.
type RampDirection int

const (
	RampUnknown RampDirection = iota
	RampAscending
	RampDescending
)

// String returns a human-readable representation of the RampDirection
func (d RampDirection) String() string {
	switch d {
	case RampAscending:
		return "ascending"
	case RampDescending:
		return "descending"
	default:
		return "unknown"
	}
}

// AngleDiff returns a-b wrapped into (-pi, pi].
func AngleDiff(a, b float64) float64 {
	return NormalizeAngle(a - b)
}

// NormalizeAngle wraps a into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Deg converts degrees to radians.
func Deg(d float64) float64 {
	return d * math.Pi / 180
}
