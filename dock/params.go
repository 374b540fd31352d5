package dock

import (
	"time"

	"github.com/nomis52/botcore/robot"
)

// Default docking parameters.
const (
	DefaultSpeed = 100.0
	DefaultAccel = 200.0
	DefaultDecel = 500.0
)

// DefaultAngleTolerance bounds how far from its pre-action pose the robot
// may start docking, as an angle seen from the object.
var DefaultAngleTolerance = robot.Deg(10)

// Params tunes one docking action.
type Params struct {
	Speed float64
	Accel float64
	Decel float64

	PlacementOffsetX     float64
	PlacementOffsetY     float64
	PlacementOffsetAngle float64

	// AngleTolerance scales the distance threshold with the range to the
	// object. Zero disables the threshold.
	AngleTolerance float64

	// ApproachAngle, if set, restricts the candidate poses to the one whose
	// heading is closest to it, within approachWindow.
	ApproachAngle *float64

	// CheckForObjectOnTop aborts when something rests on the target.
	CheckForObjectOnTop bool

	// VerifyDelay is the minimum settle time before post-conditions are
	// checked. Behaviors may ask for longer.
	VerifyDelay time.Duration
}

// DefaultParams returns the parameters used when none are given.
func DefaultParams() Params {
	return Params{
		Speed:          DefaultSpeed,
		Accel:          DefaultAccel,
		Decel:          DefaultDecel,
		AngleTolerance: DefaultAngleTolerance,
	}
}

// WithApproachAngle returns a copy of p restricted to approach at angle.
func (p Params) WithApproachAngle(angle float64) Params {
	p.ApproachAngle = &angle
	return p
}
