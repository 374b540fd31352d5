package dock

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// Kind selects the physical maneuver and the post-condition check that
// apply to one docking attempt.
type Kind int

const (
	KindNone Kind = iota
	KindPickupLow
	KindPickupHigh
	KindPlaceLow
	KindPlaceHigh
	KindRollLow
	KindPopAWheelie
	KindFacePlant
	KindAlign
	KindCrossBridge
	KindAscendRamp
	KindDescendRamp
	KindMountCharger
)

// String returns a human-readable representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPickupLow:
		return "pickup_low"
	case KindPickupHigh:
		return "pickup_high"
	case KindPlaceLow:
		return "place_low"
	case KindPlaceHigh:
		return "place_high"
	case KindRollLow:
		return "roll_low"
	case KindPopAWheelie:
		return "pop_a_wheelie"
	case KindFacePlant:
		return "face_plant"
	case KindAlign:
		return "align"
	case KindCrossBridge:
		return "cross_bridge"
	case KindAscendRamp:
		return "ascend_ramp"
	case KindDescendRamp:
		return "descend_ramp"
	case KindMountCharger:
		return "mount_charger"
	}
	return "unknown"
}

// Maneuver returns the command the robot runs for k.
func (k Kind) Maneuver() robot.Maneuver {
	switch k {
	case KindNone:
		return robot.ManeuverNone
	case KindPickupLow:
		return robot.ManeuverPickupLow
	case KindPickupHigh:
		return robot.ManeuverPickupHigh
	case KindPlaceLow:
		return robot.ManeuverPlaceLow
	case KindPlaceHigh:
		return robot.ManeuverPlaceHigh
	case KindRollLow:
		return robot.ManeuverRollLow
	case KindPopAWheelie:
		return robot.ManeuverPopAWheelie
	case KindFacePlant:
		return robot.ManeuverFacePlant
	case KindAlign:
		return robot.ManeuverAlign
	case KindCrossBridge:
		return robot.ManeuverCrossBridge
	case KindAscendRamp:
		return robot.ManeuverAscendRamp
	case KindDescendRamp:
		return robot.ManeuverDescendRamp
	case KindMountCharger:
		return robot.ManeuverMountCharger
	}
	return robot.ManeuverNone
}

// ActionType returns the action type reported once k has been chosen.
func (k Kind) ActionType() action.Type {
	switch k {
	case KindNone:
		return action.TypeUnknown
	case KindPickupLow:
		return action.TypePickupObjectLow
	case KindPickupHigh:
		return action.TypePickupObjectHigh
	case KindPlaceLow:
		return action.TypePlaceObjectLow
	case KindPlaceHigh:
		return action.TypePlaceObjectHigh
	case KindRollLow:
		return action.TypeRollObjectLow
	case KindPopAWheelie:
		return action.TypePopAWheelie
	case KindFacePlant:
		return action.TypeFacePlant
	case KindAlign:
		return action.TypeAlignWithObject
	case KindCrossBridge:
		return action.TypeCrossBridge
	case KindAscendRamp, KindDescendRamp:
		return action.TypeAscendOrDescendRamp
	case KindMountCharger:
		return action.TypeMountCharger
	}
	return action.TypeUnknown
}
