package action

import "fmt"

// Type classifies actions for cancellation, metrics and completion payloads.
type Type int

const (
	// TypeUnknown matches every action when used as a cancellation filter.
	TypeUnknown Type = iota
	TypeCompound
	TypeWait
	TypeMoveHead
	TypeMoveLift
	TypeDriveToPose
	TypeDriveToObject
	TypeFaceObject
	TypeVisuallyVerifyObject
	TypePlaceObjectOnGround
	TypePickupObjectLow
	TypePickupObjectHigh
	TypePlaceObjectLow
	TypePlaceObjectHigh
	TypeRollObjectLow
	TypePopAWheelie
	TypeFacePlant
	TypeAlignWithObject
	TypeCrossBridge
	TypeAscendOrDescendRamp
	TypeMountCharger
	// TypePickAndPlaceIncomplete is reported by a pick or place action that
	// never got as far as choosing its maneuver.
	TypePickAndPlaceIncomplete
)

var typeNames = map[Type]string{
	TypeUnknown:                "unknown",
	TypeCompound:               "compound",
	TypeWait:                   "wait",
	TypeMoveHead:               "move_head",
	TypeMoveLift:               "move_lift",
	TypeDriveToPose:            "drive_to_pose",
	TypeDriveToObject:          "drive_to_object",
	TypeFaceObject:             "face_object",
	TypeVisuallyVerifyObject:   "visually_verify_object",
	TypePlaceObjectOnGround:    "place_object_on_ground",
	TypePickupObjectLow:        "pickup_object_low",
	TypePickupObjectHigh:       "pickup_object_high",
	TypePlaceObjectLow:         "place_object_low",
	TypePlaceObjectHigh:        "place_object_high",
	TypeRollObjectLow:          "roll_object_low",
	TypePopAWheelie:            "pop_a_wheelie",
	TypeFacePlant:              "face_plant",
	TypeAlignWithObject:        "align_with_object",
	TypeCrossBridge:            "cross_bridge",
	TypeAscendOrDescendRamp:    "ascend_or_descend_ramp",
	TypeMountCharger:           "mount_charger",
	TypePickAndPlaceIncomplete: "pick_and_place_incomplete",
}

// String returns the snake_case name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown action type %q", b)
	}
	*t = v
	return nil
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return TypeUnknown, false
}

// Matches reports whether an action of type t is selected by filter.
func (t Type) Matches(filter Type) bool {
	return filter == TypeUnknown || filter == t
}
