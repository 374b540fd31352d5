package dock

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/compound"
	"github.com/nomis52/botcore/motion"
	"github.com/nomis52/botcore/robot"
)

// DriveTo drives to the pre-action pose the dock will start from and then
// docks. The sequence reports the dock's type and completion.
func DriveTo(dock *Action) *compound.Sequential {
	drive := motion.NewDriveToObject(dock.object, dock.behavior.PreActionKind()).
		WithPlacementOffset(dock.params.PlacementOffsetX)
	if dock.params.ApproachAngle != nil {
		drive.WithApproachAngle(*dock.params.ApproachAngle)
	}
	return compound.NewSequential([]action.Action{drive, dock}, compound.WithProxy(1))
}

func DriveToPickupObject(object robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewPickup(object, params))
}

func DriveToPlaceOnObject(target robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewPlaceOnObject(target, params))
}

func DriveToPlaceRelObject(target robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewPlaceRelObject(target, params))
}

func DriveToRollObject(object robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewRollObject(object, params))
}

func DriveToPopAWheelie(object robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewPopAWheelie(object, params))
}

func DriveToFacePlant(object robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewFacePlant(object, params))
}

func DriveToAlignWithObject(object robot.ObjectID, distance float64, params Params) *compound.Sequential {
	return DriveTo(NewAlignWithObject(object, distance, params))
}

func DriveToCrossBridge(bridge robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewCrossBridge(bridge, params))
}

func DriveToAscendOrDescendRamp(ramp robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewAscendOrDescendRamp(ramp, params))
}

func DriveToAndMountCharger(charger robot.ObjectID, params Params) *compound.Sequential {
	return DriveTo(NewMountCharger(charger, params))
}
