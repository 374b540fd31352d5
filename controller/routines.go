package controller

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/dock"
	"github.com/nomis52/botcore/motion"
	"github.com/nomis52/botcore/robot"
)

var (
	// ErrUnknownRoutine is returned for a request naming no catalog entry.
	ErrUnknownRoutine = errors.New("unknown routine")
	// ErrMissingObject is returned when a routine needs an object and the
	// request has none.
	ErrMissingObject = errors.New("routine needs an object")
)

// defaultWait is used by the wait routine when no duration is given.
const defaultWait = time.Second

// Routine builds the action for one named request.
type Routine struct {
	Name        string
	Description string
	NeedsObject bool
	build       func(req Request, params dock.Params) (action.Action, error)
}

// Build validates req and creates a fresh action for it.
func (r Routine) Build(req Request, params dock.Params) (action.Action, error) {
	if r.NeedsObject && !req.Object.IsSet() {
		return nil, fmt.Errorf("%s: %w", r.Name, ErrMissingObject)
	}
	if req.ApproachAngleDeg != nil {
		params = params.WithApproachAngle(robot.Deg(*req.ApproachAngleDeg))
	}
	return r.build(req, params)
}

// Routines is the catalog of named requests, keyed by name.
type Routines map[string]Routine

// Get looks a routine up by name.
func (rs Routines) Get(name string) (Routine, error) {
	r, ok := rs[name]
	if !ok {
		return Routine{}, fmt.Errorf("%w %q (available: %v)", ErrUnknownRoutine, name, rs.Names())
	}
	return r, nil
}

// Names returns the sorted routine names.
func (rs Routines) Names() []string {
	names := make([]string, 0, len(rs))
	for name := range rs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func objectRoutine(name, desc string, fn func(robot.ObjectID, dock.Params) action.Action) Routine {
	return Routine{
		Name:        name,
		Description: desc,
		NeedsObject: true,
		build: func(req Request, p dock.Params) (action.Action, error) {
			return fn(req.Object, p), nil
		},
	}
}

// DefaultRoutines returns every built-in routine. Docking routines drive to
// the object first.
func DefaultRoutines() Routines {
	list := []Routine{
		objectRoutine("pickup", "Drive to an object and pick it up.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToPickupObject(id, p) }),
		objectRoutine("place_on", "Drive to an object and stack the carried object on it.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToPlaceOnObject(id, p) }),
		objectRoutine("place_rel", "Drive to an object and set the carried object down next to it.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToPlaceRelObject(id, p) }),
		{
			Name:        "place_on_ground",
			Description: "Put the carried object down where the robot stands.",
			build: func(Request, dock.Params) (action.Action, error) {
				return motion.NewPlaceObjectOnGround(), nil
			},
		},
		objectRoutine("roll", "Drive to a block and roll it.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToRollObject(id, p) }),
		objectRoutine("pop_a_wheelie", "Drive to an object and pop a wheelie against it.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToPopAWheelie(id, p) }),
		objectRoutine("face_plant", "Drive to an object and tip forward onto it.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToFacePlant(id, p) }),
		{
			Name:        "align",
			Description: "Drive to an object and line up with it at distance mm.",
			NeedsObject: true,
			build: func(req Request, p dock.Params) (action.Action, error) {
				return dock.DriveToAlignWithObject(req.Object, req.Distance, p), nil
			},
		},
		objectRoutine("cross_bridge", "Drive onto a bridge and across it.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToCrossBridge(id, p) }),
		objectRoutine("ramp", "Drive up or down a ramp.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToAscendOrDescendRamp(id, p) }),
		objectRoutine("mount_charger", "Drive to a charger and back onto it.",
			func(id robot.ObjectID, p dock.Params) action.Action { return dock.DriveToAndMountCharger(id, p) }),
		{
			Name:        "drive_to_object",
			Description: "Drive to the nearest pre-action pose of an object.",
			NeedsObject: true,
			build: func(req Request, p dock.Params) (action.Action, error) {
				kind, err := parsePreAction(req.PreAction)
				if err != nil {
					return nil, err
				}
				d := motion.NewDriveToObject(req.Object, kind)
				if p.ApproachAngle != nil {
					d.WithApproachAngle(*p.ApproachAngle)
				}
				return d, nil
			},
		},
		{
			Name:        "face_object",
			Description: "Turn to face an object and confirm it is seen.",
			NeedsObject: true,
			build: func(req Request, _ dock.Params) (action.Action, error) {
				return motion.NewFaceObject(req.Object, robot.NoMarker, true), nil
			},
		},
		{
			Name:        "wait",
			Description: "Do nothing for duration.",
			build: func(req Request, _ dock.Params) (action.Action, error) {
				d := time.Duration(req.Duration)
				if d < 0 {
					return nil, fmt.Errorf("wait: negative duration %s", d)
				}
				if d == 0 {
					d = defaultWait
				}
				return motion.NewWait(d), nil
			},
		},
	}

	rs := make(Routines, len(list))
	for _, r := range list {
		rs[r.Name] = r
	}
	return rs
}

func parsePreAction(name string) (robot.PreActionKind, error) {
	if name == "" {
		return robot.PreActionDocking, nil
	}
	for k := robot.PreActionDocking; k <= robot.PreActionPlacement; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown pre-action kind %q", name)
}
