package dock

import (
	"errors"
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/motion"
	"github.com/nomis52/botcore/robot"
)

// Reasons a behavior refuses to dock with an object.
var (
	ErrAlreadyCarrying      = errors.New("already carrying an object")
	ErrNotCarrying          = errors.New("not carrying an object")
	ErrObjectTooHigh        = errors.New("object is too high")
	ErrWrongObjectType      = errors.New("wrong object type")
	ErrUnknownRampDirection = errors.New("cannot tell which way to traverse ramp")
)

// Behavior is the part of a docking action that differs per maneuver.
type Behavior interface {
	Name() string
	// PreActionKind is the kind of pose the robot must start from.
	PreActionKind() robot.PreActionKind
	// SelectDockAction chooses the maneuver for obj, or refuses.
	SelectDockAction(env *action.Env, obj robot.Object) (Kind, error)
	// Verify checks post-conditions once the maneuver is over. It is polled
	// until it stops returning Running.
	Verify(env *action.Env, kind Kind) action.Result
	// ActionType is reported before and after a kind is chosen.
	ActionType(kind Kind) action.Type
	Completion(env *action.Env, kind Kind) (action.Completion, bool)
	// VerifyDelay is the settle time this maneuver needs before Verify.
	VerifyDelay() time.Duration
	// DockMarker2 returns the second marker for maneuvers that use one.
	DockMarker2(poses []robot.PreActionPose, closest int) *robot.Marker
	// Cleanup releases anything Verify started.
	Cleanup(env *action.Env)
	Reset()
}

// basic provides the defaults most behaviors share.
type basic struct {
	object robot.ObjectID
	// unset is the type reported before a kind is chosen.
	unset action.Type
}

func (b *basic) ActionType(kind Kind) action.Type {
	if kind == KindNone {
		return b.unset
	}
	return kind.ActionType()
}

func (b *basic) Completion(*action.Env, Kind) (action.Completion, bool) {
	return action.ObjectCompletion(b.object), true
}

func (b *basic) VerifyDelay() time.Duration { return 0 }

func (b *basic) DockMarker2([]robot.PreActionPose, int) *robot.Marker { return nil }

func (b *basic) Cleanup(*action.Env) {}

func (b *basic) Reset() {}

// tooHighOrCarrying refuses objects resting on something and refuses to
// start while the lift is occupied.
func tooHighOrCarrying(env *action.Env, obj robot.Object) error {
	st := env.Robot.State()
	if st.IsCarrying() {
		return ErrAlreadyCarrying
	}
	if motion.IsHighObject(obj, st.Pose) {
		return ErrObjectTooHigh
	}
	return nil
}

func hasMarker(obj robot.Object, code robot.MarkerCode) bool {
	for _, m := range obj.Markers {
		if m.Code == code {
			return true
		}
	}
	return false
}

// stepSub drives a behavior's sub-action, cleaning it up once it finishes.
func stepSub(env *action.Env, r *action.Runner) action.Result {
	res := r.Step(env)
	if res.IsTerminal() {
		r.EndAttempt(env)
	}
	return res
}
