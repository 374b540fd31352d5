package motion

import (
	"fmt"
	"math"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// MoveHeadToAngle tilts the head and waits for it to settle.
type MoveHeadToAngle struct {
	deadline
	angle     float64
	tolerance float64
}

// NewMoveHeadToAngle clips angle to the head's range. A tolerance below
// DefaultHeadTolerance is raised to it.
func NewMoveHeadToAngle(angle, tolerance float64, opts ...Option) *MoveHeadToAngle {
	return &MoveHeadToAngle{
		deadline:  newDeadline(DefaultMoveTimeout, opts),
		angle:     math.Max(robot.MinHeadAngle, math.Min(robot.MaxHeadAngle, angle)),
		tolerance: math.Max(tolerance, DefaultHeadTolerance),
	}
}

func (m *MoveHeadToAngle) Name() string {
	return fmt.Sprintf("MoveHeadTo(%.1fdeg)", m.angle*180/math.Pi)
}

func (m *MoveHeadToAngle) Type() action.Type { return action.TypeMoveHead }

func (m *MoveHeadToAngle) inPosition(st robot.State) bool {
	return math.Abs(st.HeadAngle-m.angle) <= m.tolerance
}

func (m *MoveHeadToAngle) Init(env *action.Env) action.Result {
	m.begin(env)
	if m.inPosition(env.Robot.State()) {
		return action.Success
	}
	if err := env.Robot.MoveHeadToAngle(m.angle); err != nil {
		env.Log().Warn("failed to move head", "angle", m.angle, "error", err)
		return action.FailureAbort
	}
	return action.Success
}

func (m *MoveHeadToAngle) Tick(env *action.Env) action.Result {
	st := env.Robot.State()
	if m.inPosition(st) && !st.HeadMoving {
		return action.Success
	}
	if m.expired(env) {
		env.Log().Info("head did not reach angle", "angle", m.angle, "head_angle", st.HeadAngle)
		return action.FailureRetry
	}
	return action.Running
}

func (m *MoveHeadToAngle) Cleanup(*action.Env)              {}
func (m *MoveHeadToAngle) Reset()                           {}
func (m *MoveHeadToAngle) IsDuplicateOf(action.Action) bool { return false }

// MoveLiftToHeight raises or lowers the lift and waits for it to settle.
type MoveLiftToHeight struct {
	deadline
	height    float64
	tolerance float64
}

// NewMoveLiftToHeight moves the lift to height. A tolerance below
// DefaultLiftTolerance is raised to it.
func NewMoveLiftToHeight(height, tolerance float64, opts ...Option) *MoveLiftToHeight {
	return &MoveLiftToHeight{
		deadline:  newDeadline(DefaultMoveTimeout, opts),
		height:    height,
		tolerance: math.Max(tolerance, DefaultLiftTolerance),
	}
}

func (m *MoveLiftToHeight) Name() string {
	return fmt.Sprintf("MoveLiftTo(%.0fmm)", m.height)
}

func (m *MoveLiftToHeight) Type() action.Type { return action.TypeMoveLift }

func (m *MoveLiftToHeight) inPosition(st robot.State) bool {
	return math.Abs(st.LiftHeight-m.height) <= m.tolerance
}

func (m *MoveLiftToHeight) Init(env *action.Env) action.Result {
	m.begin(env)
	if m.inPosition(env.Robot.State()) {
		return action.Success
	}
	if err := env.Robot.MoveLiftToHeight(m.height); err != nil {
		env.Log().Warn("failed to move lift", "height", m.height, "error", err)
		return action.FailureAbort
	}
	return action.Success
}

func (m *MoveLiftToHeight) Tick(env *action.Env) action.Result {
	st := env.Robot.State()
	if m.inPosition(st) && !st.LiftMoving {
		return action.Success
	}
	if m.expired(env) {
		env.Log().Info("lift did not reach height", "height", m.height, "lift_height", st.LiftHeight)
		return action.FailureRetry
	}
	return action.Running
}

func (m *MoveLiftToHeight) Cleanup(*action.Env)              {}
func (m *MoveLiftToHeight) Reset()                           {}
func (m *MoveLiftToHeight) IsDuplicateOf(action.Action) bool { return false }
