// Package sim is an in-memory robot, world and face overlay registry driven
// by a manual clock. Commands sent to the robot take effect on the next
// Step, which is enough to exercise every polling path of the action core
// deterministically.
package sim

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// DefaultStep is the simulated time between ticks.
const DefaultStep = 50 * time.Millisecond

// Sim bundles the simulated collaborators.
type Sim struct {
	Clock    *Clock
	World    *World
	Robot    *Robot
	Overlays *Overlays
	Rand     *rand.Rand
}

// New creates a simulator whose random source is seeded with seed.
func New(seed int64) *Sim {
	clock := NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	world := NewWorld()
	return &Sim{
		Clock:    clock,
		World:    world,
		Robot:    NewRobot(world, clock),
		Overlays: NewOverlays(),
		Rand:     rand.New(rand.NewSource(seed)),
	}
}

// Env returns an action environment wired to the simulator. A nil logger
// uses slog.Default.
func (s *Sim) Env(logger *slog.Logger) *action.Env {
	return &action.Env{
		Robot:    s.Robot,
		World:    s.World,
		Overlays: s.Overlays,
		Clock:    s.Clock,
		Rand:     s.Rand,
		Logger:   logger,
	}
}

// Step advances the clock by d and lets the robot complete its commands.
func (s *Sim) Step(d time.Duration) {
	s.Clock.Advance(d)
	s.Robot.Step()
}

// Run owns a and drives it until it finishes or limit ticks have passed,
// stepping the simulator DefaultStep after every tick. It returns the
// final result and how many ticks were used.
func (s *Sim) Run(env *action.Env, a action.Action, limit int) (action.Result, int) {
	r := action.NewRunner(a, action.InvalidTag, 0)
	defer r.Release(env)
	for i := 1; i <= limit; i++ {
		if res := r.Step(env); res.IsTerminal() {
			return res, i
		}
		s.Step(DefaultStep)
	}
	return action.Running, limit
}

// Block returns a standard cube with id at pose.
func Block(id robot.ObjectID, pose robot.Pose) robot.Object {
	return robot.Object{
		ID:        id,
		Type:      robot.ObjectBlock,
		Pose:      pose,
		Height:    44,
		Markers:   []robot.Marker{{Code: code(id, 1), Face: 0}, {Code: code(id, 2), Face: 2}, {Code: code(id, 3), Face: 1}},
		TopMarker: robot.Marker{Code: code(id, 3), Face: 1},
	}
}

func code(id robot.ObjectID, n int) robot.MarkerCode {
	return robot.MarkerCode(10*int(id) + n)
}

// Demo object ids added by Populate.
const (
	DemoBlockA robot.ObjectID = 1
	DemoBlockB robot.ObjectID = 2
	DemoRamp   robot.ObjectID = 5
)

// Populate places two blocks and a ramp in front of the robot.
func (s *Sim) Populate() {
	s.World.AddObject(Block(DemoBlockA, robot.Pose{X: 300}))
	s.World.AddObject(Block(DemoBlockB, robot.Pose{X: 300, Y: 250}))
	s.World.AddObject(robot.Object{ID: DemoRamp, Type: robot.ObjectRamp, Pose: robot.Pose{X: -400}, Height: 30})
}
