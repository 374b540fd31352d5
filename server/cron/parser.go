package cron

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/robfig/cron/v3"

	"github.com/nomis52/botcore/robot"
)

// ErrInvalidCronSpec is returned when a cron expression cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// ErrInvalidGuard is returned when a guard expression does not compile.
var ErrInvalidGuard = errors.New("invalid guard expression")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule parses a standard five field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCronSpec)
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}
	return schedule, nil
}

// GuardEnv is what a guard expression sees when a trigger fires.
//
//	!robot.OnCharger && !busy && hour >= 8
type GuardEnv struct {
	Robot   robot.State `expr:"robot"`
	Busy    bool        `expr:"busy"`
	Hour    int         `expr:"hour"`
	Weekday int         `expr:"weekday"`
}

// NewGuardEnv builds the guard environment for a trigger firing at now.
func NewGuardEnv(state robot.State, busy bool, now time.Time) GuardEnv {
	return GuardEnv{
		Robot:   state,
		Busy:    busy,
		Hour:    now.Hour(),
		Weekday: int(now.Weekday()),
	}
}

// Guard is a compiled boolean expression over a GuardEnv. The zero Guard
// always allows.
type Guard struct {
	source  string
	program *vm.Program
}

// CompileGuard compiles source. An empty source gives a guard that always
// allows.
func CompileGuard(source string) (Guard, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Guard{}, nil
	}
	program, err := expr.Compile(source, expr.Env(GuardEnv{}), expr.AsBool())
	if err != nil {
		return Guard{}, errors.Join(ErrInvalidGuard, err)
	}
	return Guard{source: source, program: program}, nil
}

// String returns the guard's source.
func (g Guard) String() string {
	return g.source
}

// Allow evaluates the guard against env.
func (g Guard) Allow(env GuardEnv) (bool, error) {
	if g.program == nil {
		return true, nil
	}
	out, err := expr.Run(g.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", g.source, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("guard %q returned %T", g.source, out)
	}
	return ok, nil
}
