package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/botcore/config"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/robot"
)

// ErrUnknownSchedule is returned by Fire for a name with no schedule.
var ErrUnknownSchedule = errors.New("unknown schedule")

// What happened the last time a schedule fired.
const (
	OutcomeSubmitted = "submitted"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Target receives the requests of fired schedules.
type Target interface {
	Submit(req controller.Request) (string, error)
	State() robot.State
	Busy() bool
}

// Status describes one schedule for the status page.
type Status struct {
	Name    string    `json:"name"`
	Cron    string    `json:"cron"`
	Routine string    `json:"routine"`
	When    string    `json:"when,omitempty"`
	NextRun time.Time `json:"next_run"`

	LastRun       *time.Time `json:"last_run,omitempty"`
	LastOutcome   string     `json:"last_outcome,omitempty"`
	LastRequestID string     `json:"last_request_id,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

type schedule struct {
	cfg     config.Schedule
	guard   Guard
	trigger *Trigger

	lastRun       *time.Time
	lastOutcome   string
	lastRequestID string
	lastError     string
}

func (s *schedule) request() controller.Request {
	req := controller.Request{
		Routine:  s.cfg.Routine,
		Object:   robot.NoObject,
		Position: s.cfg.Position,
		Retries:  s.cfg.Retries,
		Source:   "schedule:" + s.cfg.Name,
	}
	if s.cfg.Object != nil {
		req.Object = *s.cfg.Object
	}
	return req
}

// Manager owns one Trigger per configured schedule.
type Manager struct {
	target    Target
	logger    *slog.Logger
	schedules []*schedule
	byName    map[string]*schedule
	mu        sync.Mutex
}

// NewManager creates a Manager for schedules. Routine names are checked
// against routines and every guard is compiled up front.
//
// Returns an error if:
//   - Any cron expression is invalid
//   - Any routine is not in routines
//   - Any guard expression does not compile
func NewManager(schedules []config.Schedule, target Target, routines controller.Routines, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		target: target,
		logger: logger,
		byName: make(map[string]*schedule, len(schedules)),
	}

	for _, cfg := range schedules {
		if _, err := routines.Get(cfg.Routine); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", cfg.Name, err)
		}
		guard, err := CompileGuard(cfg.When)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", cfg.Name, err)
		}
		s := &schedule{cfg: cfg, guard: guard}
		trigger, err := NewTrigger(cfg.Name, cfg.Cron, func(at time.Time) error {
			return m.fire(s, at)
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", cfg.Name, err)
		}
		s.trigger = trigger
		m.schedules = append(m.schedules, s)
		m.byName[cfg.Name] = s
	}

	logger.Info("cron trigger manager created", "trigger_count", len(m.schedules))
	for _, s := range m.schedules {
		logger.Info("trigger registered",
			"schedule", s.cfg.Name,
			"routine", s.cfg.Routine,
			"cron", s.cfg.Cron,
			"next_run", s.trigger.NextRun(),
		)
	}
	return m, nil
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	for _, s := range m.schedules {
		s.trigger.Start(ctx)
	}
}

// Fire runs the named schedule now, guard included.
func (m *Manager) Fire(name string) (Status, error) {
	s, ok := m.byName[name]
	if !ok {
		return Status{}, fmt.Errorf("%w %q", ErrUnknownSchedule, name)
	}
	err := s.trigger.Fire()
	return m.status(s), err
}

func (m *Manager) fire(s *schedule, at time.Time) error {
	allowed, err := s.guard.Allow(NewGuardEnv(m.target.State(), m.target.Busy(), at))
	if err != nil {
		m.record(s, at, OutcomeFailed, "", err)
		return err
	}
	if !allowed {
		m.logger.Info("scheduled routine skipped", "schedule", s.cfg.Name, "when", s.guard.String())
		m.record(s, at, OutcomeSkipped, "", nil)
		return nil
	}

	id, err := m.target.Submit(s.request())
	if err != nil {
		m.record(s, at, OutcomeFailed, "", err)
		return fmt.Errorf("submitting %s: %w", s.cfg.Routine, err)
	}
	m.logger.Info("scheduled routine submitted", "schedule", s.cfg.Name, "routine", s.cfg.Routine, "request_id", id)
	m.record(s, at, OutcomeSubmitted, id, nil)
	return nil
}

func (m *Manager) record(s *schedule, at time.Time, outcome, id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.lastRun = &at
	s.lastOutcome = outcome
	s.lastRequestID = id
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
}

func (m *Manager) status(s *schedule) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		Name:          s.cfg.Name,
		Cron:          s.cfg.Cron,
		Routine:       s.cfg.Routine,
		When:          s.guard.String(),
		NextRun:       s.trigger.NextRun(),
		LastOutcome:   s.lastOutcome,
		LastRequestID: s.lastRequestID,
		LastError:     s.lastError,
	}
	if s.lastRun != nil {
		at := *s.lastRun
		st.LastRun = &at
	}
	return st
}

// Statuses describes every schedule in configuration order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, m.status(s))
	}
	return out
}

// NextRun returns the earliest scheduled run time across all triggers.
// Returns zero time if there are no triggers.
func (m *Manager) NextRun() time.Time {
	var earliest time.Time
	for _, s := range m.schedules {
		next := s.trigger.NextRun()
		if earliest.IsZero() || next.Before(earliest) {
			earliest = next
		}
	}
	return earliest
}
