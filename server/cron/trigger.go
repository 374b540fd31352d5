// Package cron queues configured routines on cron schedules.
//
// A Trigger calls its function every time its schedule fires. A Manager
// owns one Trigger per configured schedule and turns each firing into a
// controller request, subject to the schedule's guard expression.
//
// Example usage:
//
//	m, err := cron.NewManager(cfg.Schedules, ctrl, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()  // Wait for shutdown signal
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger executes a function according to a cron schedule.
type Trigger struct {
	name     string
	spec     string
	schedule cron.Schedule
	fn       func(at time.Time) error
	logger   *slog.Logger
	now      func() time.Time
}

// NewTrigger creates a Trigger with the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewTrigger(name, spec string, fn func(at time.Time) error, logger *slog.Logger) (*Trigger, error) {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}

	return &Trigger{
		name:     name,
		spec:     spec,
		schedule: schedule,
		fn:       fn,
		logger:   logger.With("schedule", name),
		now:      time.Now,
	}, nil
}

// Name returns the trigger's name.
func (t *Trigger) Name() string { return t.name }

// Spec returns the cron expression.
func (t *Trigger) Spec() string { return t.spec }

// Start launches a goroutine that fires according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) {
	go t.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (t *Trigger) NextRun() time.Time {
	return t.schedule.Next(t.now())
}

func (t *Trigger) loop(ctx context.Context) {
	for {
		nextRun := t.schedule.Next(t.now())
		wait := time.Until(nextRun)

		t.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			t.Fire()
		}
	}
}

// Fire runs the trigger's function now and logs the result.
func (t *Trigger) Fire() error {
	err := t.fn(t.now())
	if err != nil {
		t.logger.Warn("scheduled run failed", "error", err)
	}
	return err
}
