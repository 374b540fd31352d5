// Package handlers provides HTTP handlers for the botd server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/config"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/logging"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
	"github.com/nomis52/botcore/server/cron"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Submitter queues routine requests.
type Submitter interface {
	Submit(req controller.Request) (string, error)
}

// Canceller cancels queued actions.
type Canceller interface {
	Cancel(slot queue.SlotHandle, t action.Type)
	CancelTag(tag action.Tag)
}

// HistoryProvider provides access to the completion history.
type HistoryProvider interface {
	History() []controller.Record
}

// ActionLogsProvider provides the captured logs of recent actions.
type ActionLogsProvider interface {
	Logs(tag action.Tag) ([]logging.LogEntry, bool)
}

// RoutinesProvider provides the routine catalog.
type RoutinesProvider interface {
	Routines() controller.Routines
}

// ScheduleRunner fires configured schedules on demand.
type ScheduleRunner interface {
	Fire(name string) (cron.Status, error)
}

// WorldProvider provides a snapshot of the world model.
type WorldProvider interface {
	WorldObjects() ([]robot.Object, error)
}
