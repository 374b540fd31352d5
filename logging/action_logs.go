package logging

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/botcore/action"
)

// Limits applied by NewActionLogs when given zero.
const (
	DefaultMaxActions = 256
	DefaultMaxEntries = 200
)

// LogEntry is one captured log record.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes"`
}

// ActionLogs keeps the most recent log lines of recently run actions,
// keyed by action tag. Old actions are forgotten first.
type ActionLogs struct {
	level      slog.Level
	maxActions int
	maxEntries int

	mu    sync.RWMutex
	logs  map[action.Tag][]LogEntry
	order []action.Tag
}

// NewActionLogs captures records at or above level. Zero limits use the
// defaults.
func NewActionLogs(level slog.Level, maxActions, maxEntries int) *ActionLogs {
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ActionLogs{
		level:      level,
		maxActions: maxActions,
		maxEntries: maxEntries,
		logs:       make(map[action.Tag][]LogEntry),
	}
}

// LoggerForAction wraps base so the action's records are captured under tag.
func (s *ActionLogs) LoggerForAction(base *slog.Logger, tag action.Tag) *slog.Logger {
	return slog.New(NewCapturingHandler(base.Handler(), s, tag))
}

func (s *ActionLogs) add(tag action.Tag, e LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.logs[tag]
	if !ok {
		// Tags are reused after wrapping; treat a reappearing tag as new.
		s.order = append(s.order, tag)
		if len(s.order) > s.maxActions {
			delete(s.logs, s.order[0])
			s.order = s.order[1:]
		}
	}
	entries = append(entries, e)
	if len(entries) > s.maxEntries {
		entries = entries[len(entries)-s.maxEntries:]
	}
	s.logs[tag] = entries
}

// Logs returns a copy of the entries captured for tag.
func (s *ActionLogs) Logs(tag action.Tag) ([]LogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.logs[tag]
	if !ok {
		return nil, false
	}
	out := make([]LogEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Tags returns the tags with captured logs, oldest first.
func (s *ActionLogs) Tags() []action.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]action.Tag, len(s.order))
	copy(out, s.order)
	return out
}

// Clear forgets everything.
func (s *ActionLogs) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = make(map[action.Tag][]LogEntry)
	s.order = nil
}
