package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

// ResultCancelled marks a record whose action was cancelled before it
// finished.
const ResultCancelled = "cancelled"

// Record is one finished request in the completion history.
type Record struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id"`
	Routine   string         `json:"routine"`
	Object    robot.ObjectID `json:"object"`
	Source    string         `json:"source,omitempty"`

	Slot     int         `json:"slot"`
	Tag      action.Tag  `json:"tag"`
	Name     string      `json:"name"`
	Type     action.Type `json:"type"`
	Result   string      `json:"result"`
	Attempts int         `json:"attempts"`

	Completion *action.Completion `json:"completion,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Succeeded reports whether the record counts as a success.
func (r Record) Succeeded() bool {
	return r.Result == action.Success.String() || r.Result == action.FailureProceed.String()
}

// HistoryStore keeps finished records, most recent first.
type HistoryStore interface {
	// Records returns a copy of the history, most recent first.
	Records() []Record
	// Save adds a record.
	Save(Record) error
}

// MemoryStore keeps history in memory only.
type MemoryStore struct {
	max     int
	records []Record
	mu      sync.Mutex
}

// NewMemoryStore creates a store holding at most max records.
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{max: max}
}

func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemoryStore) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = prepend(s.records, r, s.max)
	return nil
}

// prepend keeps the most recent record first and drops the oldest beyond max.
func prepend(records []Record, r Record, max int) []Record {
	records = append([]Record{r}, records...)
	if max > 0 && len(records) > max {
		records = records[:max]
	}
	return records
}

// FileStore persists history as one JSON file which is rewritten on every
// save.
type FileStore struct {
	path    string
	max     int
	logger  *slog.Logger
	records []Record
	mu      sync.Mutex
}

// NewFileStore creates a file-backed store. The parent directory is
// created if needed and an existing history file is loaded. A corrupt file
// is logged and replaced on the next save.
func NewFileStore(path string, max int, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	s := &FileStore{path: path, max: max, logger: logger}
	records, err := s.load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		logger.Warn("failed to load history", "path", path, "error", err)
	default:
		s.records = records
		logger.Info("loaded history from disk", "path", path, "count", len(records))
	}
	return s, nil
}

func (s *FileStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *FileStore) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := prepend(s.records, r, s.max)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	s.records = records
	s.logger.Debug("saved history", "path", s.path, "count", len(records))
	return nil
}

// Reload re-reads the history file.
func (s *FileStore) Reload() error {
	records, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	return nil
}

func (s *FileStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	if s.max > 0 && len(records) > s.max {
		records = records[:s.max]
	}
	return records, nil
}
