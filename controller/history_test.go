package controller

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/robot"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id string, result action.Result) Record {
	return Record{
		ID:         id,
		RequestID:  "req-" + id,
		Routine:    "pickup",
		Object:     1,
		Name:       "pickup",
		Type:       action.TypePickupObjectLow,
		Result:     result.String(),
		Attempts:   1,
		FinishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecord_Succeeded(t *testing.T) {
	assert.True(t, record("a", action.Success).Succeeded())
	assert.True(t, record("a", action.FailureProceed).Succeeded())
	assert.False(t, record("a", action.FailureAbort).Succeeded())
	assert.False(t, Record{Result: ResultCancelled}.Succeeded())
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(2)
	assert.Empty(t, s.Records())

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Save(record(fmt.Sprint(i), action.Success)))
	}

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "3", records[0].ID, "most recent first")
	assert.Equal(t, "2", records[1].ID)

	records[0].ID = "mutated"
	assert.Equal(t, "3", s.Records()[0].ID, "Records returns a copy")
}

func TestNewFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	s, err := NewFileStore(path, 10, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, s.Records())
	assert.DirExists(t, filepath.Dir(path))
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := NewFileStore(path, 10, discardLogger())
	require.NoError(t, err)

	first := record("1", action.Success)
	first.Completion = &action.Completion{Kind: action.CompletionObjectInteraction, ObjectIDs: []robot.ObjectID{1}}
	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(record("2", action.FailureAbort)))
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".tmp")

	reopened, err := NewFileStore(path, 10, discardLogger())
	require.NoError(t, err)
	records := reopened.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0].ID)
	assert.Equal(t, action.FailureAbort.String(), records[0].Result)
	assert.Equal(t, "1", records[1].ID)
	require.NotNil(t, records[1].Completion)
	assert.Equal(t, []robot.ObjectID{1}, records[1].Completion.ObjectIDs)
	assert.Equal(t, action.TypePickupObjectLow, records[1].Type)
	assert.True(t, first.FinishedAt.Equal(records[1].FinishedAt))
}

func TestFileStore_MaxRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := NewFileStore(path, 3, discardLogger())
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Save(record(fmt.Sprint(i), action.Success)))
	}

	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "5", records[0].ID)
	assert.Equal(t, "3", records[2].ID)

	smaller, err := NewFileStore(path, 1, discardLogger())
	require.NoError(t, err)
	require.Len(t, smaller.Records(), 1, "loading trims to the new maximum")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFileStore(path, 10, discardLogger())
	require.NoError(t, err, "a corrupt file is not fatal")
	assert.Empty(t, s.Records())

	require.NoError(t, s.Save(record("1", action.Success)))
	require.NoError(t, s.Reload())
	assert.Len(t, s.Records(), 1, "the next save replaces the corrupt file")
}

func TestFileStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	a, err := NewFileStore(path, 10, discardLogger())
	require.NoError(t, err)
	b, err := NewFileStore(path, 10, discardLogger())
	require.NoError(t, err)

	require.NoError(t, a.Save(record("1", action.Success)))
	assert.Empty(t, b.Records())
	require.NoError(t, b.Reload())
	assert.Len(t, b.Records(), 1)

	require.NoError(t, os.Remove(path))
	assert.Error(t, b.Reload())
}
