package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid json config",
			config: Config{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name:   "valid text config",
			config: Config{Level: "debug", Format: "text", Output: "stderr"},
		},
		{
			name:   "defaults",
			config: Config{},
		},
		{
			name:   "upper case level",
			config: Config{Level: "WARN"},
		},
		{
			name:    "invalid level",
			config:  Config{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Format: "xml"},
			wantErr: true,
		},
		{
			name:    "unwritable file",
			config:  Config{Output: filepath.Join(t.TempDir(), "missing", "bot.log")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
			assert.NoError(t, closer.Close())
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	logger, closer, err := New(Config{Level: "debug", Output: path})
	require.NoError(t, err)

	logger.Debug("dock phase", "to", "verifying")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "dock phase", record["msg"])
	assert.Equal(t, "verifying", record["to"])
}

func TestNewHandler(t *testing.T) {
	t.Run("RFC3339Time", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewHandler(&buf, "json", slog.LevelInfo, false)).Info("hello")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`, record["time"])
	})

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewHandler(&buf, "text", slog.LevelInfo, false)).Info("hello", "slot", 1)
		assert.Contains(t, buf.String(), "msg=hello slot=1")
	})

	t.Run("FiltersLevel", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewHandler(&buf, "json", slog.LevelWarn, false)).Info("hidden")
		assert.Empty(t, buf.String())
	})
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(slog.New(NewHandler(&buf, "text", slog.LevelInfo, false)), "controller")
	logger.Info("started")
	assert.Contains(t, buf.String(), "component=controller")
}
