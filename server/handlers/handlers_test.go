package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/logging"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
	"github.com/nomis52/botcore/server/cron"
	"github.com/nomis52/botcore/status"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockSubmitter struct {
	got controller.Request
	err error
}

func (m *mockSubmitter) Submit(req controller.Request) (string, error) {
	m.got = req
	return "req-42", m.err
}

func TestActionsHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		submitErr  error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "accepted",
			body:       `{"routine":"pickup","object":3,"position":"next","duration":"2s"}`,
			wantStatus: http.StatusAccepted,
			wantBody:   `"id":"req-42"`,
		},
		{
			name:       "invalid json",
			body:       `{"routine":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid JSON",
		},
		{
			name:       "unknown field",
			body:       `{"routine":"pickup","colour":"red"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "colour",
		},
		{
			name:       "missing routine",
			body:       `{"object":3}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "routine is required",
		},
		{
			name:       "unknown routine",
			body:       `{"routine":"juggle"}`,
			submitErr:  fmt.Errorf("%w %q", controller.ErrUnknownRoutine, "juggle"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "rejected",
			body:       `{"routine":"pickup"}`,
			submitErr:  controller.ErrMissingObject,
			wantStatus: http.StatusBadRequest,
			wantBody:   "needs an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockSubmitter{err: tt.submitErr}
			req := httptest.NewRequest(http.MethodPost, "/api/actions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			NewActionsHandler(s).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestActionsHandler_RequestDefaults(t *testing.T) {
	s := &mockSubmitter{}
	req := httptest.NewRequest(http.MethodPost, "/api/actions", strings.NewReader(`{"routine":"wait","duration":"1.5s"}`))
	w := httptest.NewRecorder()

	NewActionsHandler(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, robot.NoObject, s.got.Object, "object defaults to none")
	assert.Equal(t, "api", s.got.Source)
	assert.Equal(t, 1500*time.Millisecond, time.Duration(s.got.Duration))
}

type mockCanceller struct {
	slot   queue.SlotHandle
	typ    action.Type
	tag    action.Tag
	byType bool
}

func (m *mockCanceller) Cancel(slot queue.SlotHandle, t action.Type) {
	m.slot, m.typ, m.byType = slot, t, true
}

func (m *mockCanceller) CancelTag(tag action.Tag) { m.tag = tag }

func TestCancelHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       mockCanceller
	}{
		{
			name:       "by tag",
			body:       `{"tag":7}`,
			wantStatus: http.StatusAccepted,
			want:       mockCanceller{tag: 7},
		},
		{
			name:       "everything",
			body:       `{}`,
			wantStatus: http.StatusAccepted,
			want:       mockCanceller{slot: queue.UnknownSlot, typ: action.TypeUnknown, byType: true},
		},
		{
			name:       "type in slot",
			body:       `{"slot":2,"type":"wait"}`,
			wantStatus: http.StatusAccepted,
			want:       mockCanceller{slot: 2, typ: action.TypeWait, byType: true},
		},
		{
			name:       "unknown type",
			body:       `{"type":"dance"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "tag with type",
			body:       `{"tag":7,"type":"wait"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockCanceller{}
			req := httptest.NewRequest(http.MethodPost, "/api/cancel", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			NewCancelHandler(c).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.want, *c)
		})
	}
}

type mockHistory []controller.Record

func (m mockHistory) History() []controller.Record { return m }

func TestHistoryHandler(t *testing.T) {
	history := mockHistory{
		{ID: "3", Result: "success"},
		{ID: "2", Result: "cancelled"},
		{ID: "1", Result: "failure_abort"},
	}

	t.Run("All", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHistoryHandler(history).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got []controller.Record
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		require.Len(t, got, 3)
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("Limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHistoryHandler(history).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))

		var got []controller.Record
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Len(t, got, 1)
	})

	t.Run("BadLimit", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHistoryHandler(history).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=-2", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type mockLogs map[action.Tag][]logging.LogEntry

func (m mockLogs) Logs(tag action.Tag) ([]logging.LogEntry, bool) {
	l, ok := m[tag]
	return l, ok
}

func TestActionLogsHandler(t *testing.T) {
	logs := mockLogs{9: {{Level: "INFO", Message: "docking"}}}
	mux := http.NewServeMux()
	mux.Handle("GET /api/actions/{tag}/logs", NewActionLogsHandler(logs))

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/api/actions/9/logs", http.StatusOK, "docking"},
		{"/api/actions/10/logs", http.StatusNotFound, "no logs"},
		{"/api/actions/0/logs", http.StatusBadRequest, "positive"},
		{"/api/actions/nine/logs", http.StatusBadRequest, "positive"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

type mockRoutines struct{}

func (mockRoutines) Routines() controller.Routines { return controller.DefaultRoutines() }

func TestRoutinesHandler(t *testing.T) {
	w := httptest.NewRecorder()
	NewRoutinesHandler(mockRoutines{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/routines", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got []RoutineInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.NotEmpty(t, got)
	names := make([]string, 0, len(got))
	for _, r := range got {
		names = append(names, r.Name)
		if r.Name == "pickup" {
			assert.True(t, r.NeedsObject)
		}
		if r.Name == "wait" {
			assert.False(t, r.NeedsObject)
		}
	}
	assert.IsIncreasing(t, names)
}

type mockScheduleRunner struct {
	err error
}

func (m mockScheduleRunner) Fire(name string) (cron.Status, error) {
	if name != "charge" {
		return cron.Status{}, fmt.Errorf("%w %q", cron.ErrUnknownSchedule, name)
	}
	return cron.Status{Name: name, LastOutcome: cron.OutcomeSubmitted}, m.err
}

func TestFireScheduleHandler(t *testing.T) {
	tests := []struct {
		name       string
		runner     mockScheduleRunner
		path       string
		wantStatus int
	}{
		{"fired", mockScheduleRunner{}, "/api/schedules/charge/run", http.StatusOK},
		{"unknown", mockScheduleRunner{}, "/api/schedules/nope/run", http.StatusNotFound},
		{"failed", mockScheduleRunner{err: errors.New("boom")}, "/api/schedules/charge/run", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.Handle("POST /api/schedules/{name}/run", NewFireScheduleHandler(tt.runner))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

type mockStatusProvider struct {
	snap  controller.Snapshot
	board *status.Board
	next  *time.Time
}

func (m *mockStatusProvider) Snapshot() controller.Snapshot { return m.snap }
func (m *mockStatusProvider) State() robot.State            { return robot.State{OnCharger: true} }
func (m *mockStatusProvider) Board() *status.Board          { return m.board }
func (m *mockStatusProvider) Schedules() []cron.Status {
	return []cron.Status{{Name: "charge"}}
}
func (m *mockStatusProvider) NextRun() *time.Time { return m.next }

func TestAPIStatusHandler(t *testing.T) {
	board := status.NewBoard(discardLogger(), nil)
	board.ActionStarted(0, 16777216, "pickup", action.TypePickAndPlaceIncomplete, 1)
	board.QueueLength(0, 2)

	next := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	provider := &mockStatusProvider{
		board: board,
		next:  &next,
		snap: controller.Snapshot{
			Ticks: 12,
			Slots: []controller.SlotSnapshot{
				{Slot: 0, Actions: []controller.QueuedAction{
					{Entry: queue.Entry{Tag: 16777216, Name: "pickup", Current: true}, RequestID: "req-1"},
					{Entry: queue.Entry{Tag: 16777217, Name: "wait"}},
				}},
				{Slot: 1, Actions: []controller.QueuedAction{}},
			},
		},
	}

	w := httptest.NewRecorder()
	NewAPIStatusHandler(provider).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp APIStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, uint64(12), resp.Ticks)
	assert.True(t, resp.Busy)
	assert.True(t, resp.Robot.OnCharger)
	assert.Equal(t, 1, resp.Totals.Started)
	assert.Equal(t, "dev", resp.Build.Version)
	require.True(t, resp.NextRun.Scheduled)
	assert.True(t, next.Equal(*resp.NextRun.NextRun))
	require.Len(t, resp.Schedules, 1)

	require.Len(t, resp.Slots, 2)
	assert.Equal(t, queue.SlotHandle(0), resp.Slots[0].Slot.Slot)
	require.NotNil(t, resp.Slots[0].Current)
	assert.Equal(t, "pickup", resp.Slots[0].Current.Name)
	assert.Equal(t, 2, resp.Slots[0].Outstanding)
	require.Len(t, resp.Slots[0].Actions, 2)
	assert.Equal(t, "req-1", resp.Slots[0].Actions[0].RequestID)
	assert.Equal(t, queue.SlotHandle(1), resp.Slots[1].Slot.Slot, "slots the board has not seen are listed")
	assert.Empty(t, resp.Slots[1].Actions)
}

type mockWorld struct {
	err error
}

func (m mockWorld) WorldObjects() ([]robot.Object, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []robot.Object{
		{ID: 1, Type: robot.ObjectBlock, Pose: robot.Pose{X: 300}, PoseKnown: true},
		{ID: 2, Type: robot.ObjectBlock, Pose: robot.Pose{X: 300, Y: 250}, PoseKnown: true},
		{ID: 5, Type: robot.ObjectRamp, Pose: robot.Pose{X: -400}},
	}, nil
}

type emptyWorld struct{}

func (emptyWorld) WorldObjects() ([]robot.Object, error) { return nil, nil }

func TestWorldHandler(t *testing.T) {
	tests := []struct {
		name       string
		provider   WorldProvider
		path       string
		wantStatus int
		wantIDs    []robot.ObjectID
	}{
		{"all", mockWorld{}, "/api/world", http.StatusOK, []robot.ObjectID{1, 2, 5}},
		{"blocks", mockWorld{}, "/api/world?type=block", http.StatusOK, []robot.ObjectID{1, 2}},
		{"ramps", mockWorld{}, "/api/world?type=ramp", http.StatusOK, []robot.ObjectID{5}},
		{"no match", mockWorld{}, "/api/world?type=charger", http.StatusOK, []robot.ObjectID{}},
		{"empty world", emptyWorld{}, "/api/world", http.StatusOK, []robot.ObjectID{}},
		{"error", mockWorld{err: errors.New("copy failed")}, "/api/world", http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewWorldHandler(tt.provider).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantIDs == nil {
				assert.Contains(t, w.Body.String(), "copy failed")
				return
			}
			var objects []robot.Object
			require.NoError(t, json.NewDecoder(w.Body).Decode(&objects))
			ids := []robot.ObjectID{}
			for _, o := range objects {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
