package cron

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/botcore/config"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/robot"
)

type fakeTarget struct {
	mu        sync.Mutex
	state     robot.State
	busy      bool
	submitErr error
	requests  []controller.Request
}

func (f *fakeTarget) Submit(req controller.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.requests = append(f.requests, req)
	return "req-1", nil
}

func (f *fakeTarget) State() robot.State { return f.state }
func (f *fakeTarget) Busy() bool         { return f.busy }

func objectPtr(id robot.ObjectID) *robot.ObjectID { return &id }

func TestNewManager(t *testing.T) {
	schedules := []config.Schedule{
		{Name: "charge", Cron: "0 2 * * *", Routine: "mount_charger", Object: objectPtr(9)},
		{Name: "tidy", Cron: "0 3 * * *", Routine: "place_on_ground"},
	}

	m, err := NewManager(schedules, &fakeTarget{}, controller.DefaultRoutines(), discardLogger())
	require.NoError(t, err)
	require.Len(t, m.Statuses(), 2)
	assert.Equal(t, "charge", m.Statuses()[0].Name)
	assert.Equal(t, "tidy", m.Statuses()[1].Name)
	assert.False(t, m.NextRun().IsZero())
}

func TestNewManager_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		schedule config.Schedule
		is       error
	}{
		{
			name:     "invalid cron",
			schedule: config.Schedule{Name: "x", Cron: "invalid", Routine: "wait"},
			is:       ErrInvalidCronSpec,
		},
		{
			name:     "unknown routine",
			schedule: config.Schedule{Name: "x", Cron: "0 2 * * *", Routine: "juggle"},
			is:       controller.ErrUnknownRoutine,
		},
		{
			name:     "bad guard",
			schedule: config.Schedule{Name: "x", Cron: "0 2 * * *", Routine: "wait", When: "robot. &&"},
			is:       ErrInvalidGuard,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager([]config.Schedule{tt.schedule}, &fakeTarget{}, controller.DefaultRoutines(), discardLogger())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.Contains(t, err.Error(), `schedule "x"`)
			assert.Nil(t, m)
		})
	}
}

func TestManager_Fire(t *testing.T) {
	newManager := func(t *testing.T, target *fakeTarget, when string) *Manager {
		t.Helper()
		retries := 3
		m, err := NewManager([]config.Schedule{{
			Name:     "charge",
			Cron:     "0 2 * * *",
			Routine:  "mount_charger",
			Object:   objectPtr(9),
			Position: "now",
			Retries:  &retries,
			When:     when,
		}}, target, controller.DefaultRoutines(), discardLogger())
		require.NoError(t, err)
		return m
	}

	t.Run("Submits", func(t *testing.T) {
		target := &fakeTarget{}
		m := newManager(t, target, "!robot.OnCharger")

		st, err := m.Fire("charge")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSubmitted, st.LastOutcome)
		assert.Equal(t, "req-1", st.LastRequestID)
		require.NotNil(t, st.LastRun)

		require.Len(t, target.requests, 1)
		req := target.requests[0]
		assert.Equal(t, "mount_charger", req.Routine)
		assert.Equal(t, robot.ObjectID(9), req.Object)
		assert.Equal(t, "now", req.Position)
		require.NotNil(t, req.Retries)
		assert.Equal(t, 3, *req.Retries)
		assert.Equal(t, "schedule:charge", req.Source)
	})

	t.Run("GuardSkips", func(t *testing.T) {
		target := &fakeTarget{state: robot.State{OnCharger: true}}
		m := newManager(t, target, "!robot.OnCharger")

		st, err := m.Fire("charge")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, st.LastOutcome)
		assert.Empty(t, target.requests)
	})

	t.Run("BusySkips", func(t *testing.T) {
		target := &fakeTarget{busy: true}
		m := newManager(t, target, "!busy")

		st, err := m.Fire("charge")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, st.LastOutcome)
	})

	t.Run("SubmitFails", func(t *testing.T) {
		target := &fakeTarget{submitErr: errors.New("queue full")}
		m := newManager(t, target, "")

		st, err := m.Fire("charge")
		require.Error(t, err)
		assert.Equal(t, OutcomeFailed, st.LastOutcome)
		assert.Contains(t, st.LastError, "queue full")
	})

	t.Run("UnknownSchedule", func(t *testing.T) {
		m := newManager(t, &fakeTarget{}, "")
		_, err := m.Fire("nope")
		assert.ErrorIs(t, err, ErrUnknownSchedule)
	})
}

func TestManager_RequestWithoutObject(t *testing.T) {
	target := &fakeTarget{}
	m, err := NewManager([]config.Schedule{{Name: "rest", Cron: "* * * * *", Routine: "wait"}}, target, controller.DefaultRoutines(), discardLogger())
	require.NoError(t, err)

	_, err = m.Fire("rest")
	require.NoError(t, err)
	require.Len(t, target.requests, 1)
	assert.Equal(t, robot.NoObject, target.requests[0].Object)
}

func TestManager_NextRun(t *testing.T) {
	m, err := NewManager(nil, &fakeTarget{}, controller.DefaultRoutines(), discardLogger())
	require.NoError(t, err)
	assert.True(t, m.NextRun().IsZero())

	m, err = NewManager([]config.Schedule{
		{Name: "late", Cron: "0 23 * * *", Routine: "wait"},
		{Name: "often", Cron: "* * * * *", Routine: "wait"},
	}, &fakeTarget{}, controller.DefaultRoutines(), discardLogger())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), m.NextRun(), time.Minute+time.Second)
}
