package controller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
	"github.com/nomis52/botcore/robot/sim"
)

func newController(t *testing.T, opts ...Option) (*sim.Sim, *Controller) {
	t.Helper()
	s := sim.New(7)
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return s, New(s.Env(discardLogger()), opts...)
}

func addBlock(s *sim.Sim, id robot.ObjectID, pose robot.Pose) {
	s.World.AddObject(robot.Object{
		ID:        id,
		Type:      robot.ObjectBlock,
		Pose:      pose,
		Height:    44,
		Markers:   []robot.Marker{{Code: 1, Face: 0}, {Code: 2, Face: 2}, {Code: 3, Face: 1}},
		TopMarker: robot.Marker{Code: 3, Face: 1},
	})
}

// tickUntil ticks and steps the simulator until done reports true.
func tickUntil(t *testing.T, s *sim.Sim, c *Controller, limit int, done func() bool) {
	t.Helper()
	for i := 0; i < limit; i++ {
		c.Tick()
		if done() {
			return
		}
		s.Step(sim.DefaultStep)
	}
	t.Fatalf("condition not met after %d ticks", limit)
}

func hasHistory(c *Controller) func() bool {
	return func() bool { return len(c.History()) > 0 }
}

func retries(n int) *int { return &n }

func TestController_Pickup(t *testing.T) {
	s, c := newController(t)
	addBlock(s, 1, robot.Pose{X: 300})

	id, err := c.Submit(Request{Routine: "pickup", Object: 1, Source: "api"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	c.Tick()
	snap := c.Snapshot()
	require.True(t, snap.Busy())
	require.Len(t, snap.Slots, 1)
	require.Len(t, snap.Slots[0].Actions, 1)
	queued := snap.Slots[0].Actions[0]
	assert.Equal(t, id, queued.RequestID)
	assert.Equal(t, "pickup", queued.Routine)
	assert.True(t, queued.Current)
	assert.Equal(t, uint64(1), snap.Ticks)

	tickUntil(t, s, c, 200, hasHistory(c))

	records := c.History()
	require.Len(t, records, 1)
	r := records[0]
	assert.NotEmpty(t, r.ID)
	assert.NotEqual(t, id, r.ID)
	assert.Equal(t, id, r.RequestID)
	assert.Equal(t, "pickup", r.Routine)
	assert.Equal(t, "api", r.Source)
	assert.Equal(t, robot.ObjectID(1), r.Object)
	assert.Equal(t, action.Success.String(), r.Result)
	assert.Equal(t, action.TypePickupObjectLow, r.Type)
	assert.Equal(t, 1, r.Attempts)
	require.NotNil(t, r.Completion)
	assert.Equal(t, []robot.ObjectID{1}, r.Completion.ObjectIDs)
	assert.True(t, r.FinishedAt.After(r.SubmittedAt))

	assert.Equal(t, robot.ObjectID(1), c.State().CarriedObject)
	assert.False(t, c.Snapshot().Busy())
}

func TestController_SubmitErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		is   error
	}{
		{"UnknownRoutine", Request{Routine: "juggle"}, ErrUnknownRoutine},
		{"MissingObject", Request{Routine: "pickup", Object: robot.NoObject}, ErrMissingObject},
		{"NegativeRetries", Request{Routine: "wait", Retries: retries(-1)}, ErrNegativeRetries},
		{"BadPosition", Request{Routine: "wait", Position: "sideways"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newController(t)
			_, err := c.Submit(tt.req)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}

			c.Tick()
			assert.False(t, c.Snapshot().Busy())
			assert.Empty(t, c.History())
		})
	}
}

func TestController_Wait(t *testing.T) {
	s, c := newController(t)

	id, err := c.Submit(Request{Routine: "wait", Duration: Duration(200 * time.Millisecond)})
	require.NoError(t, err)
	tickUntil(t, s, c, 20, hasHistory(c))

	r := c.History()[0]
	assert.Equal(t, id, r.RequestID)
	assert.Equal(t, action.TypeWait, r.Type)
	assert.True(t, r.Succeeded())
}

func TestController_Cancel(t *testing.T) {
	t.Run("ByTag", func(t *testing.T) {
		_, c := newController(t)
		id, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour), Tag: 7})
		require.NoError(t, err)
		c.Tick()
		require.True(t, c.Snapshot().Busy())

		c.CancelTag(7)
		c.Tick()

		assert.False(t, c.Snapshot().Busy())
		records := c.History()
		require.Len(t, records, 1)
		assert.Equal(t, id, records[0].RequestID)
		assert.Equal(t, ResultCancelled, records[0].Result)
		assert.Equal(t, action.Tag(7), records[0].Tag)
		assert.False(t, records[0].Succeeded())
	})

	t.Run("ByType", func(t *testing.T) {
		_, c := newController(t)
		_, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour)})
		require.NoError(t, err)
		_, err = c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour), Slot: 1})
		require.NoError(t, err)
		c.Tick()

		c.Cancel(1, action.TypeWait)
		c.Tick()

		snap := c.Snapshot()
		require.Len(t, snap.Slots, 2)
		assert.Len(t, snap.Slots[0].Actions, 1, "other slots are untouched")
		assert.Empty(t, snap.Slots[1].Actions)
		require.Len(t, c.History(), 1)
		assert.Equal(t, 1, c.History()[0].Slot)
	})

	t.Run("NothingToCancel", func(t *testing.T) {
		_, c := newController(t)
		c.CancelTag(99)
		c.Tick()
		assert.Empty(t, c.History())
	})

	t.Run("NowReplacesCurrent", func(t *testing.T) {
		_, c := newController(t)
		first, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour)})
		require.NoError(t, err)
		c.Tick()

		_, err = c.Submit(Request{Routine: "wait", Duration: Duration(time.Minute), Position: "now"})
		require.NoError(t, err)
		c.Tick()

		records := c.History()
		require.Len(t, records, 1)
		assert.Equal(t, first, records[0].RequestID)
		assert.Equal(t, ResultCancelled, records[0].Result)
	})
}

func TestController_RejectedAtApply(t *testing.T) {
	_, c := newController(t)

	_, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour), Tag: 5})
	require.NoError(t, err)
	second, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour), Tag: 5})
	require.NoError(t, err, "tag conflicts are only found on the tick")
	c.Tick()

	records := c.History()
	require.Len(t, records, 1)
	assert.Equal(t, second, records[0].RequestID)
	assert.Equal(t, ResultRejected, records[0].Result)
	assert.Equal(t, 1, c.list.QueueLength(queue.DefaultSlot))
}

func TestController_Retries(t *testing.T) {
	s, c := newController(t, WithDefaultRetries(0))
	addBlock(s, 1, robot.Pose{X: 300})
	s.Robot.FailDocks(1)

	_, err := c.Submit(Request{Routine: "pickup", Object: 1, Retries: retries(1)})
	require.NoError(t, err)
	tickUntil(t, s, c, 400, hasHistory(c))

	r := c.History()[0]
	assert.Equal(t, action.Success.String(), r.Result)
	assert.Equal(t, 2, r.Attempts)
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []int
	finished []action.Outcome
}

func (o *recordingObserver) ActionStarted(_ queue.SlotHandle, _ action.Tag, _ string, _ action.Type, attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, attempt)
}

func (o *recordingObserver) ActionFinished(out action.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, out)
}

func (o *recordingObserver) QueueLength(queue.SlotHandle, int) {}

func TestController_Observers(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	s, c := newController(t, WithObserver(a), WithObserver(b))

	_, err := c.Submit(Request{Routine: "wait", Duration: Duration(100 * time.Millisecond)})
	require.NoError(t, err)
	tickUntil(t, s, c, 20, hasHistory(c))

	for _, o := range []*recordingObserver{a, b} {
		assert.Equal(t, []int{1}, o.started)
		require.Len(t, o.finished, 1)
		assert.Equal(t, action.Success, o.finished[0].Result)
	}
}

func TestController_Shutdown(t *testing.T) {
	_, c := newController(t)
	_, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour)})
	require.NoError(t, err)
	_, err = c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour)})
	require.NoError(t, err)
	c.Tick()

	c.Shutdown()

	assert.False(t, c.Snapshot().Busy())
	records := c.History()
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, ResultCancelled, r.Result)
	}
}

func TestController_Run(t *testing.T) {
	_, c := newController(t, WithTickInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	_, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Hour)})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Snapshot().Busy() }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	require.Len(t, c.History(), 1)
	assert.Equal(t, ResultCancelled, c.History()[0].Result)
	assert.False(t, c.Snapshot().Busy())
}

func TestController_RunAfterTick(t *testing.T) {
	var steps atomic.Int64
	s := sim.New(7)
	c := New(s.Env(discardLogger()),
		WithLogger(discardLogger()),
		WithTickInterval(time.Millisecond),
		WithAfterTick(func() {
			steps.Add(1)
			s.Step(sim.DefaultStep)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	_, err := c.Submit(Request{Routine: "wait", Duration: Duration(200 * time.Millisecond)})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(c.History()) == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, action.Success.String(), c.History()[0].Result)
	assert.Positive(t, steps.Load())
}

func TestController_String(t *testing.T) {
	s, c := newController(t)
	assert.Equal(t, "controller(ticks=0, slots=0)", c.String())

	_, err := c.Submit(Request{Routine: "wait", Duration: Duration(time.Second)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	stop := make(chan struct{})
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = c.String()
			}
		}
	}()
	for i := 0; i < 5; i++ {
		c.Tick()
		s.Step(sim.DefaultStep)
	}
	close(stop)
	wg.Wait()

	slots := len(c.Snapshot().Slots)
	require.NotZero(t, slots)
	assert.Equal(t, fmt.Sprintf("controller(ticks=5, slots=%d)", slots), c.String())
}
