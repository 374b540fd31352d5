package status

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/queue"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newBoard() (*Board, *fixedClock) {
	clock := &fixedClock{now: time.Unix(500, 0)}
	return NewBoard(slog.New(slog.NewTextHandler(io.Discard, nil)), clock), clock
}

func TestNewBoard(t *testing.T) {
	b, _ := newBoard()
	assert.Empty(t, b.Slots())
	assert.Equal(t, Totals{}, b.Totals())
	assert.False(t, b.Busy())
}

func TestBoard_Lifecycle(t *testing.T) {
	b, clock := newBoard()

	b.QueueLength(0, 2)
	b.ActionStarted(0, 9, "Wait", action.TypeWait, 1)

	slots := b.Slots()
	require.Len(t, slots, 1)
	require.NotNil(t, slots[0].Current)
	assert.Equal(t, action.Tag(9), slots[0].Current.Tag)
	assert.Equal(t, clock.now, slots[0].Current.Since)
	assert.Equal(t, 2, slots[0].Outstanding)
	assert.True(t, b.Busy())

	b.ActionStarted(0, 9, "Wait", action.TypeWait, 2)
	assert.Equal(t, 2, b.Slots()[0].Current.Attempt)
	assert.Equal(t, 1, b.Totals().Started, "retries are not new starts")

	clock.now = clock.now.Add(time.Second)
	b.ActionFinished(action.Outcome{Slot: 0, Tag: 9, Name: "Wait", Result: action.Success})
	b.QueueLength(0, 1)

	s := b.Slots()[0]
	assert.Nil(t, s.Current)
	require.NotNil(t, s.Last)
	assert.Equal(t, action.Success, s.Last.Result)
	assert.Equal(t, clock.now, s.FinishedAt)
	assert.Equal(t, Totals{Started: 1, Succeeded: 1}, b.Totals())
}

func TestBoard_FailuresAndCancel(t *testing.T) {
	b, _ := newBoard()

	b.ActionStarted(1, 3, "PickupObjectLow", action.TypePickupObjectLow, 1)
	b.ActionFinished(action.Outcome{Slot: 1, Tag: 3, Result: action.FailureAbort})
	b.ActionStarted(1, 4, "Wait", action.TypeWait, 1)
	b.QueueLength(1, 0)

	s := b.Slots()[0]
	assert.Equal(t, queue.SlotHandle(1), s.Slot)
	assert.Nil(t, s.Current, "an emptied slot has no current action")
	assert.Equal(t, Totals{Started: 2, Failed: 1}, b.Totals())
}

func TestBoard_SlotsOrderedAndCopied(t *testing.T) {
	b, _ := newBoard()
	b.ActionStarted(2, 1, "A", action.TypeWait, 1)
	b.ActionStarted(0, 2, "B", action.TypeWait, 1)

	slots := b.Slots()
	require.Len(t, slots, 2)
	assert.Equal(t, queue.SlotHandle(0), slots[0].Slot)
	assert.Equal(t, queue.SlotHandle(2), slots[1].Slot)

	slots[0].Current.Name = "changed"
	assert.Equal(t, "B", b.Slots()[0].Current.Name)
}

func TestBoard_Concurrent(t *testing.T) {
	b, _ := newBoard()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(tag action.Tag) {
			defer wg.Done()
			b.ActionStarted(0, tag, "Wait", action.TypeWait, 1)
			b.ActionFinished(action.Outcome{Tag: tag, Result: action.Success})
		}(action.Tag(i + 1))
		go func() {
			defer wg.Done()
			_ = b.Slots()
			_ = b.Totals()
		}()
	}
	wg.Wait()
	assert.Equal(t, Totals{Started: 10, Succeeded: 10}, b.Totals())
}
