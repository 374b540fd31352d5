package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/queue"
)

// Metric names registered by NewActionRecorder.
const (
	ActionsStartedName  = "actions_started_total"
	ActionsFinishedName = "actions_finished_total"
	ActionDurationName  = "action_duration_seconds"
	QueueLengthName     = "queue_length"
)

// ActionRecorder is a queue.Observer that counts attempts and outcomes per
// action type and tracks the length of every slot.
type ActionRecorder struct {
	clock action.Clock

	started  CounterVec
	finished CounterVec
	duration HistogramVec
	length   GaugeVec

	mu      sync.Mutex
	startAt map[action.Tag]time.Time
}

var _ queue.Observer = (*ActionRecorder)(nil)

// NewActionRecorder registers the action metrics with reg. Durations are
// measured with clock so simulated runs report simulated time.
func NewActionRecorder(reg Registry, clock action.Clock) (*ActionRecorder, error) {
	if clock == nil {
		clock = action.SystemClock{}
	}
	r := &ActionRecorder{clock: clock, startAt: make(map[action.Tag]time.Time)}

	var err error
	if r.started, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: ActionsStartedName,
		Help: "Action attempts started, by action type.",
	}, []string{"type"}); err != nil {
		return nil, fmt.Errorf("creating %s: %w", ActionsStartedName, err)
	}
	if r.finished, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: ActionsFinishedName,
		Help: "Actions finished, by action type and final result.",
	}, []string{"type", "result"}); err != nil {
		return nil, fmt.Errorf("creating %s: %w", ActionsFinishedName, err)
	}
	if r.duration, err = reg.NewHistogramVec(prometheus.HistogramOpts{
		Name:    ActionDurationName,
		Help:    "Time from first attempt to final result, by action type.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"type"}); err != nil {
		return nil, fmt.Errorf("creating %s: %w", ActionDurationName, err)
	}
	if r.length, err = reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: QueueLengthName,
		Help: "Outstanding actions per slot, including the current one.",
	}, []string{"slot"}); err != nil {
		return nil, fmt.Errorf("creating %s: %w", QueueLengthName, err)
	}
	return r, nil
}

func (r *ActionRecorder) ActionStarted(_ queue.SlotHandle, tag action.Tag, _ string, t action.Type, attempt int) {
	r.started.With(prometheus.Labels{"type": t.String()}).Inc()
	if attempt != 1 {
		return
	}
	r.mu.Lock()
	r.startAt[tag] = r.clock.Now()
	r.mu.Unlock()
}

func (r *ActionRecorder) ActionFinished(o action.Outcome) {
	typ := o.Type.String()
	r.finished.With(prometheus.Labels{"type": typ, "result": o.Result.String()}).Inc()

	r.mu.Lock()
	start, ok := r.startAt[o.Tag]
	delete(r.startAt, o.Tag)
	r.mu.Unlock()
	if ok {
		r.duration.With(prometheus.Labels{"type": typ}).Observe(r.clock.Now().Sub(start).Seconds())
	}
}

func (r *ActionRecorder) QueueLength(slot queue.SlotHandle, outstanding int) {
	r.length.With(prometheus.Labels{"slot": strconv.Itoa(int(slot))}).Set(float64(outstanding))
}
