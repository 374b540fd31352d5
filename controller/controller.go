// Package controller owns the action list and drives it from a single tick
// goroutine.
//
// Other goroutines (HTTP handlers, cron triggers) never touch the list
// directly. They submit requests and cancellations, which are applied at the
// start of the next tick, and read the snapshot published at the end of
// every tick.
//
// Example usage:
//
//	c := controller.New(env,
//	    controller.WithLogger(logger),
//	    controller.WithHistory(controller.NewMemoryStore(100)),
//	)
//	go c.Run(ctx)
//	id, err := c.Submit(controller.Request{Routine: "pickup", Object: 4})
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/dock"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	defaultRetries      = 2
	defaultHistorySize  = 100
)

// ResultRejected marks a record for a request the list refused at apply
// time, such as a duplicate action.
const ResultRejected = "rejected"

// ErrNegativeRetries is returned by Submit for a negative retry override.
var ErrNegativeRetries = errors.New("retries must not be negative")

// Controller queues routine requests onto a queue.List and ticks it.
type Controller struct {
	env      *action.Env
	list     *queue.List
	logger   *slog.Logger
	routines Routines
	params   dock.Params
	retries  int
	interval time.Duration
	history  HistoryStore

	observers    queue.Observers
	actionLogger queue.ActionLogger
	afterTick    func()

	mu       sync.Mutex
	inbox    []command
	snapshot Snapshot

	// Owned by the tick goroutine.
	tracked map[action.Tag]submission
	ticks   uint64
}

type command func(*Controller)

type submission struct {
	id          string
	req         Request
	submittedAt time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger. The action list logs through it
// too.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRoutines replaces the routine catalog.
func WithRoutines(rs Routines) Option {
	return func(c *Controller) {
		c.routines = rs
	}
}

// WithDockParams sets the docking parameters used by every routine.
func WithDockParams(p dock.Params) Option {
	return func(c *Controller) {
		c.params = p
	}
}

// WithDefaultRetries sets the retry budget of requests without one.
func WithDefaultRetries(n int) Option {
	return func(c *Controller) {
		c.retries = n
	}
}

// WithTickInterval sets how often Run ticks.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = d
	}
}

// WithHistory sets where finished requests are recorded.
func WithHistory(h HistoryStore) Option {
	return func(c *Controller) {
		c.history = h
	}
}

// WithObserver adds an observer of every slot. It may be given more than once.
func WithObserver(o queue.Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithActionLogger gives every queued action its own logger.
func WithActionLogger(a queue.ActionLogger) Option {
	return func(c *Controller) {
		c.actionLogger = a
	}
}

// WithAfterTick runs fn on the tick goroutine after every tick of Run. A
// simulated robot uses it to advance its clock.
func WithAfterTick(fn func()) Option {
	return func(c *Controller) {
		c.afterTick = fn
	}
}

// New creates a controller for env.
func New(env *action.Env, opts ...Option) *Controller {
	c := &Controller{
		env:      env,
		logger:   env.Log(),
		routines: DefaultRoutines(),
		params:   dock.DefaultParams(),
		retries:  defaultRetries,
		interval: defaultTickInterval,
		history:  NewMemoryStore(defaultHistorySize),
		tracked:  make(map[action.Tag]submission),
	}
	for _, opt := range opts {
		opt(c)
	}
	listOpts := []queue.ListOption{
		queue.WithListLogger(c.logger),
		queue.WithListObserver(c.observers),
	}
	if c.actionLogger != nil {
		listOpts = append(listOpts, queue.WithListActionLogger(c.actionLogger))
	}
	c.list = queue.NewList(env, listOpts...)
	return c
}

// Routines returns the routine catalog.
func (c *Controller) Routines() Routines {
	return c.routines
}

// Submit validates req and queues it for the next tick. The returned id
// identifies the request in the history.
func (c *Controller) Submit(req Request) (string, error) {
	routine, err := c.routines.Get(req.Routine)
	if err != nil {
		return "", err
	}
	pos, err := req.position()
	if err != nil {
		return "", err
	}
	retries := c.retries
	if req.Retries != nil {
		if *req.Retries < 0 {
			return "", ErrNegativeRetries
		}
		retries = *req.Retries
	}
	a, err := routine.Build(req, c.params)
	if err != nil {
		return "", err
	}

	sub := submission{id: uuid.NewString(), req: req, submittedAt: c.env.Now()}
	c.enqueue(func(c *Controller) {
		tag, err := c.list.QueueActionTagged(req.Slot, pos, req.Tag, a, retries)
		if err != nil {
			c.logger.Warn("request rejected", "request_id", sub.id, "routine", req.Routine, "error", err)
			c.save(Record{
				RequestID:   sub.id,
				Routine:     req.Routine,
				Object:      req.Object,
				Source:      req.Source,
				Slot:        int(req.Slot),
				Name:        a.Name(),
				Type:        a.Type(),
				Result:      ResultRejected,
				SubmittedAt: sub.submittedAt,
				FinishedAt:  c.env.Now(),
			})
			return
		}
		c.tracked[tag] = sub
		c.logger.Info("request queued",
			"request_id", sub.id,
			"routine", req.Routine,
			"object", int(req.Object),
			"tag", uint32(tag),
			"position", pos.String(),
		)
	})
	return sub.id, nil
}

// Cancel cancels actions of type t in slot, or in every slot for
// queue.UnknownSlot. It takes effect on the next tick.
func (c *Controller) Cancel(slot queue.SlotHandle, t action.Type) {
	c.enqueue(func(c *Controller) {
		c.list.Cancel(slot, t)
	})
}

// CancelTag cancels the action carrying tag on the next tick.
func (c *Controller) CancelTag(tag action.Tag) {
	c.enqueue(func(c *Controller) {
		if !c.list.CancelTag(tag, queue.UnknownSlot) {
			c.logger.Info("nothing to cancel", "tag", uint32(tag))
		}
	})
}

func (c *Controller) enqueue(cmd command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, cmd)
}

// Tick applies pending commands, updates every slot once and publishes a
// new snapshot. It must only be called from one goroutine.
func (c *Controller) Tick() []action.Outcome {
	c.mu.Lock()
	cmds := c.inbox
	c.inbox = nil
	c.mu.Unlock()

	for _, cmd := range cmds {
		cmd(c)
	}
	if len(cmds) > 0 {
		c.reconcile()
	}

	outcomes := c.list.Update()
	for _, o := range outcomes {
		c.finished(o)
	}
	c.ticks++
	c.publish()
	return outcomes
}

// Run ticks every interval until ctx is done, then cleans up every action.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.logger.Info("tick loop started", "interval", c.interval)

	for {
		select {
		case <-ctx.Done():
			c.Shutdown()
			c.logger.Info("tick loop stopped", "ticks", c.ticks)
			return nil
		case <-ticker.C:
			c.Tick()
			if c.afterTick != nil {
				c.afterTick()
			}
		}
	}
}

// Shutdown cleans up every queued action and records them as cancelled.
// Like Tick it must be called from the tick goroutine.
func (c *Controller) Shutdown() {
	c.list.Clear()
	c.reconcile()
	c.publish()
}

func (c *Controller) finished(o action.Outcome) {
	sub, ok := c.tracked[o.Tag]
	delete(c.tracked, o.Tag)
	r := Record{
		Slot:       o.Slot,
		Tag:        o.Tag,
		Name:       o.Name,
		Type:       o.Type,
		Result:     o.Result.String(),
		Attempts:   o.Attempts,
		FinishedAt: c.env.Now(),
	}
	if o.HasCompletion {
		completion := o.Completion
		r.Completion = &completion
	}
	if ok {
		r.RequestID = sub.id
		r.Routine = sub.req.Routine
		r.Object = sub.req.Object
		r.Source = sub.req.Source
		r.SubmittedAt = sub.submittedAt
	} else {
		r.Object = robot.NoObject
	}
	c.save(r)
}

// reconcile records tracked actions that left the list without an outcome.
func (c *Controller) reconcile() {
	live := make(map[action.Tag]bool)
	for _, slot := range c.list.Slots() {
		q, _ := c.list.Queue(slot)
		for _, e := range q.Entries() {
			live[e.Tag] = true
		}
	}
	for tag, sub := range c.tracked {
		if live[tag] {
			continue
		}
		delete(c.tracked, tag)
		c.logger.Info("request cancelled", "request_id", sub.id, "routine", sub.req.Routine, "tag", uint32(tag))
		c.save(Record{
			RequestID:   sub.id,
			Routine:     sub.req.Routine,
			Object:      sub.req.Object,
			Source:      sub.req.Source,
			Slot:        int(sub.req.Slot),
			Tag:         tag,
			Result:      ResultCancelled,
			SubmittedAt: sub.submittedAt,
			FinishedAt:  c.env.Now(),
		})
	}
}

func (c *Controller) save(r Record) {
	r.ID = uuid.NewString()
	if err := c.history.Save(r); err != nil {
		c.logger.Error("failed to save history record", "request_id", r.RequestID, "error", err)
	}
}

// History returns finished requests, most recent first.
func (c *Controller) History() []Record {
	return c.history.Records()
}

// QueuedAction is one entry of a slot in a Snapshot.
type QueuedAction struct {
	queue.Entry
	RequestID string `json:"request_id,omitempty"`
	Routine   string `json:"routine,omitempty"`
}

// SlotSnapshot lists one slot's actions, current first.
type SlotSnapshot struct {
	Slot    queue.SlotHandle `json:"slot"`
	Actions []QueuedAction   `json:"actions"`
}

// Snapshot is the state of the list at the end of a tick.
type Snapshot struct {
	Ticks uint64         `json:"ticks"`
	At    time.Time      `json:"at"`
	Slots []SlotSnapshot `json:"slots"`
}

// Busy reports whether any slot has outstanding work.
func (s Snapshot) Busy() bool {
	for _, slot := range s.Slots {
		if len(slot.Actions) > 0 {
			return true
		}
	}
	return false
}

func (c *Controller) publish() {
	snap := Snapshot{Ticks: c.ticks, At: c.env.Now()}
	for _, slot := range c.list.Slots() {
		q, _ := c.list.Queue(slot)
		entries := q.Entries()
		ss := SlotSnapshot{Slot: slot, Actions: make([]QueuedAction, 0, len(entries))}
		for _, e := range entries {
			qa := QueuedAction{Entry: e}
			if sub, ok := c.tracked[e.Tag]; ok {
				qa.RequestID = sub.id
				qa.Routine = sub.req.Routine
			}
			ss.Actions = append(ss.Actions, qa)
		}
		snap.Slots = append(snap.Slots, ss)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snap
}

// Snapshot returns the most recently published snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Busy reports whether the last snapshot had outstanding work.
func (c *Controller) Busy() bool {
	return c.Snapshot().Busy()
}

// State returns the robot's latest state report. Safe to call from any
// goroutine as long as the robot's State is.
func (c *Controller) State() robot.State {
	return c.env.Robot.State()
}

// String describes the controller for logs, as of the last published
// snapshot. Safe to call from any goroutine.
func (c *Controller) String() string {
	snap := c.Snapshot()
	return fmt.Sprintf("controller(ticks=%d, slots=%d)", snap.Ticks, len(snap.Slots))
}
