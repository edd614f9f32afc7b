package optimistic

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noai-dev/noai/pkg/metrics"
	"github.com/noai-dev/noai/pkg/reactive"
)

// State is the lifecycle state of a Controller.
type State int

const (
	// Idle means no Run has been accepted yet.
	Idle State = iota

	// Pending means at least one effect is in flight.
	Pending

	// Settled means every accepted effect has finished.
	Settled
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Transition describes one optimistic change.
type Transition[V any] struct {
	// Action labels the change for metrics, spans and reports ("like").
	// Empty uses the controller's WithAction label.
	Action string

	// Key identifies the entity for the in-flight guard (a post or user id).
	Key string

	// Apply computes the optimistic value from the current one. It must be
	// pure.
	Apply func(V) V

	// Effect confirms the change. A nil Effect confirms immediately.
	Effect func(ctx context.Context) error

	// Revert computes the rolled-back value from the value at settlement
	// time and the value captured before Apply. Nil restores previous.
	Revert func(current, previous V) V

	// OnSettled runs on the loop after the value is confirmed (err nil) or
	// rolled back. It is not called for dropped or disposed runs.
	OnSettled func(err error)
}

// Controller runs optimistic transitions against a single value.
type Controller[V any] struct {
	ctx   reactive.Ctx
	value *reactive.Signal[V]
	opts  options

	mu             sync.Mutex
	state          State
	lastRolledBack bool
	disposed       bool
	nextID         uint64
	inflight       map[uint64]*flight
	keys           map[string]int
}

type flight struct {
	op     *Op
	cancel context.CancelFunc
	key    string
}

// New creates a controller owning initial. ctx is the loop settlements are
// dispatched to.
func New[V any](ctx reactive.Ctx, initial V, opts ...Option) *Controller[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.reporter == nil {
		o.reporter = LogReporter(nil)
	}
	return &Controller[V]{
		ctx:      ctx,
		value:    reactive.NewSignal(initial),
		opts:     o,
		inflight: make(map[uint64]*flight),
		keys:     make(map[string]int),
	}
}

// Value returns the current (possibly optimistic) value.
func (c *Controller[V]) Value() V {
	return c.value.Get()
}

// Signal exposes the underlying signal for subscriptions.
func (c *Controller[V]) Signal() *reactive.Signal[V] {
	return c.value
}

// Set replaces the value without an effect, e.g. after a load.
func (c *Controller[V]) Set(v V) {
	c.value.Set(v)
}

// Policy returns the controller's concurrency policy.
func (c *Controller[V]) Policy() Policy {
	return c.opts.policy
}

// State returns the current lifecycle state.
func (c *Controller[V]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastRolledBack reports whether the most recent settlement rolled back.
func (c *Controller[V]) LastRolledBack() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRolledBack
}

// IsPending reports whether key has an effect in flight.
func (c *Controller[V]) IsPending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[key] > 0
}

// InFlight returns the number of effects not yet settled.
func (c *Controller[V]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Run applies t and starts its effect. The value is updated before Run
// returns. Run never fails; rejections are visible on the returned Op.
func (c *Controller[V]) Run(t Transition[V]) *Op {
	action := t.Action
	if action == "" {
		action = c.opts.action
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return rejectedOp(action, t.Key, disposedError())
	}
	if c.opts.policy == DropWhilePending && c.keys[t.Key] > 0 {
		c.mu.Unlock()
		metrics.RecordTransition(action, metrics.OutcomeDropped)
		return rejectedOp(action, t.Key, droppedError(action, t.Key))
	}

	c.nextID++
	id := c.nextID
	effCtx, cancel := context.WithCancel(c.ctx.StdContext())
	op := newOp(action, t.Key)
	c.inflight[id] = &flight{op: op, cancel: cancel, key: t.Key}
	c.keys[t.Key]++
	c.state = Pending
	c.mu.Unlock()

	previous := c.value.Get()
	c.value.Set(t.Apply(previous))
	metrics.RecordTransition(action, metrics.OutcomeApplied)

	if t.Effect == nil {
		c.settle(id, action, t, previous, nil)
		return op
	}

	go c.runEffect(effCtx, id, action, t, previous)
	return op
}

// runEffect executes the effect off the loop and marshals the result back.
func (c *Controller[V]) runEffect(ctx context.Context, id uint64, action string, t Transition[V], previous V) {
	ctx, span := c.opts.tracer.Start(ctx, "optimistic."+action,
		trace.WithAttributes(
			attribute.String("noai.action", action),
			attribute.String("noai.key", t.Key),
		))

	start := time.Now()
	err := t.Effect(ctx)
	metrics.ObserveEffect(action, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	settled := make(chan struct{})
	c.ctx.Dispatch(func() {
		defer close(settled)
		c.settle(id, action, t, previous, err)
	})

	// A closed loop drops the callback; resolve the op so waiters return.
	select {
	case <-settled:
	case <-c.ctx.StdContext().Done():
		c.mu.Lock()
		f, ok := c.inflight[id]
		if ok {
			delete(c.inflight, id)
			c.release(f.key)
		}
		c.mu.Unlock()
		if ok {
			metrics.RecordTransition(action, metrics.OutcomeDiscarded)
			f.cancel()
			f.op.resolve(disposedError(), false)
		}
	}
}

// settle runs on the loop.
func (c *Controller[V]) settle(id uint64, action string, t Transition[V], previous V, err error) {
	c.mu.Lock()
	f, ok := c.inflight[id]
	if !ok {
		// Disposed while the effect ran; the op already resolved.
		c.mu.Unlock()
		metrics.RecordTransition(action, metrics.OutcomeDiscarded)
		return
	}
	delete(c.inflight, id)
	c.release(f.key)
	if len(c.inflight) == 0 {
		c.state = Settled
	}
	c.lastRolledBack = err != nil
	c.mu.Unlock()
	f.cancel()

	if err == nil {
		metrics.RecordTransition(action, metrics.OutcomeConfirmed)
		if t.OnSettled != nil {
			t.OnSettled(nil)
		}
		f.op.resolve(nil, false)
		return
	}

	if t.Revert != nil {
		c.value.Update(func(current V) V { return t.Revert(current, previous) })
	} else {
		c.value.Set(previous)
	}
	metrics.RecordTransition(action, metrics.OutcomeRolledBack)
	c.opts.reporter.Report(action, t.Key, err)
	if t.OnSettled != nil {
		t.OnSettled(err)
	}
	f.op.resolve(effectError(action, err), true)
}

// release drops one in-flight count for key. Callers hold c.mu.
func (c *Controller[V]) release(key string) {
	if c.keys[key]--; c.keys[key] <= 0 {
		delete(c.keys, key)
	}
}

// Dispose cancels every in-flight effect. Their ops resolve with
// ErrDisposed and any result that arrives later is discarded. Runs after
// Dispose are rejected.
func (c *Controller[V]) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	flights := c.inflight
	c.inflight = make(map[uint64]*flight)
	c.keys = make(map[string]int)
	c.mu.Unlock()

	for _, f := range flights {
		f.cancel()
		f.op.resolve(disposedError(), false)
	}
}

// Disposed reports whether Dispose has been called.
func (c *Controller[V]) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
