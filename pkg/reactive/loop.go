package reactive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrLoopClosed is returned by Do after the loop has been closed.
var ErrLoopClosed = errors.New("reactive: loop closed")

// DefaultQueueSize is the dispatch buffer used when LoopConfig.QueueSize is 0.
const DefaultQueueSize = 256

// LoopConfig configures a Loop.
type LoopConfig struct {
	// QueueSize is the dispatch channel capacity.
	QueueSize int

	// Logger receives panics recovered from callbacks.
	Logger *slog.Logger

	// OnPanic, if set, is called with each recovered panic value.
	OnPanic func(recovered any)
}

// Loop executes callbacks one at a time on a single goroutine.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	exited chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	logger  *slog.Logger
	onPanic func(any)

	startOnce sync.Once
	closeOnce sync.Once
}

// NewLoop creates a loop. It does nothing until Start or Run is called.
func NewLoop(cfg *LoopConfig) *Loop {
	if cfg == nil {
		cfg = &LoopConfig{}
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		queue:   make(chan func(), size),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		onPanic: cfg.OnPanic,
	}
}

// Start runs the loop in a new goroutine. Subsequent calls are no-ops.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Run runs the loop on the calling goroutine until Close is called.
func (l *Loop) Run() {
	started := false
	l.startOnce.Do(func() { started = true })
	if !started {
		return
	}
	l.run()
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case fn := <-l.queue:
			l.execute(fn)
		case <-l.done:
			return
		}
	}
}

// execute runs fn, recovering panics so one bad callback cannot take the
// session down.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in loop callback",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			if l.onPanic != nil {
				l.onPanic(r)
			}
		}
	}()
	fn()
}

// Dispatch queues fn to run on the loop. It blocks while the queue is full
// and drops fn once the loop is closed.
func (l *Loop) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a loop callback.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	l.Dispatch(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The callback may have been queued just before close.
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// StdContext returns a context that is cancelled when the loop closes.
func (l *Loop) StdContext() context.Context {
	return l.ctx
}

// Done returns a channel closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Close stops the loop and cancels its context. Queued callbacks that have
// not started are discarded. Close waits for a running callback to return
// when the loop was started.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		close(l.done)
	})
	started := true
	l.startOnce.Do(func() { started = false })
	if started {
		<-l.exited
	}
}

var _ Ctx = (*Loop)(nil)
