package vtest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/noai-dev/noai/pkg/reactive"
)

// Ctx is a reactive.Ctx that runs dispatched callbacks immediately.
// Callbacks are serialized with a mutex, so effects settling on different
// goroutines still never overlap.
type Ctx struct {
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	dispatched atomic.Int64
}

// NewCtx creates an immediate Ctx.
func NewCtx() *Ctx {
	ctx, cancel := context.WithCancel(context.Background())
	return &Ctx{ctx: ctx, cancel: cancel}
}

// Dispatch runs fn on the calling goroutine. After Close it is a no-op.
// fn must not call Dispatch itself.
func (c *Ctx) Dispatch(fn func()) {
	if c.ctx.Err() != nil {
		return
	}
	c.dispatched.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// StdContext returns a context cancelled by Close.
func (c *Ctx) StdContext() context.Context {
	return c.ctx
}

// Close cancels the context, simulating a closed loop.
func (c *Ctx) Close() {
	c.cancel()
}

// Dispatched returns how many callbacks were dispatched.
func (c *Ctx) Dispatched() int {
	return int(c.dispatched.Load())
}

var _ reactive.Ctx = (*Ctx)(nil)
