package vtest

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Call is one invocation of a scripted Effect.
type Call struct {
	Ctx    context.Context
	result chan error
}

// Effect is a scripted effect. Each call blocks until the test resolves or
// rejects it by index, or until the call's context is cancelled.
//
// Calls are numbered in arrival order, which is not Run order when several
// effects are in flight. Use one Effect per Run when the order matters.
type Effect struct {
	mu      sync.Mutex
	calls   []*Call
	arrived chan struct{}
}

// NewEffect creates a scripted effect.
func NewEffect() *Effect {
	return &Effect{arrived: make(chan struct{}, 1024)}
}

// Func returns the effect function to hand to a Transition.
func (e *Effect) Func() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		call := &Call{Ctx: ctx, result: make(chan error, 1)}
		e.mu.Lock()
		e.calls = append(e.calls, call)
		e.mu.Unlock()
		e.arrived <- struct{}{}

		select {
		case err := <-call.result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Calls returns how many times the effect has been invoked.
func (e *Effect) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Call returns the i-th call, or nil if it has not happened.
func (e *Effect) Call(i int) *Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.calls) {
		return nil
	}
	return e.calls[i]
}

// WaitCalls blocks until at least n calls have arrived or timeout elapses.
func (e *Effect) WaitCalls(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for e.Calls() < n {
		select {
		case <-e.arrived:
		case <-deadline:
			return e.Calls() >= n
		}
	}
	return true
}

// Resolve makes the i-th call succeed. It waits briefly for the call to
// arrive, since effects start on their own goroutine.
func (e *Effect) Resolve(i int) {
	e.finish(i, nil)
}

// Reject makes the i-th call fail with err.
func (e *Effect) Reject(i int, err error) {
	e.finish(i, err)
}

func (e *Effect) finish(i int, err error) {
	if !e.WaitCalls(i+1, 5*time.Second) {
		panic(fmt.Sprintf("vtest: effect call %d never arrived", i))
	}
	e.Call(i).result <- err
}
