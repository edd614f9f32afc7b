// Package reactive provides the small runtime every NOAI session is built on.
//
// A Loop is a single goroutine that executes callbacks in order. All state a
// session owns is mutated on its Loop: user events enter through Do, and
// asynchronous work (backend calls, tickers) re-enters through Dispatch.
// Code that only needs to schedule work depends on the Ctx interface, so
// tests can substitute an implementation that runs callbacks immediately.
//
// Signal holds a value plus subscribers. Signals are mutex protected, so
// HTTP and WebSocket goroutines may read them while the Loop writes.
//
//	loop := reactive.NewLoop(nil)
//	loop.Start()
//	defer loop.Close()
//
//	count := reactive.NewSignal(0)
//	count.Subscribe(func(n int) { fmt.Println("count", n) })
//	loop.Do(func() { count.Update(func(n int) int { return n + 1 }) })
//
// Interval runs a callback on the Loop every tick until its Cleanup is
// called. Future is a one-shot result used to observe asynchronous
// completion.
package reactive
