package reactive

import "context"

// Ctx schedules work onto an owner's event loop.
type Ctx interface {
	// Dispatch queues fn to run on the loop. It is safe to call from any
	// goroutine. Callbacks queued after the loop closed are dropped.
	Dispatch(fn func())

	// StdContext returns a context cancelled when the loop closes.
	StdContext() context.Context
}
