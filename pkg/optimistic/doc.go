// Package optimistic applies state changes before the backend confirms them.
//
// A Controller owns one value (a like state, a follow flag, a comment list)
// and runs Transitions against it. Run applies the transition synchronously,
// starts the confirming effect in its own goroutine and returns an *Op that
// settles when the effect finishes:
//
//	likes := optimistic.New(loop, backend.LikeState{PostID: "1", Count: 5})
//
//	op := likes.Run(optimistic.Transition[backend.LikeState]{
//	    Action: "like",
//	    Key:    "1",
//	    Apply: func(s backend.LikeState) backend.LikeState {
//	        s.IsLiked = !s.IsLiked
//	        ...
//	        return s
//	    },
//	    Effect: func(ctx context.Context) error {
//	        return api.ToggleLike(ctx, "1", true)
//	    },
//	})
//
// If the effect fails the value is restored (to the value captured before
// Apply, or through Transition.Revert for record-level rollback) and the
// error goes to the controller's Reporter. Errors are never returned from
// Run; callers that care observe op.Err() or op.RolledBack().
//
// # Concurrency Policy
//
// DropWhilePending rejects a Run whose Key already has an effect in flight.
// Concurrent lets effects overlap; each failure restores the value captured
// by its own Run, so the last failure to settle wins.
//
// # Threading
//
// Run, Set and Dispose must be called from the owning loop (the reactive.Ctx
// given to New). Settlements are dispatched back onto that loop. Value and
// the signal may be read from any goroutine.
package optimistic
