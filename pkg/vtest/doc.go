// Package vtest provides helpers for testing code built on pkg/reactive and
// pkg/optimistic.
//
// NewCtx returns a reactive.Ctx that runs dispatched callbacks immediately
// on the calling goroutine, so settlements happen as soon as an effect
// returns. NewEffect returns a scripted effect whose calls block until the
// test resolves or rejects them:
//
//	ctx := vtest.NewCtx()
//	eff := vtest.NewEffect()
//
//	op := ctrl.Run(optimistic.Transition[int]{
//	    Apply:  func(n int) int { return n + 1 },
//	    Effect: eff.Func(),
//	})
//	// ctrl.Value() is already optimistic here
//
//	eff.Reject(0, errors.New("offline"))
//	op.Wait(context.Background())
//	// ctrl.Value() is rolled back
package vtest
