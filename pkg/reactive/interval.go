package reactive

import (
	"sync"
	"time"
)

// Cleanup stops a background activity. It is safe to call more than once.
type Cleanup func()

// IntervalOption configures Interval.
type IntervalOption func(*intervalConfig)

type intervalConfig struct {
	immediate bool
}

// IntervalImmediate causes the first tick to occur immediately instead of
// after the duration.
func IntervalImmediate() IntervalOption {
	return func(cfg *intervalConfig) {
		cfg.immediate = true
	}
}

// Interval dispatches fn onto ctx every d until the returned Cleanup is
// called or ctx's StdContext is cancelled.
func Interval(ctx Ctx, d time.Duration, fn func(), opts ...IntervalOption) Cleanup {
	var cfg intervalConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	done := make(chan struct{})
	stop := ctx.StdContext().Done()

	// fn is skipped if the interval was stopped between the tick and the
	// dispatched callback running.
	tick := func() {
		select {
		case <-done:
		default:
			fn()
		}
	}

	go func() {
		if cfg.immediate {
			ctx.Dispatch(tick)
		}

		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx.Dispatch(tick)
			case <-done:
				return
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
