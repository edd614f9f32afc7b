package resource

import (
	"context"
	"sync"
	"time"

	"github.com/noai-dev/noai/pkg/reactive"
)

// State represents the current state of a resource.
type State int

const (
	Pending State = iota // Initial state, before first fetch
	Loading              // Fetch in progress
	Ready                // Data successfully loaded
	Error                // Fetch failed
)

// String returns the JSON spelling of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Fetcher loads the data.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Resource manages asynchronous data fetching and state.
type Resource[T any] struct {
	ctx     reactive.Ctx
	fetcher Fetcher[T]
	state   *reactive.Signal[State]

	// Options
	staleTime  time.Duration
	retryCount int
	retryDelay time.Duration
	onSuccess  func(T)
	onError    func(error)

	mu        sync.Mutex
	data      T
	hasData   bool
	err       error
	lastFetch time.Time
	fetchID   uint64 // For ignoring outdated fetches
	cancel    context.CancelFunc
	disposed  bool
}

// New creates a Resource. Nothing is fetched until Fetch or Refetch.
func New[T any](ctx reactive.Ctx, fetcher Fetcher[T], opts ...Option) *Resource[T] {
	r := &Resource[T]{
		ctx:     ctx,
		fetcher: fetcher,
		state:   reactive.NewSignal(Pending),
	}
	for _, opt := range opts {
		opt.apply(r)
	}
	return r
}

// State returns the current state.
func (r *Resource[T]) State() State {
	return r.state.Get()
}

// StateSignal exposes the state signal for subscriptions.
func (r *Resource[T]) StateSignal() *reactive.Signal[State] {
	return r.state
}

// IsLoading reports whether a fetch is in progress.
func (r *Resource[T]) IsLoading() bool {
	return r.State() == Loading
}

// IsReady reports whether the last fetch succeeded.
func (r *Resource[T]) IsReady() bool {
	return r.State() == Ready
}

// IsError reports whether the last fetch failed.
func (r *Resource[T]) IsError() bool {
	return r.State() == Error
}

// Data returns the last successfully loaded data.
func (r *Resource[T]) Data() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// DataOr returns the data, or fallback if no fetch has succeeded yet.
func (r *Resource[T]) DataOr(fallback T) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasData {
		return fallback
	}
	return r.data
}

// Error returns the error of the last fetch, or nil.
func (r *Resource[T]) Error() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Fetch triggers a fetch unless the data is Ready and younger than the
// stale time. To force a fetch, use Refetch.
func (r *Resource[T]) Fetch() *reactive.Future[T] {
	r.mu.Lock()
	fresh := r.state.Get() == Ready && time.Since(r.lastFetch) < r.staleTime
	data := r.data
	r.mu.Unlock()
	if fresh {
		return reactive.Resolved(data, nil)
	}
	return r.Refetch()
}

// Refetch starts a fetch, superseding any fetch in flight. The returned
// future resolves once the result has been applied, or with
// context.Canceled if a newer fetch or Dispose superseded it.
func (r *Resource[T]) Refetch() *reactive.Future[T] {
	future, resolve := reactive.NewFuture[T]()

	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		var zero T
		resolve(zero, context.Canceled)
		return future
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.fetchID++
	currentID := r.fetchID
	fetchCtx, cancel := context.WithCancel(r.ctx.StdContext())
	r.cancel = cancel
	r.err = nil
	r.mu.Unlock()

	r.state.Set(Loading)

	go func() {
		defer cancel()

		var result T
		var err error
		for attempt := 0; attempt <= r.retryCount; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(r.retryDelay):
				case <-fetchCtx.Done():
				}
			}
			if fetchCtx.Err() != nil {
				break
			}
			result, err = r.fetcher(fetchCtx)
			if err == nil {
				break
			}
		}

		applied := make(chan struct{})
		r.ctx.Dispatch(func() {
			defer close(applied)
			if !r.apply(currentID, result, err) {
				var zero T
				resolve(zero, context.Canceled)
				return
			}
			resolve(result, err)
		})

		select {
		case <-applied:
		case <-r.ctx.StdContext().Done():
			var zero T
			resolve(zero, context.Canceled)
		}
	}()

	return future
}

// apply stores a fetch result if it is still current. Runs on the loop.
func (r *Resource[T]) apply(id uint64, result T, err error) bool {
	r.mu.Lock()
	if r.disposed || id != r.fetchID {
		r.mu.Unlock()
		return false
	}
	r.cancel = nil
	r.lastFetch = time.Now()
	if err != nil {
		r.err = err
	} else {
		r.data = result
		r.hasData = true
	}
	r.mu.Unlock()

	if err != nil {
		r.state.Set(Error)
		if r.onError != nil {
			r.onError(err)
		}
		return true
	}
	r.state.Set(Ready)
	if r.onSuccess != nil {
		r.onSuccess(result)
	}
	return true
}

// Invalidate marks the current data as stale.
func (r *Resource[T]) Invalidate() {
	r.mu.Lock()
	r.lastFetch = time.Time{}
	r.mu.Unlock()
}

// Mutate updates the local data without fetching.
func (r *Resource[T]) Mutate(fn func(T) T) {
	r.mu.Lock()
	r.data = fn(r.data)
	r.hasData = true
	r.mu.Unlock()
	r.state.Set(r.state.Get())
}

// Dispose cancels any fetch in flight and ignores its result.
func (r *Resource[T]) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Snapshot is a JSON-friendly view of a resource.
type Snapshot[T any] struct {
	State State  `json:"state"`
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// Snapshot returns the current state, data and error message.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	state := r.state.Get()
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot[T]{State: state, Data: r.data}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	return s
}
