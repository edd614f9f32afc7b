package resource

import "time"

// Option configures a Resource.
type Option interface {
	apply(r any)
}

type optionFunc func(r any)

func (f optionFunc) apply(r any) { f(r) }

// StaleTime makes Fetch a no-op while Ready data is younger than d.
func StaleTime(d time.Duration) Option {
	return optionFunc(func(r any) {
		if s, ok := r.(interface{ setStaleTime(time.Duration) }); ok {
			s.setStaleTime(d)
		}
	})
}

// RetryOnError retries a failed fetch count times, waiting delay between
// attempts.
func RetryOnError(count int, delay time.Duration) Option {
	return optionFunc(func(r any) {
		if s, ok := r.(interface{ setRetry(int, time.Duration) }); ok {
			s.setRetry(count, delay)
		}
	})
}

// OnSuccess sets a callback run on the loop after a successful fetch.
func OnSuccess[T any](fn func(T)) Option {
	return optionFunc(func(r any) {
		if res, ok := r.(*Resource[T]); ok {
			res.onSuccess = fn
		}
	})
}

// OnError sets a callback run on the loop after a failed fetch.
func OnError(fn func(error)) Option {
	return optionFunc(func(r any) {
		if s, ok := r.(interface{ setOnError(func(error)) }); ok {
			s.setOnError(fn)
		}
	})
}

func (r *Resource[T]) setStaleTime(d time.Duration) { r.staleTime = d }

func (r *Resource[T]) setRetry(count int, delay time.Duration) {
	r.retryCount = count
	r.retryDelay = delay
}

func (r *Resource[T]) setOnError(fn func(error)) { r.onError = fn }
