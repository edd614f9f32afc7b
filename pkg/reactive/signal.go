package reactive

import (
	"sync"
	"sync/atomic"
)

var nextSubID atomic.Uint64

// Signal is a mutex-protected value that notifies subscribers on change.
type Signal[T any] struct {
	mu    sync.RWMutex
	value T

	subMu sync.RWMutex
	subs  []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{value: initial}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.notify(v)
}

// Update replaces the value with fn(current) and notifies subscribers.
// The read and write happen under one lock.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	v := fn(s.value)
	s.value = v
	s.mu.Unlock()
	s.notify(v)
}

// Subscribe registers fn to be called with the new value after each Set or
// Update. The returned function removes the subscription.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	id := nextSubID.Add(1)

	s.subMu.Lock()
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// notify calls subscribers without holding any lock, so a subscriber may
// read the signal or unsubscribe.
func (s *Signal[T]) notify(v T) {
	s.subMu.RLock()
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}
