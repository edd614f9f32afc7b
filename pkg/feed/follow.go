package feed

import (
	"context"
	"sync"

	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
)

// Follow is the follow button for one user.
type Follow struct {
	userID string
	api    backend.Follows
	ctrl   *optimistic.Controller[backend.FollowState]
}

// NewFollow creates a follow controller seeded with initial.
func NewFollow(ctx reactive.Ctx, api backend.Follows, initial backend.FollowState, opts ...Option) *Follow {
	o := buildOptions(opts)
	return &Follow{
		userID: initial.UserID,
		api:    api,
		ctrl:   optimistic.New(ctx, initial, o.controller(ActionFollow, o.policy)...),
	}
}

// UserID returns the user this button follows.
func (f *Follow) UserID() string { return f.userID }

// State returns the visible follow state.
func (f *Follow) State() backend.FollowState { return f.ctrl.Value() }

// IsFollowing is shorthand for State().IsFollowing.
func (f *Follow) IsFollowing() bool { return f.ctrl.Value().IsFollowing }

// Pending reports whether a toggle is waiting for the backend.
func (f *Follow) Pending() bool { return f.ctrl.IsPending(f.userID) }

// Signal exposes the follow state for subscriptions.
func (f *Follow) Signal() *reactive.Signal[backend.FollowState] { return f.ctrl.Signal() }

// Toggle flips the follow state and confirms it with the backend.
func (f *Follow) Toggle() *optimistic.Op {
	following := !f.ctrl.Value().IsFollowing
	return f.ctrl.Run(optimistic.Transition[backend.FollowState]{
		Key: f.userID,
		Apply: func(s backend.FollowState) backend.FollowState {
			s.IsFollowing = !s.IsFollowing
			return s
		},
		Effect: func(ctx context.Context) error {
			return f.api.ToggleFollow(ctx, f.userID, following)
		},
	})
}

// Set replaces the state without an effect. Ignored while pending.
func (f *Follow) Set(following bool) {
	if f.Pending() {
		return
	}
	f.ctrl.Set(backend.FollowState{UserID: f.userID, IsFollowing: following})
}

// Dispose cancels an in-flight toggle.
func (f *Follow) Dispose() {
	f.ctrl.Dispose()
}

// Follows holds one Follow per user for the pages of a session.
type Follows struct {
	ctx  reactive.Ctx
	api  backend.Follows
	opts []Option

	mu     sync.Mutex
	byUser map[string]*Follow
}

// NewFollows creates an empty registry. opts configure every Follow it
// creates.
func NewFollows(ctx reactive.Ctx, api backend.Follows, opts ...Option) *Follows {
	return &Follows{ctx: ctx, api: api, opts: opts, byUser: make(map[string]*Follow)}
}

// Get returns the button of initial.UserID, creating it seeded with
// initial. An existing button keeps its state.
func (r *Follows) Get(initial backend.FollowState) *Follow {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.byUser[initial.UserID]; ok {
		return f
	}
	f := NewFollow(r.ctx, r.api, initial, r.opts...)
	r.byUser[initial.UserID] = f
	return f
}

// Lookup returns the button of userID, or nil.
func (r *Follows) Lookup(userID string) *Follow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[userID]
}

// Dispose cancels every pending toggle.
func (r *Follows) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.byUser {
		f.Dispose()
	}
}
