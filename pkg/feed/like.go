package feed

import (
	"context"
	"log/slog"

	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/resource"
)

// Like is the like button of one post.
type Like struct {
	postID string
	api    backend.Likes
	logger *slog.Logger
	ctrl   *optimistic.Controller[backend.LikeState]
	load   *resource.Resource[backend.LikeSummary]
}

// NewLike creates a like controller seeded with initial.
func NewLike(ctx reactive.Ctx, api backend.Likes, initial backend.LikeState, opts ...Option) *Like {
	o := buildOptions(opts)
	l := &Like{
		postID: initial.PostID,
		api:    api,
		logger: o.logger.With("post_id", initial.PostID),
		ctrl:   optimistic.New(ctx, initial, o.controller(ActionLike, o.policy)...),
	}
	l.load = resource.New(ctx, l.fetch,
		resource.OnSuccess(l.loaded),
		resource.OnError(l.loadFailed),
	)
	return l
}

// PostID returns the post this button belongs to.
func (l *Like) PostID() string { return l.postID }

// State returns the visible like state.
func (l *Like) State() backend.LikeState { return l.ctrl.Value() }

// Pending reports whether a toggle is waiting for the backend.
func (l *Like) Pending() bool { return l.ctrl.IsPending(l.postID) }

// Signal exposes the like state for subscriptions.
func (l *Like) Signal() *reactive.Signal[backend.LikeState] { return l.ctrl.Signal() }

// Toggle flips the heart and adjusts the count by one, then confirms with
// the backend. A rejected toggle restores both fields.
func (l *Like) Toggle() *optimistic.Op {
	liked := !l.ctrl.Value().IsLiked
	return l.ctrl.Run(optimistic.Transition[backend.LikeState]{
		Key:   l.postID,
		Apply: toggleLike,
		Effect: func(ctx context.Context) error {
			return l.api.ToggleLike(ctx, l.postID, liked)
		},
	})
}

func toggleLike(s backend.LikeState) backend.LikeState {
	if s.IsLiked {
		s.Count--
	} else {
		s.Count++
	}
	s.IsLiked = !s.IsLiked
	return s
}

// Load refreshes the count and liked flag from the backend. A failed load
// shows zero likes, not liked.
func (l *Like) Load() *reactive.Future[backend.LikeSummary] {
	return l.load.Refetch()
}

// Set replaces the state without an effect. It is ignored while a toggle
// is pending so a reload cannot clobber the optimistic value.
func (l *Like) Set(s backend.LikeState) {
	if l.Pending() {
		return
	}
	s.PostID = l.postID
	l.ctrl.Set(s)
}

func (l *Like) fetch(ctx context.Context) (backend.LikeSummary, error) {
	return l.api.LoadLikes(ctx, l.postID)
}

func (l *Like) loaded(s backend.LikeSummary) {
	l.Set(backend.LikeState{Count: s.Count, IsLiked: s.IsLiked})
}

func (l *Like) loadFailed(err error) {
	l.logger.Warn("loading likes failed", "error", err)
	l.Set(backend.LikeState{})
}

// Dispose cancels in-flight toggles and loads.
func (l *Like) Dispose() {
	l.ctrl.Dispose()
	l.load.Dispose()
}
