package backend

import (
	"context"
	"errors"
)

var (
	// ErrSimulatedFailure is the cause of every failure injected by Mock.
	ErrSimulatedFailure = errors.New("backend: simulated failure")

	// ErrNotFound is returned for unknown ids.
	ErrNotFound = errors.New("backend: not found")
)

// Likes confirms and loads like state.
type Likes interface {
	ToggleLike(ctx context.Context, postID string, liked bool) error
	LoadLikes(ctx context.Context, postID string) (LikeSummary, error)
}

// Follows confirms follow toggles.
type Follows interface {
	ToggleFollow(ctx context.Context, userID string, following bool) error
}

// Comments manages the comments of a post.
type Comments interface {
	AddComment(ctx context.Context, postID, content string) error
	DeleteComment(ctx context.Context, commentID string) error
	LoadComments(ctx context.Context, postID string) ([]Comment, error)
}

// Notifications is the notification source.
type Notifications interface {
	FetchNotifications(ctx context.Context) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Timeline loads and creates posts.
type Timeline interface {
	LoadTimeline(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, content string) (Post, error)
}

// Profiles loads user pages.
type Profiles interface {
	LoadProfile(ctx context.Context, userID string) (Profile, error)
}

// Discovery loads discovery pages.
type Discovery interface {
	Discover(ctx context.Context, kind DiscoveryKind) ([]DiscoveryEntry, error)
}

// Backend is every contract together plus the signed-in user.
type Backend interface {
	Likes
	Follows
	Comments
	Notifications
	Timeline
	Profiles
	Discovery

	CurrentUser() User
}
