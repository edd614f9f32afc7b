package backend

import (
	"fmt"
	"strings"
	"time"
)

// User is a person on the network.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// LikeState is the like toggle of one post as seen by the current user.
type LikeState struct {
	PostID  string `json:"postId"`
	IsLiked bool   `json:"isLiked"`
	Count   int    `json:"count"`
}

// LikeSummary is what LoadLikes returns.
type LikeSummary struct {
	Count   int  `json:"count"`
	IsLiked bool `json:"isLiked"`
}

// Comment belongs to a post.
type Comment struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	AuthorAvatar string    `json:"authorAvatar,omitempty"`
}

// FollowState is whether the current user follows UserID.
type FollowState struct {
	UserID      string `json:"userId"`
	IsFollowing bool   `json:"isFollowing"`
}

// NotificationType is the kind of activity a notification reports.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
)

// Sender is the user who caused a notification.
type Sender struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Notification is created by the backend and only ever marked read.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Sender    Sender           `json:"sender"`
	TargetID  string           `json:"targetId,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Post is a timeline entry.
type Post struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	Author       User      `json:"author"`
	Likes        LikeState `json:"likes"`
	CommentCount int       `json:"commentCount"`
}

// Stats are the counters shown on a profile.
type Stats struct {
	Posts     int `json:"posts"`
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// Profile is a user page.
type Profile struct {
	User        User   `json:"user"`
	Stats       Stats  `json:"stats"`
	IsFollowing bool   `json:"isFollowing"`
	Posts       []Post `json:"posts"`
}

// DiscoveryKind selects a discovery page.
type DiscoveryKind string

const (
	DiscoverNearby   DiscoveryKind = "nearby"
	DiscoverTrending DiscoveryKind = "trending"
	DiscoverLive     DiscoveryKind = "live"
)

// ParseDiscoveryKind validates a discovery page name.
func ParseDiscoveryKind(s string) (DiscoveryKind, error) {
	switch k := DiscoveryKind(strings.ToLower(s)); k {
	case DiscoverNearby, DiscoverTrending, DiscoverLive:
		return k, nil
	}
	return "", fmt.Errorf("backend: unknown discovery kind %q", s)
}

// DiscoveryEntry is one person on a discovery page.
type DiscoveryEntry struct {
	User        User   `json:"user"`
	Descriptor  string `json:"descriptor"`
	Live        bool   `json:"live"`
	IsFollowing bool   `json:"isFollowing"`
}
