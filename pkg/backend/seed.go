package backend

import (
	"hash/fnv"
	"time"
)

// CurrentUserID is the signed-in user of the seeded data set.
const CurrentUserID = "user-1"

type seedUser struct {
	id, name, bio, avatarKey string
	stats                    Stats
}

var seedUsers = []seedUser{
	{id: "user-1", name: "John Doe", avatarKey: "avatars/user-1.png",
		bio:   "Software developer passionate about building great products. Love connecting with real people.",
		stats: Stats{Posts: 42, Followers: 318, Following: 127}},
	{id: "user-2", name: "Alice Smith", avatarKey: "avatars/user-2.png",
		bio:   "Digital minimalist. Believer in authentic human connections.",
		stats: Stats{Posts: 67, Followers: 412, Following: 98}},
	{id: "user-3", name: "Bob Johnson", avatarKey: "avatars/user-3.png",
		bio:   "Tech enthusiast exploring the intersection of technology and humanity.",
		stats: Stats{Posts: 23, Followers: 156, Following: 201}},
	{id: "user-4", name: "Carol Williams", avatarKey: "avatars/user-4.png",
		bio:   "Designer by day, philosopher by night. Creating meaningful experiences.",
		stats: Stats{Posts: 88, Followers: 489, Following: 64}},
	{id: "user-5", name: "David Brown", avatarKey: "avatars/user-5.png",
		bio:   "Building communities, one connection at a time.",
		stats: Stats{Posts: 15, Followers: 97, Following: 143}},

	{id: "user-maria", name: "Maria Santos"},
	{id: "user-joao", name: "João Silva"},
	{id: "user-ana", name: "Ana Costa"},
	{id: "user-carlos", name: "Carlos Oliveira"},
	{id: "user-lucia", name: "Lucia Ferreira"},
	{id: "user-pedro", name: "Pedro Almeida"},
}

type seedPost struct {
	id, authorID, content string
	age                   time.Duration
	likes                 int
}

// Newest first.
var seedPosts = []seedPost{
	{id: "1", authorID: "user-2", age: 5 * time.Minute, likes: 12,
		content: "Welcome to NOAI! This is your timeline where you can see posts from people you follow. The system focuses on real human connections, not algorithms."},
	{id: "2", authorID: "user-3", age: 30 * time.Minute, likes: 5,
		content: "Just had an amazing conversation with someone nearby. NOAI really helps you connect with real people in meaningful ways."},
	{id: "3", authorID: "user-4", age: time.Hour, likes: 8,
		content: "The dark theme on this platform is so clean and easy on the eyes. Love the minimalist design philosophy."},
	{id: "4", authorID: "user-5", age: 2 * time.Hour, likes: 23,
		content: "Finally, a social platform that prioritizes people over engagement metrics. This is refreshing!"},
}

type seedComment struct {
	id, postID, authorID, content string
	age                           time.Duration
}

// Oldest first within a post.
var seedComments = []seedComment{
	{id: "c1", postID: "1", authorID: "user-3", age: 4 * time.Minute, content: "Glad to be here. No feeds fighting for my attention."},
	{id: "c2", postID: "1", authorID: "user-1", age: 2 * time.Minute, content: "Same! Already met two people from my neighborhood."},
	{id: "c3", postID: "2", authorID: "user-4", age: 20 * time.Minute, content: "That is what this place is for."},
	{id: "c4", postID: "4", authorID: "user-2", age: 90 * time.Minute, content: "Great post!"},
}

type seedNotification struct {
	id       string
	typ      NotificationType
	message  string
	senderID string
	targetID string
	read     bool
	age      time.Duration
}

var seedNotifications = []seedNotification{
	{"n1", NotificationLike, "Maria liked your post", "user-maria", "post-1", false, 2 * time.Minute},
	{"n2", NotificationComment, "João commented on your post", "user-joao", "post-2", false, 15 * time.Minute},
	{"n3", NotificationFollow, "Ana started following you", "user-ana", "user-ana", false, 45 * time.Minute},
	{"n4", NotificationLike, "Carlos liked your post", "user-carlos", "post-1", true, 2 * time.Hour},
	{"n5", NotificationComment, `Lucia commented: "Great post!"`, "user-lucia", "post-3", true, 5 * time.Hour},
	{"n6", NotificationFollow, "Pedro started following you", "user-pedro", "user-pedro", true, 24 * time.Hour},
}

type seedNearby struct {
	id, name  string
	km        float64
	following bool
}

var seedNearbyUsers = []seedNearby{
	{"1", "Sarah Johnson", 0.5, false},
	{"2", "Michael Chen", 1.2, true},
	{"3", "Emma Williams", 2.3, false},
	{"4", "James Rodriguez", 3.1, false},
	{"5", "Olivia Brown", 4.5, true},
	{"6", "Daniel Kim", 5.8, false},
}

type seedTrending struct {
	id, name       string
	searches, rank int
	following      bool
}

var seedTrendingUsers = []seedTrending{
	{"10", "Alex Turner", 15420, 1, false},
	{"11", "Maya Patel", 12890, 2, true},
	{"12", "Lucas Martin", 9845, 3, false},
	{"13", "Sophie Anderson", 8234, 4, false},
	{"14", "Ryan Lee", 7123, 5, true},
	{"15", "Isabella Garcia", 6789, 6, false},
	{"16", "Noah Thompson", 5432, 7, false},
	{"17", "Ava Mitchell", 4567, 8, false},
}

type seedLive struct {
	id, name, lastActive string
	following            bool
}

const activeNow = "Active now"

var seedLiveUsers = []seedLive{
	{"20", "Jessica White", activeNow, false},
	{"21", "David Park", activeNow, true},
	{"22", "Rachel Green", activeNow, false},
	{"23", "Chris Evans", "Active 2m ago", false},
	{"24", "Amanda Taylor", "Active 5m ago", true},
	{"25", "Kevin Zhang", activeNow, false},
	{"26", "Lisa Johnson", "Active 1m ago", false},
	{"27", "Tom Wilson", activeNow, false},
}

// derivedStats gives users without seeded stats stable counters in the same
// ranges the original client randomized over.
func derivedStats(id string) Stats {
	h := fnv.New32a()
	h.Write([]byte(id))
	n := h.Sum32()
	return Stats{
		Posts:     5 + int(n%100),
		Followers: 10 + int((n/100)%500),
		Following: 5 + int((n/50000)%200),
	}
}
