package backend

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/media"
	"github.com/noai-dev/noai/pkg/metrics"
)

// Op names a mock backend operation for latency and fault injection.
type Op string

const (
	OpToggleLike         Op = "toggle_like"
	OpLoadLikes          Op = "load_likes"
	OpToggleFollow       Op = "toggle_follow"
	OpAddComment         Op = "add_comment"
	OpDeleteComment      Op = "delete_comment"
	OpLoadComments       Op = "load_comments"
	OpFetchNotifications Op = "fetch_notifications"
	OpMarkRead           Op = "mark_notification_read"
	OpMarkAllRead        Op = "mark_all_notifications_read"
	OpLoadTimeline       Op = "load_timeline"
	OpCreatePost         Op = "create_post"
	OpLoadProfile        Op = "load_profile"
	OpDiscover           Op = "discover"
)

// DefaultLatency is the artificial delay of each operation at scale 1.
var DefaultLatency = map[Op]time.Duration{
	OpToggleLike:         300 * time.Millisecond,
	OpLoadLikes:          300 * time.Millisecond,
	OpToggleFollow:       500 * time.Millisecond,
	OpAddComment:         400 * time.Millisecond,
	OpDeleteComment:      300 * time.Millisecond,
	OpLoadComments:       500 * time.Millisecond,
	OpFetchNotifications: 800 * time.Millisecond,
	OpMarkRead:           200 * time.Millisecond,
	OpMarkAllRead:        300 * time.Millisecond,
	OpLoadTimeline:       1000 * time.Millisecond,
	OpCreatePost:         700 * time.Millisecond,
	OpLoadProfile:        500 * time.Millisecond,
	OpDiscover:           1000 * time.Millisecond,
}

// MockConfig configures a Mock. The zero value is a mock with no latency
// and no random failures.
type MockConfig struct {
	// CurrentUserID is the signed-in user (default CurrentUserID).
	CurrentUserID string

	// LatencyScale multiplies DefaultLatency. 0 disables delays.
	LatencyScale float64

	// Latency overrides DefaultLatency per operation (before scaling).
	Latency map[Op]time.Duration

	// FailureRate is the probability that any call fails.
	FailureRate float64

	// Rand returns numbers in [0, 1) for failure rolls.
	Rand func() float64

	// Avatars resolves avatar keys. Nil leaves AvatarURL empty.
	Avatars media.Resolver

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type userRecord struct {
	user      User
	avatarKey string
	stats     Stats
}

type postRecord struct {
	id, authorID, content string
	createdAt             time.Time
	likes                 int
	liked                 bool
}

// Mock is an in-memory Backend over the seeded data set.
type Mock struct {
	cfg    MockConfig
	logger *slog.Logger

	mu            sync.Mutex
	users         map[string]*userRecord
	posts         []*postRecord
	comments      map[string][]Comment
	commentPost   map[string]string
	follows       map[string]bool
	notifications []Notification
	discovery     map[DiscoveryKind][]discoveryRecord
	failNext      map[Op]int
	calls         map[Op]int
}

type discoveryRecord struct {
	userID     string
	descriptor string
	live       bool
}

var _ Backend = (*Mock)(nil)

// NewMock creates a mock seeded with the demo data set.
func NewMock(cfg MockConfig) *Mock {
	if cfg.CurrentUserID == "" {
		cfg.CurrentUserID = CurrentUserID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mock{
		cfg:         cfg,
		logger:      logger.With("component", "backend"),
		users:       make(map[string]*userRecord),
		comments:    make(map[string][]Comment),
		commentPost: make(map[string]string),
		follows:     make(map[string]bool),
		discovery:   make(map[DiscoveryKind][]discoveryRecord),
		failNext:    make(map[Op]int),
		calls:       make(map[Op]int),
	}
	m.seed(cfg.Now())
	return m
}

func (m *Mock) seed(now time.Time) {
	for _, su := range seedUsers {
		stats := su.stats
		if stats == (Stats{}) {
			stats = derivedStats(su.id)
		}
		m.users[su.id] = &userRecord{
			user:      User{ID: su.id, Name: su.name, Bio: su.bio},
			avatarKey: su.avatarKey,
			stats:     stats,
		}
	}
	addDiscoveryUser := func(id, name string, following bool) {
		m.users[id] = &userRecord{user: User{ID: id, Name: name}, stats: derivedStats(id)}
		m.follows[id] = following
	}
	for _, u := range seedNearbyUsers {
		addDiscoveryUser(u.id, u.name, u.following)
		m.discovery[DiscoverNearby] = append(m.discovery[DiscoverNearby],
			discoveryRecord{userID: u.id, descriptor: FormatDistance(u.km)})
	}
	for _, u := range seedTrendingUsers {
		addDiscoveryUser(u.id, u.name, u.following)
		m.discovery[DiscoverTrending] = append(m.discovery[DiscoverTrending],
			discoveryRecord{userID: u.id, descriptor: TrendingDescriptor(u.rank, u.searches)})
	}
	for _, u := range seedLiveUsers {
		addDiscoveryUser(u.id, u.name, u.following)
		m.discovery[DiscoverLive] = append(m.discovery[DiscoverLive],
			discoveryRecord{userID: u.id, descriptor: u.lastActive, live: u.lastActive == activeNow})
	}

	for _, sp := range seedPosts {
		m.posts = append(m.posts, &postRecord{
			id:        sp.id,
			authorID:  sp.authorID,
			content:   sp.content,
			createdAt: now.Add(-sp.age),
			likes:     sp.likes,
		})
	}
	for _, sc := range seedComments {
		author := m.users[sc.authorID]
		m.comments[sc.postID] = append(m.comments[sc.postID], Comment{
			ID:         sc.id,
			Content:    sc.content,
			CreatedAt:  now.Add(-sc.age),
			AuthorID:   sc.authorID,
			AuthorName: author.user.Name,
		})
		m.commentPost[sc.id] = sc.postID
	}
	for _, sn := range seedNotifications {
		sender := m.users[sn.senderID]
		m.notifications = append(m.notifications, Notification{
			ID:        sn.id,
			Type:      sn.typ,
			Message:   sn.message,
			Sender:    Sender{ID: sn.senderID, Name: sender.user.Name},
			TargetID:  sn.targetID,
			IsRead:    sn.read,
			CreatedAt: now.Add(-sn.age),
		})
	}
}

// FailNext makes the next n calls of op fail with ErrSimulatedFailure.
func (m *Mock) FailNext(op Op, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[op] += n
}

// SetFailureRate changes the random failure probability.
func (m *Mock) SetFailureRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.FailureRate = rate
}

// Calls returns how many times op has been invoked.
func (m *Mock) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// CurrentUser returns the signed-in user.
func (m *Mock) CurrentUser() User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userLocked(context.Background(), m.cfg.CurrentUserID)
}

// Notify adds an externally created notification, newest first. An empty
// ID gets a generated one.
func (m *Mock) Notify(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.cfg.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append([]Notification{n}, m.notifications...)
	return n
}

// call applies latency and fault injection for op.
func (m *Mock) call(ctx context.Context, op Op) (err error) {
	defer func() {
		metrics.RecordBackendCall(string(op), err)
		if err != nil {
			m.logger.Debug("mock call failed", "op", op, "error", err)
		}
	}()

	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()

	if err := m.sleep(ctx, op); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.failNext[op]; n > 0 {
		m.failNext[op] = n - 1
		return simulated(op)
	}
	if m.cfg.FailureRate > 0 && m.cfg.Rand() < m.cfg.FailureRate {
		return simulated(op)
	}
	return nil
}

func (m *Mock) sleep(ctx context.Context, op Op) error {
	d, ok := m.cfg.Latency[op]
	if !ok {
		d = DefaultLatency[op]
	}
	d = time.Duration(float64(d) * m.cfg.LatencyScale)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func simulated(op Op) error {
	return noaierrors.New(noaierrors.CodeSimulated).
		WithDetailf("%s rejected by the mock backend", op).
		Wrap(ErrSimulatedFailure)
}

func notFound(kind, id string) error {
	return noaierrors.New(noaierrors.CodeNotFound).
		WithDetailf("%s %q does not exist", kind, id).
		Wrap(ErrNotFound)
}

// userLocked builds the public view of a user. Callers hold m.mu.
func (m *Mock) userLocked(ctx context.Context, id string) User {
	rec, ok := m.users[id]
	if !ok {
		return User{ID: id, Name: "Unknown User"}
	}
	u := rec.user
	if m.cfg.Avatars != nil && rec.avatarKey != "" {
		url, err := m.cfg.Avatars.AvatarURL(ctx, rec.avatarKey)
		if err != nil {
			m.logger.Warn("avatar resolution failed", "user_id", id, "error", err)
		} else {
			u.AvatarURL = url
		}
	}
	return u
}

func (m *Mock) postLocked(id string) *postRecord {
	for _, p := range m.posts {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (m *Mock) postViewLocked(ctx context.Context, p *postRecord) Post {
	return Post{
		ID:        p.id,
		Content:   p.content,
		CreatedAt: p.createdAt,
		Author:    m.userLocked(ctx, p.authorID),
		Likes: LikeState{
			PostID:  p.id,
			IsLiked: p.liked,
			Count:   p.likes,
		},
		CommentCount: len(m.comments[p.id]),
	}
}

// =============================================================================
// Likes
// =============================================================================

// ToggleLike records that the current user likes (or no longer likes) a
// post. Repeating the current state is a no-op.
func (m *Mock) ToggleLike(ctx context.Context, postID string, liked bool) error {
	if err := m.call(ctx, OpToggleLike); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.postLocked(postID)
	if p == nil {
		return notFound("post", postID)
	}
	if p.liked != liked {
		p.liked = liked
		if liked {
			p.likes++
		} else {
			p.likes--
		}
	}
	return nil
}

// LoadLikes returns the like counter of a post.
func (m *Mock) LoadLikes(ctx context.Context, postID string) (LikeSummary, error) {
	if err := m.call(ctx, OpLoadLikes); err != nil {
		return LikeSummary{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.postLocked(postID)
	if p == nil {
		return LikeSummary{}, notFound("post", postID)
	}
	return LikeSummary{Count: p.likes, IsLiked: p.liked}, nil
}

// =============================================================================
// Follows
// =============================================================================

// ToggleFollow records a follow or unfollow of userID.
func (m *Mock) ToggleFollow(ctx context.Context, userID string, following bool) error {
	if err := m.call(ctx, OpToggleFollow); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	if m.follows[userID] == following {
		return nil
	}
	m.follows[userID] = following
	delta := 1
	if !following {
		delta = -1
	}
	target.stats.Followers += delta
	if me, ok := m.users[m.cfg.CurrentUserID]; ok {
		me.stats.Following += delta
	}
	return nil
}

// =============================================================================
// Comments
// =============================================================================

// AddComment appends a comment by the current user.
func (m *Mock) AddComment(ctx context.Context, postID, content string) error {
	if err := m.call(ctx, OpAddComment); err != nil {
		return err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return noaierrors.New(noaierrors.CodeEmptyContent)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postLocked(postID) == nil {
		return notFound("post", postID)
	}
	me := m.userLocked(ctx, m.cfg.CurrentUserID)
	c := Comment{
		ID:           uuid.NewString(),
		Content:      content,
		CreatedAt:    m.cfg.Now(),
		AuthorID:     me.ID,
		AuthorName:   me.Name,
		AuthorAvatar: me.AvatarURL,
	}
	m.comments[postID] = append(m.comments[postID], c)
	m.commentPost[c.ID] = postID
	return nil
}

// DeleteComment removes one of the current user's comments.
func (m *Mock) DeleteComment(ctx context.Context, commentID string) error {
	if err := m.call(ctx, OpDeleteComment); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	postID, ok := m.commentPost[commentID]
	if !ok {
		return notFound("comment", commentID)
	}
	list := m.comments[postID]
	for i, c := range list {
		if c.ID != commentID {
			continue
		}
		if c.AuthorID != m.cfg.CurrentUserID {
			return noaierrors.New(noaierrors.CodeNotAuthor)
		}
		m.comments[postID] = append(list[:i:i], list[i+1:]...)
		delete(m.commentPost, commentID)
		return nil
	}
	return notFound("comment", commentID)
}

// LoadComments returns a post's comments, oldest first.
func (m *Mock) LoadComments(ctx context.Context, postID string) ([]Comment, error) {
	if err := m.call(ctx, OpLoadComments); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postLocked(postID) == nil {
		return nil, notFound("post", postID)
	}
	out := make([]Comment, len(m.comments[postID]))
	copy(out, m.comments[postID])
	return out, nil
}

// =============================================================================
// Notifications
// =============================================================================

// FetchNotifications returns every notification, newest first.
func (m *Mock) FetchNotifications(ctx context.Context) ([]Notification, error) {
	if err := m.call(ctx, OpFetchNotifications); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.notifications))
	copy(out, m.notifications)
	return out, nil
}

// MarkNotificationRead marks one notification read.
func (m *Mock) MarkNotificationRead(ctx context.Context, id string) error {
	if err := m.call(ctx, OpMarkRead); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return notFound("notification", id)
}

// MarkAllNotificationsRead marks every notification read.
func (m *Mock) MarkAllNotificationsRead(ctx context.Context) error {
	if err := m.call(ctx, OpMarkAllRead); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		m.notifications[i].IsRead = true
	}
	return nil
}

// =============================================================================
// Timeline
// =============================================================================

// LoadTimeline returns every post, newest first.
func (m *Mock) LoadTimeline(ctx context.Context) ([]Post, error) {
	if err := m.call(ctx, OpLoadTimeline); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, m.postViewLocked(ctx, p))
	}
	return out, nil
}

// CreatePost publishes a post by the current user.
func (m *Mock) CreatePost(ctx context.Context, content string) (Post, error) {
	if err := m.call(ctx, OpCreatePost); err != nil {
		return Post{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Post{}, noaierrors.New(noaierrors.CodeEmptyContent)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := &postRecord{
		id:        uuid.NewString(),
		authorID:  m.cfg.CurrentUserID,
		content:   content,
		createdAt: m.cfg.Now(),
	}
	m.posts = append([]*postRecord{p}, m.posts...)
	if me, ok := m.users[m.cfg.CurrentUserID]; ok {
		me.stats.Posts++
	}
	return m.postViewLocked(ctx, p), nil
}

// =============================================================================
// Profiles & Discovery
// =============================================================================

// LoadProfile returns a user page. Unknown ids get an "Unknown User"
// placeholder rather than an error.
func (m *Mock) LoadProfile(ctx context.Context, userID string) (Profile, error) {
	if err := m.call(ctx, OpLoadProfile); err != nil {
		return Profile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := derivedStats(userID)
	if rec, ok := m.users[userID]; ok {
		stats = rec.stats
	}
	profile := Profile{
		User:        m.userLocked(ctx, userID),
		Stats:       stats,
		IsFollowing: m.follows[userID],
		Posts:       []Post{},
	}
	for _, p := range m.posts {
		if p.authorID == userID {
			profile.Posts = append(profile.Posts, m.postViewLocked(ctx, p))
		}
	}
	return profile, nil
}

// Discover returns a discovery page.
func (m *Mock) Discover(ctx context.Context, kind DiscoveryKind) ([]DiscoveryEntry, error) {
	if err := m.call(ctx, OpDiscover); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	records, ok := m.discovery[kind]
	if !ok {
		return nil, notFound("discovery page", string(kind))
	}
	out := make([]DiscoveryEntry, 0, len(records))
	for _, r := range records {
		out = append(out, DiscoveryEntry{
			User:        m.userLocked(ctx, r.userID),
			Descriptor:  r.descriptor,
			Live:        r.live,
			IsFollowing: m.follows[r.userID],
		})
	}
	return out, nil
}
