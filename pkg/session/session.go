package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/feed"
	"github.com/noai-dev/noai/pkg/metrics"
	"github.com/noai-dev/noai/pkg/notify"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/toast"
)

// ErrClosed is returned by Do after the session has been closed.
var ErrClosed = errors.New("session: closed")

// Frame types pushed to subscribers.
const (
	FrameNotifications = "notifications"
	FrameToast         = toast.EventName
)

// pushBuffer is how many frames a slow subscriber may lag behind before
// frames are dropped.
const pushBuffer = 32

// Config configures the controllers of a session.
type Config struct {
	// CurrentUserID is the signed-in user.
	CurrentUserID string

	// Policy is the optimistic policy for like and follow toggles.
	Policy optimistic.Policy

	// PollInterval and PollProbability drive the notification poll.
	PollInterval    time.Duration
	PollProbability float64

	// LoadTimeline starts loading the timeline when the session starts.
	LoadTimeline bool
}

// Frame is one message for the client.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Session is one connected client.
type Session struct {
	ID        string
	CreatedAt time.Time

	Timeline      *feed.Timeline
	Composer      *feed.Composer
	Notifications *notify.Store

	loop    *reactive.Loop
	api     backend.Backend
	cfg     Config
	opts    []feed.Option
	follows *feed.Follows
	logger  *slog.Logger

	mu         sync.Mutex
	lastActive time.Time
	discovery  map[backend.DiscoveryKind]*feed.Discovery
	profiles   map[string]*feed.Profile
	subs       map[uint64]chan Frame
	nextSub    uint64
	closed     bool
	unsubStore func()
}

// New creates a session. Start must be called before use.
func New(api backend.Backend, cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CurrentUserID == "" {
		cfg.CurrentUserID = api.CurrentUser().ID
	}

	id := uuid.NewString()
	now := time.Now()
	s := &Session{
		ID:         id,
		CreatedAt:  now,
		api:        api,
		cfg:        cfg,
		logger:     logger.With("session_id", id),
		lastActive: now,
		discovery:  make(map[backend.DiscoveryKind]*feed.Discovery),
		profiles:   make(map[string]*feed.Profile),
		subs:       make(map[uint64]chan Frame),
	}
	s.loop = reactive.NewLoop(&reactive.LoopConfig{Logger: s.logger})

	reporter := optimistic.MultiReporter(
		optimistic.LogReporter(s.logger),
		toast.FailureReporter{Emitter: s},
	)
	opts := []feed.Option{
		feed.WithPolicy(cfg.Policy),
		feed.WithReporter(reporter),
		feed.WithLogger(s.logger),
		feed.WithCurrentUser(cfg.CurrentUserID),
	}
	// Profiles and discovery pages share one follow button per user.
	s.follows = feed.NewFollows(s.loop, api, opts...)
	s.opts = append(opts, feed.WithFollows(s.follows))

	s.Timeline = feed.NewTimeline(s.loop, api, s.opts...)
	s.Composer = feed.NewComposer(s.loop, api, s.postCreated, s.opts...)
	s.Notifications = notify.New(s.loop, api, notify.Config{
		PollInterval: cfg.PollInterval,
		Probability:  cfg.PollProbability,
		Reporter:     reporter,
		Logger:       s.logger,
	})
	return s
}

// Start runs the loop and the notification poll.
func (s *Session) Start() error {
	s.loop.Start()
	s.unsubStore = s.Notifications.Subscribe(func(snap notify.Snapshot) {
		s.Emit(FrameNotifications, snap)
	})
	return s.Do(func() {
		s.Notifications.Fetch()
		s.Notifications.Start()
		if s.cfg.LoadTimeline {
			s.Timeline.Load()
		}
	})
}

// Do runs fn on the session loop and waits for it. It must not be called
// from the loop itself.
func (s *Session) Do(fn func()) error {
	s.Touch()
	if err := s.loop.Do(fn); err != nil {
		return noaierrors.New(noaierrors.CodeSessionClosed).
			WithDetailf("session %s is closed", s.ID).
			Wrap(ErrClosed)
	}
	return nil
}

// Touch records client activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive returns the time of the last client activity.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// CurrentUser returns the signed-in user.
func (s *Session) CurrentUser() backend.User {
	return s.api.CurrentUser()
}

// postCreated runs on the loop after the composer publishes a post.
func (s *Session) postCreated(p backend.Post) {
	s.Timeline.Prepend(p)
	s.Timeline.Load()
	toast.Success(s, "Posted.")
}

// Discovery opens a discovery page and starts loading it. Must run on the
// loop.
func (s *Session) Discovery(kind backend.DiscoveryKind) (*feed.Discovery, *reactive.Future[[]backend.DiscoveryEntry]) {
	s.mu.Lock()
	d, ok := s.discovery[kind]
	if !ok {
		d = feed.NewDiscovery(s.loop, s.api, kind, s.opts...)
		s.discovery[kind] = d
	}
	s.mu.Unlock()
	return d, d.Load()
}

// Profile opens a profile page and starts loading it. Must run on the
// loop.
func (s *Session) Profile(userID string) (*feed.Profile, *reactive.Future[backend.Profile]) {
	s.mu.Lock()
	p, ok := s.profiles[userID]
	if !ok {
		p = feed.NewProfile(s.loop, s.api, userID, s.opts...)
		s.profiles[userID] = p
	}
	s.mu.Unlock()
	return p, p.Load()
}

// ToggleFollow toggles the follow button of userID. Every open page showing
// the user shares that button. Must run on the loop.
func (s *Session) ToggleFollow(userID string) (*optimistic.Op, error) {
	p, f := s.followTarget(userID)
	switch {
	case p != nil:
		return p.ToggleFollow()
	case f != nil:
		return f.Toggle(), nil
	}
	return nil, userNotOpen(userID)
}

// Following returns the visible follow state of userID and whether a
// toggle is pending. Must run on the loop.
func (s *Session) Following(userID string) (backend.FollowState, bool, error) {
	p, f := s.followTarget(userID)
	switch {
	case p != nil:
		snap := p.Snapshot()
		state := backend.FollowState{UserID: userID}
		if snap.Profile != nil {
			state.IsFollowing = snap.Profile.IsFollowing
		}
		return state, snap.FollowPending, nil
	case f != nil:
		return f.State(), f.Pending(), nil
	}
	return backend.FollowState{}, false, userNotOpen(userID)
}

func (s *Session) followTarget(userID string) (*feed.Profile, *feed.Follow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	for _, d := range s.discovery {
		if f := d.Follow(userID); f != nil {
			return nil, f
		}
	}
	return nil, nil
}

func userNotOpen(userID string) error {
	return noaierrors.New(noaierrors.CodeNotFound).
		WithDetailf("user %s is not on an open page", userID).
		Wrap(backend.ErrNotFound)
}

// Emit pushes a frame to every subscriber without blocking. It satisfies
// toast.Emitter.
func (s *Session) Emit(name string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	frame := Frame{Type: name, Data: data}
	for _, ch := range s.subs {
		select {
		case ch <- frame:
			metrics.RecordPush(name)
		default:
			metrics.RecordWebSocketError("push_overflow")
			s.logger.Warn("push buffer full, frame dropped", "type", name)
		}
	}
}

// Subscribe returns a channel of pushed frames. The channel is closed when
// the session closes or the returned cancel function is called.
func (s *Session) Subscribe() (<-chan Frame, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Frame, pushBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.nextSub++
	id := s.nextSub
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close disposes every controller and stops the loop. In-flight effects
// are cancelled and their results discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[uint64]chan Frame)
	pages := make([]interface{ Dispose() }, 0, len(s.discovery)+len(s.profiles))
	for _, d := range s.discovery {
		pages = append(pages, d)
	}
	for _, p := range s.profiles {
		pages = append(pages, p)
	}
	s.mu.Unlock()

	if s.unsubStore != nil {
		s.unsubStore()
	}
	// Stop the loop first so no callback races the disposals below.
	s.loop.Close()
	s.Notifications.Dispose()
	s.Timeline.Dispose()
	for _, p := range pages {
		p.Dispose()
	}
	s.follows.Dispose()

	for _, ch := range subs {
		close(ch)
	}
}

// State is the full JSON view of a session.
type State struct {
	ID            string                `json:"id"`
	User          backend.User          `json:"user"`
	Timeline      feed.TimelineSnapshot `json:"timeline"`
	Composer      feed.ComposerSnapshot `json:"composer"`
	Notifications notify.Snapshot       `json:"notifications"`
}

// State returns a snapshot of the session's main views.
func (s *Session) State() State {
	return State{
		ID:            s.ID,
		User:          s.CurrentUser(),
		Timeline:      s.Timeline.Snapshot(),
		Composer:      s.Composer.Snapshot(),
		Notifications: s.Notifications.Snapshot(),
	}
}
