package notify

import (
	"context"
	"log/slog"
	"math/rand"
	"slices"
	"strconv"
	"time"

	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/metrics"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/resource"
)

// Action labels for metrics and failure toasts.
const (
	ActionMarkRead    = "mark_read"
	ActionMarkAllRead = "mark_all_read"
)

// allKey is the in-flight guard key of MarkAllAsRead.
const allKey = "*"

// DefaultPollInterval is the poll period when Config leaves it unset.
const DefaultPollInterval = 30 * time.Second

// Config configures a Store.
type Config struct {
	// PollInterval is how often the background poll ticks.
	PollInterval time.Duration

	// Probability is the chance per tick that the new-notification flag
	// is raised. It is taken literally: zero or less never raises it.
	Probability float64

	// Rand returns numbers in [0, 1). Defaults to math/rand/v2.
	Rand func() float64

	// Reporter receives rolled-back read operations.
	Reporter optimistic.Reporter

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store holds the notifications of one session.
type Store struct {
	ctx    reactive.Ctx
	src    backend.Notifications
	cfg    Config
	logger *slog.Logger

	list   *optimistic.Controller[[]backend.Notification]
	res    *resource.Resource[[]backend.Notification]
	hasNew *reactive.Signal[bool]

	stop reactive.Cleanup
}

// New creates a store. Call Start to begin the background poll.
func New(ctx reactive.Ctx, src backend.Notifications, cfg Config) *Store {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "notifications")
	if cfg.Reporter == nil {
		cfg.Reporter = optimistic.LogReporter(logger)
	}

	s := &Store{
		ctx:    ctx,
		src:    src,
		cfg:    cfg,
		logger: logger,
		list: optimistic.New(ctx, []backend.Notification{},
			optimistic.WithAction(ActionMarkRead),
			optimistic.WithReporter(cfg.Reporter),
		),
		hasNew: reactive.NewSignal(false),
	}
	s.res = resource.New(ctx, s.src.FetchNotifications,
		resource.OnSuccess(s.fetched),
		resource.OnError(s.fetchFailed),
	)
	return s
}

// Notifications returns a copy of the list, newest first.
func (s *Store) Notifications() []backend.Notification {
	return slices.Clone(s.list.Value())
}

// UnreadCount counts unread notifications in the current list.
func (s *Store) UnreadCount() int {
	return countUnread(s.list.Value())
}

func countUnread(list []backend.Notification) int {
	n := 0
	for _, item := range list {
		if !item.IsRead {
			n++
		}
	}
	return n
}

// Loading reports whether a fetch is in progress.
func (s *Store) Loading() bool { return s.res.IsLoading() }

// HasNew reports whether the poll signalled new activity since the panel
// was last opened.
func (s *Store) HasNew() bool { return s.hasNew.Get() }

// Fetch replaces the list from the backend. A failed fetch is logged and
// the previous list kept. Only the newest fetch in flight is applied.
func (s *Store) Fetch() *reactive.Future[[]backend.Notification] {
	return s.res.Refetch()
}

func (s *Store) fetched(list []backend.Notification) {
	if list == nil {
		list = []backend.Notification{}
	}
	s.list.Set(list)
	metrics.RecordFetch("success")
}

func (s *Store) fetchFailed(err error) {
	s.logger.Error("fetching notifications failed", "error", err)
	metrics.RecordFetch("error")
}

// MarkAsRead marks one unread notification read and confirms with the
// backend. If the backend rejects, only that record goes back to unread.
// It returns nil, doing nothing, when id is unknown or already read.
func (s *Store) MarkAsRead(id string) *optimistic.Op {
	i := slices.IndexFunc(s.list.Value(), func(n backend.Notification) bool { return n.ID == id })
	if i < 0 || s.list.Value()[i].IsRead {
		return nil
	}

	return s.list.Run(optimistic.Transition[[]backend.Notification]{
		Action: ActionMarkRead,
		Key:    id,
		Apply: func(cur []backend.Notification) []backend.Notification {
			return setRead(cur, id, true)
		},
		Effect: func(ctx context.Context) error {
			return s.src.MarkNotificationRead(ctx, id)
		},
		Revert: func(cur, _ []backend.Notification) []backend.Notification {
			return setRead(cur, id, false)
		},
	})
}

// MarkAllAsRead marks every notification read. If the backend rejects,
// the list goes back to exactly what it was before.
func (s *Store) MarkAllAsRead() *optimistic.Op {
	return s.list.Run(optimistic.Transition[[]backend.Notification]{
		Action: ActionMarkAllRead,
		Key:    allKey,
		Apply: func(cur []backend.Notification) []backend.Notification {
			out := slices.Clone(cur)
			for i := range out {
				out[i].IsRead = true
			}
			return out
		},
		Effect: s.src.MarkAllNotificationsRead,
	})
}

// setRead returns a copy of list with the read flag of id set.
func setRead(list []backend.Notification, id string, read bool) []backend.Notification {
	out := slices.Clone(list)
	for i := range out {
		if out[i].ID == id {
			out[i].IsRead = read
		}
	}
	return out
}

// ClearNewFlag resets the new-notification flag.
func (s *Store) ClearNewFlag() {
	s.hasNew.Set(false)
}

// Open is what happens when the panel opens: a fetch and a cleared flag.
func (s *Store) Open() *reactive.Future[[]backend.Notification] {
	f := s.Fetch()
	s.ClearNewFlag()
	return f
}

// Start begins the background poll. Calling it again restarts the poll.
func (s *Store) Start() {
	if s.stop != nil {
		s.stop()
	}
	s.stop = reactive.Interval(s.ctx, s.cfg.PollInterval, s.poll)
}

func (s *Store) poll() {
	if s.cfg.Rand() < s.cfg.Probability {
		s.hasNew.Set(true)
		metrics.RecordNewSignal()
		s.logger.Debug("new notification signal")
	}
}

// Dispose stops the poll and discards anything still in flight.
func (s *Store) Dispose() {
	if s.stop != nil {
		s.stop()
	}
	s.list.Dispose()
	s.res.Dispose()
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	Notifications []backend.Notification `json:"notifications"`
	Unread        int                    `json:"unread"`
	Badge         string                 `json:"badge,omitempty"`
	Loading       bool                   `json:"loading"`
	HasNew        bool                   `json:"hasNew"`
}

// Snapshot returns the current view. Unread is computed from the same
// list that is returned.
func (s *Store) Snapshot() Snapshot {
	list := slices.Clone(s.list.Value())
	unread := countUnread(list)
	return Snapshot{
		Notifications: list,
		Unread:        unread,
		Badge:         Badge(unread),
		Loading:       s.Loading(),
		HasNew:        s.HasNew(),
	}
}

// Subscribe calls fn with a fresh snapshot after any change to the list,
// the loading state or the flag. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	unsubs := []func(){
		s.list.Signal().Subscribe(func([]backend.Notification) { fn(s.Snapshot()) }),
		s.res.StateSignal().Subscribe(func(resource.State) { fn(s.Snapshot()) }),
		s.hasNew.Subscribe(func(bool) { fn(s.Snapshot()) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Badge renders the unread count for the bell: "" for none, "99+" above 99.
func Badge(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 99:
		return "99+"
	default:
		return strconv.Itoa(unread)
	}
}

// Route is where clicking a notification leads: the sender's profile for
// follows, the home timeline otherwise.
func Route(n backend.Notification) string {
	if n.Type == backend.NotificationFollow {
		return "/profile/" + n.Sender.ID
	}
	return "/home"
}
