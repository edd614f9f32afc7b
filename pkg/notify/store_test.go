package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/vtest"
)

var errOffline = errors.New("offline")

// fakeSource serves a fixed list and fails on demand.
type fakeSource struct {
	mu        sync.Mutex
	list      []backend.Notification
	fetchErr  error
	readErr   error
	allErr    error
	readCalls int
	allCalls  int

	// block, when set, is waited on by the next fetch before it returns
	// the list captured at call time. entered is closed when that fetch
	// starts waiting.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSource) FetchNotifications(ctx context.Context) ([]backend.Notification, error) {
	f.mu.Lock()
	list := append([]backend.Notification(nil), f.list...)
	err := f.fetchErr
	block, entered := f.block, f.entered
	f.block, f.entered = nil, nil
	f.mu.Unlock()

	if block != nil {
		close(entered)
		<-block
	}
	return list, err
}

func (f *fakeSource) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readCalls++
	return f.readErr
}

func (f *fakeSource) MarkAllNotificationsRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allCalls++
	return f.allErr
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func n(id string, read bool) backend.Notification {
	return backend.Notification{ID: id, Type: backend.NotificationLike, IsRead: read}
}

func waitFuture[T any](t *testing.T, f *reactive.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("future did not resolve")
	}
	return v, err
}

func waitOp(t *testing.T, op *optimistic.Op) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := op.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("op did not settle")
	}
	return err
}

func newStore(t *testing.T, src backend.Notifications) *Store {
	t.Helper()
	s := New(vtest.NewCtx(), src, Config{Reporter: &vtest.Reporter{}})
	t.Cleanup(s.Dispose)
	return s
}

// checkUnread asserts the unread count matches the list.
func checkUnread(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	want := 0
	for _, item := range snap.Notifications {
		if !item.IsRead {
			want++
		}
	}
	if snap.Unread != want || s.UnreadCount() != want {
		t.Errorf("unread = %d/%d, want %d", snap.Unread, s.UnreadCount(), want)
	}
}

func TestStore_FetchReplacesList(t *testing.T) {
	src := &fakeSource{list: []backend.Notification{n("1", false), n("2", true), n("3", false)}}
	s := newStore(t, src)

	f := s.Fetch()
	if !s.Loading() {
		t.Error("Loading() = false during fetch")
	}
	if _, err := waitFuture(t, f); err != nil {
		t.Fatalf("Fetch() err = %v", err)
	}
	if s.Loading() {
		t.Error("Loading() = true after fetch")
	}
	if got := len(s.Notifications()); got != 3 {
		t.Errorf("len(Notifications()) = %d, want 3", got)
	}
	if s.UnreadCount() != 2 {
		t.Errorf("UnreadCount() = %d, want 2", s.UnreadCount())
	}
	checkUnread(t, s)
}

func TestStore_FetchFailureKeepsList(t *testing.T) {
	src := &fakeSource{list: []backend.Notification{n("1", false)}}
	s := newStore(t, src)
	if _, err := waitFuture(t, s.Fetch()); err != nil {
		t.Fatalf("Fetch() err = %v", err)
	}

	src.set(func(f *fakeSource) {
		f.list = []backend.Notification{n("9", true)}
		f.fetchErr = errOffline
	})
	if _, err := waitFuture(t, s.Fetch()); !errors.Is(err, errOffline) {
		t.Fatalf("Fetch() err = %v, want errOffline", err)
	}

	got := s.Notifications()
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("Notifications() = %+v, want the previous list", got)
	}
	if s.Loading() {
		t.Error("Loading() = true after failed fetch")
	}
	checkUnread(t, s)
}

func TestStore_StaleFetchIgnored(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	src := &fakeSource{list: []backend.Notification{n("old", false)}, block: release, entered: entered}
	s := newStore(t, src)

	first := s.Fetch()
	<-entered
	src.set(func(f *fakeSource) { f.list = []backend.Notification{n("new", false)} })
	second := s.Fetch()

	if _, err := waitFuture(t, second); err != nil {
		t.Fatalf("second Fetch() err = %v", err)
	}
	close(release)
	if _, err := waitFuture(t, first); !errors.Is(err, context.Canceled) {
		t.Errorf("first Fetch() err = %v, want context.Canceled", err)
	}

	got := s.Notifications()
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Notifications() = %+v, want [new]", got)
	}
}

func TestStore_MarkAsRead(t *testing.T) {
	tests := []struct {
		name     string
		readErr  error
		wantRead bool
	}{
		{"confirmed", nil, true},
		{"rejected reverts the record", errOffline, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				list:    []backend.Notification{n("1", false), n("2", false), n("3", true)},
				readErr: tt.readErr,
			}
			s := newStore(t, src)
			if _, err := waitFuture(t, s.Fetch()); err != nil {
				t.Fatalf("Fetch() err = %v", err)
			}

			op := s.MarkAsRead("1")
			if op == nil {
				t.Fatal("MarkAsRead(1) = nil")
			}
			if !s.Notifications()[0].IsRead || s.UnreadCount() != 1 {
				t.Errorf("optimistic: read=%v unread=%d", s.Notifications()[0].IsRead, s.UnreadCount())
			}
			checkUnread(t, s)

			err := waitOp(t, op)
			if (err != nil) != (tt.readErr != nil) {
				t.Errorf("op err = %v, want error %v", err, tt.readErr != nil)
			}

			got := s.Notifications()
			if got[0].IsRead != tt.wantRead {
				t.Errorf("record 1 IsRead = %v, want %v", got[0].IsRead, tt.wantRead)
			}
			if got[1].IsRead || !got[2].IsRead {
				t.Errorf("other records changed: %+v", got)
			}
			checkUnread(t, s)
		})
	}
}

func TestStore_MarkAsReadUnknownID(t *testing.T) {
	src := &fakeSource{list: []backend.Notification{n("1", false), n("2", true)}}
	s := newStore(t, src)
	if _, err := waitFuture(t, s.Fetch()); err != nil {
		t.Fatalf("Fetch() err = %v", err)
	}
	before := s.Notifications()

	if op := s.MarkAsRead("missing"); op != nil {
		t.Errorf("MarkAsRead(missing) = %v, want nil", op)
	}
	if op := s.MarkAsRead("2"); op != nil {
		t.Errorf("MarkAsRead(already read) = %v, want nil", op)
	}

	after := s.Notifications()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("record %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	if src.readCalls != 0 {
		t.Errorf("MarkNotificationRead calls = %d, want 0", src.readCalls)
	}
}

func TestStore_MarkAllAsReadFailureRestoresSnapshot(t *testing.T) {
	src := &fakeSource{
		list:   []backend.Notification{n("1", false), n("2", true)},
		allErr: errOffline,
	}
	rep := &vtest.Reporter{}
	s := New(vtest.NewCtx(), src, Config{Reporter: rep})
	defer s.Dispose()
	if _, err := waitFuture(t, s.Fetch()); err != nil {
		t.Fatalf("Fetch() err = %v", err)
	}

	op := s.MarkAllAsRead()
	if s.UnreadCount() != 0 {
		t.Errorf("optimistic UnreadCount() = %d, want 0", s.UnreadCount())
	}
	checkUnread(t, s)

	if err := waitOp(t, op); !errors.Is(err, errOffline) {
		t.Fatalf("op err = %v, want errOffline", err)
	}

	got := s.Notifications()
	want := []backend.Notification{n("1", false), n("2", true)}
	if len(got) != len(want) {
		t.Fatalf("Notifications() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	checkUnread(t, s)
	if rep.Len() != 1 || rep.Reports()[0].Action != ActionMarkAllRead {
		t.Errorf("reports = %+v, want one mark_all_read", rep.Reports())
	}
}

func TestStore_MarkAllAsReadConfirmed(t *testing.T) {
	src := &fakeSource{list: []backend.Notification{n("1", false), n("2", false)}}
	s := newStore(t, src)
	if _, err := waitFuture(t, s.Fetch()); err != nil {
		t.Fatalf("Fetch() err = %v", err)
	}
	if err := waitOp(t, s.MarkAllAsRead()); err != nil {
		t.Fatalf("MarkAllAsRead() err = %v", err)
	}
	if s.UnreadCount() != 0 {
		t.Errorf("UnreadCount() = %d, want 0", s.UnreadCount())
	}
}

func TestStore_OpenClearsFlag(t *testing.T) {
	src := &fakeSource{list: []backend.Notification{n("1", false)}}
	s := newStore(t, src)
	s.hasNew.Set(true)

	f := s.Open()
	if s.HasNew() {
		t.Error("HasNew() = true after Open")
	}
	if _, err := waitFuture(t, f); err != nil {
		t.Fatalf("Open() err = %v", err)
	}
	if len(s.Notifications()) != 1 {
		t.Error("Open() did not fetch")
	}
}

func TestStore_PollRaisesFlag(t *testing.T) {
	rolls := make(chan float64, 8)
	rolls <- 0.5
	rolls <- 0.05

	s := New(vtest.NewCtx(), &fakeSource{}, Config{
		PollInterval: 5 * time.Millisecond,
		Probability:  0.1,
		Rand: func() float64 {
			select {
			case r := <-rolls:
				return r
			default:
				return 0.99
			}
		},
	})
	defer s.Dispose()

	s.Start()
	deadline := time.Now().Add(5 * time.Second)
	for !s.HasNew() {
		if time.Now().After(deadline) {
			t.Fatal("HasNew() never became true")
		}
		time.Sleep(time.Millisecond)
	}

	s.ClearNewFlag()
	if s.HasNew() {
		t.Error("HasNew() = true after ClearNewFlag")
	}
}

func TestStore_ZeroProbabilityNeverRaises(t *testing.T) {
	for _, p := range []float64{0, -1} {
		s := New(vtest.NewCtx(), &fakeSource{}, Config{
			Probability: p,
			Rand:        func() float64 { return 0 },
		})
		for i := 0; i < 100; i++ {
			s.poll()
		}
		if s.HasNew() {
			t.Errorf("Probability %v: HasNew() = true, want false", p)
		}
		s.Dispose()
	}
}

func TestStore_DisposeStopsPoll(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	s := New(vtest.NewCtx(), &fakeSource{}, Config{
		PollInterval: time.Millisecond,
		Probability:  -1,
		Rand: func() float64 {
			mu.Lock()
			defer mu.Unlock()
			ticks++
			return 0
		},
	})

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Dispose()
	time.Sleep(5 * time.Millisecond)

	mu.Lock()
	stopped := ticks
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if ticks != stopped {
		t.Errorf("ticks after Dispose = %d, want %d", ticks, stopped)
	}
	if s.HasNew() {
		t.Error("negative probability should never raise the flag")
	}
}

func TestStore_Subscribe(t *testing.T) {
	src := &fakeSource{list: []backend.Notification{n("1", false)}}
	s := newStore(t, src)

	var mu sync.Mutex
	var last Snapshot
	calls := 0
	unsub := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		last = snap
		calls++
	})

	if _, err := waitFuture(t, s.Fetch()); err != nil {
		t.Fatalf("Fetch() err = %v", err)
	}
	mu.Lock()
	if calls == 0 || last.Unread != 1 || last.Badge != "1" {
		t.Errorf("after fetch: calls=%d last=%+v", calls, last)
	}
	mu.Unlock()

	unsub()
	mu.Lock()
	before := calls
	mu.Unlock()
	s.ClearNewFlag()
	mu.Lock()
	defer mu.Unlock()
	if calls != before {
		t.Errorf("calls after unsubscribe = %d, want %d", calls, before)
	}
}

func TestStore_WithMock(t *testing.T) {
	m := backend.NewMock(backend.MockConfig{})
	s := newStore(t, m)

	if _, err := waitFuture(t, s.Open()); err != nil {
		t.Fatalf("Open() err = %v", err)
	}
	if s.UnreadCount() != 3 {
		t.Errorf("UnreadCount() = %d, want 3 from seed", s.UnreadCount())
	}

	m.FailNext(backend.OpMarkRead, 1)
	op := s.MarkAsRead("n2")
	if err := waitOp(t, op); !errors.Is(err, backend.ErrSimulatedFailure) {
		t.Errorf("MarkAsRead err = %v, want ErrSimulatedFailure", err)
	}
	if s.UnreadCount() != 3 {
		t.Errorf("UnreadCount() after rejected read = %d, want 3", s.UnreadCount())
	}
	checkUnread(t, s)
}

func TestBadge(t *testing.T) {
	tests := []struct {
		unread int
		want   string
	}{
		{0, ""},
		{1, "1"},
		{99, "99"},
		{100, "99+"},
		{250, "99+"},
	}
	for _, tt := range tests {
		if got := Badge(tt.unread); got != tt.want {
			t.Errorf("Badge(%d) = %q, want %q", tt.unread, got, tt.want)
		}
	}
}

func TestRoute(t *testing.T) {
	follow := backend.Notification{Type: backend.NotificationFollow, Sender: backend.Sender{ID: "user-ana"}}
	like := backend.Notification{Type: backend.NotificationLike, Sender: backend.Sender{ID: "user-maria"}}

	if got := Route(follow); got != "/profile/user-ana" {
		t.Errorf("Route(follow) = %q", got)
	}
	if got := Route(like); got != "/home" {
		t.Errorf("Route(like) = %q", got)
	}
}
