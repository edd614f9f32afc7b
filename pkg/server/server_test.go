package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/metrics"
	"github.com/noai-dev/noai/pkg/session"
)

type testServer struct {
	*httptest.Server
	mock *backend.Mock
	srv  *Server
}

func newTestServer(t *testing.T, mockCfg backend.MockConfig, cfg *Config) *testServer {
	t.Helper()
	mock := backend.NewMock(mockCfg)
	mgr := session.NewManager(mock, session.ManagerConfig{}, nil)
	srv := New(mgr, cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return &testServer{Server: ts, mock: mock, srv: srv}
}

// do sends a request and decodes a JSON response into out (when non-nil).
func (ts *testServer) do(t *testing.T, method, path, sessionID, body string, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest() err = %v", err)
	}
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s err = %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s decode err = %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/sessions err = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/sessions status = %d, want 201", resp.StatusCode)
	}
	id := resp.Header.Get(SessionHeader)
	if id == "" {
		t.Fatal("no session header in response")
	}
	return id
}

type errorBody struct {
	Code string `json:"code"`
}

type timelineBody struct {
	State string `json:"state"`
	Posts []struct {
		ID    string            `json:"id"`
		Likes backend.LikeState `json:"likes"`
	} `json:"posts"`
}

type likeBody struct {
	backend.LikeState
	Pending bool `json:"pending"`
	Op      *struct {
		Pending    bool   `json:"pending"`
		RolledBack bool   `json:"rolledBack"`
		Error      string `json:"error"`
	} `json:"op"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	var body map[string]any
	if status := ts.do(t, http.MethodGet, "/healthz", "", "", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	id := ts.createSession(t)

	var state struct {
		ID   string       `json:"id"`
		User backend.User `json:"user"`
	}
	if status := ts.do(t, http.MethodGet, "/api/session", id, "", &state); status != http.StatusOK {
		t.Fatalf("GET /api/session status = %d", status)
	}
	if state.ID != id || state.User.ID != backend.CurrentUserID {
		t.Errorf("state = %+v", state)
	}

	if status := ts.do(t, http.MethodDelete, "/api/sessions", id, "", nil); status != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", status)
	}

	var eb errorBody
	if status := ts.do(t, http.MethodGet, "/api/session", id, "", &eb); status != http.StatusNotFound {
		t.Errorf("after close status = %d, want 404", status)
	}
	if eb.Code != noaierrors.CodeSessionUnknown {
		t.Errorf("code = %q, want %q", eb.Code, noaierrors.CodeSessionUnknown)
	}
}

func TestMissingSession(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	if status := ts.do(t, http.MethodGet, "/api/timeline", "", "", nil); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestTimelineAndLike(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	id := ts.createSession(t)

	var tl timelineBody
	if status := ts.do(t, http.MethodGet, "/api/timeline", id, "", &tl); status != http.StatusOK {
		t.Fatalf("GET /api/timeline status = %d", status)
	}
	if tl.State != "ready" || len(tl.Posts) != 4 {
		t.Fatalf("timeline = %+v", tl)
	}

	var like likeBody
	status := ts.do(t, http.MethodPost, "/api/posts/1/like?wait=1", id, "", &like)
	if status != http.StatusOK {
		t.Fatalf("like status = %d, want 200", status)
	}
	if !like.IsLiked || like.Count != 13 || like.Pending {
		t.Errorf("like = %+v, want settled 13 liked", like)
	}

	if status := ts.do(t, http.MethodPost, "/api/posts/nope/like", id, "", nil); status != http.StatusNotFound {
		t.Errorf("unknown post status = %d, want 404", status)
	}
}

func TestLikeRollback(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	id := ts.createSession(t)
	ts.do(t, http.MethodGet, "/api/timeline", id, "", nil)

	ts.mock.FailNext(backend.OpToggleLike, 1)
	var like likeBody
	if status := ts.do(t, http.MethodPost, "/api/posts/2/like?wait=1", id, "", &like); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if like.IsLiked || like.Count != 5 {
		t.Errorf("like = %+v, want restored 5 not liked", like)
	}
	if like.Op == nil || !like.Op.RolledBack || like.Op.Error == "" {
		t.Errorf("op = %+v, want rolled back with error", like.Op)
	}
}

func TestLikePendingAndDropped(t *testing.T) {
	latency := make(map[backend.Op]time.Duration)
	for op := range backend.DefaultLatency {
		latency[op] = 0
	}
	latency[backend.OpToggleLike] = time.Hour
	ts := newTestServer(t, backend.MockConfig{LatencyScale: 1, Latency: latency}, nil)
	id := ts.createSession(t)
	ts.do(t, http.MethodGet, "/api/timeline", id, "", nil)

	var like likeBody
	if status := ts.do(t, http.MethodPost, "/api/posts/3/like", id, "", &like); status != http.StatusAccepted {
		t.Fatalf("first toggle status = %d, want 202", status)
	}
	if !like.IsLiked || like.Count != 9 || !like.Pending {
		t.Errorf("optimistic like = %+v, want pending 9 liked", like)
	}

	var eb errorBody
	if status := ts.do(t, http.MethodPost, "/api/posts/3/like", id, "", &eb); status != http.StatusConflict {
		t.Errorf("second toggle status = %d, want 409", status)
	}
	if eb.Code != noaierrors.CodeEffectDropped {
		t.Errorf("code = %q, want %q", eb.Code, noaierrors.CodeEffectDropped)
	}
}

func TestAddCommentWhileSubmitting(t *testing.T) {
	latency := make(map[backend.Op]time.Duration)
	for op := range backend.DefaultLatency {
		latency[op] = 0
	}
	latency[backend.OpAddComment] = time.Hour
	ts := newTestServer(t, backend.MockConfig{LatencyScale: 1, Latency: latency}, nil)
	id := ts.createSession(t)
	ts.do(t, http.MethodGet, "/api/timeline", id, "", nil)
	ts.do(t, http.MethodGet, "/api/posts/1/comments", id, "", nil)

	if status := ts.do(t, http.MethodPost, "/api/posts/1/comments", id, `{"content":"first"}`, nil); status != http.StatusAccepted {
		t.Fatalf("first comment status = %d, want 202", status)
	}

	var eb errorBody
	if status := ts.do(t, http.MethodPost, "/api/posts/1/comments", id, `{"content":"second"}`, &eb); status != http.StatusConflict {
		t.Errorf("second comment status = %d, want 409", status)
	}
	if eb.Code != noaierrors.CodeEffectDropped {
		t.Errorf("code = %q, want %q", eb.Code, noaierrors.CodeEffectDropped)
	}
}

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	id := ts.createSession(t)

	var eb errorBody
	if status := ts.do(t, http.MethodPost, "/api/posts", id, `{"content":"   "}`, &eb); status != http.StatusUnprocessableEntity {
		t.Errorf("blank post status = %d, want 422", status)
	}
	if eb.Code != noaierrors.CodeEmptyContent {
		t.Errorf("code = %q, want %q", eb.Code, noaierrors.CodeEmptyContent)
	}

	var created struct {
		Post backend.Post `json:"post"`
	}
	if status := ts.do(t, http.MethodPost, "/api/posts", id, `{"content":"  first!  "}`, &created); status != http.StatusCreated {
		t.Fatalf("post status = %d, want 201", status)
	}
	if created.Post.Content != "first!" {
		t.Errorf("content = %q", created.Post.Content)
	}

	if status := ts.do(t, http.MethodPost, "/api/posts", id, `not json`, nil); status != http.StatusUnprocessableEntity {
		t.Errorf("bad body status = %d, want 422", status)
	}
}

func TestComments(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	id := ts.createSession(t)
	ts.do(t, http.MethodGet, "/api/timeline", id, "", nil)

	type commentsBody struct {
		Comments []struct {
			ID        string `json:"id"`
			Content   string `json:"content"`
			CanDelete bool   `json:"canDelete"`
		} `json:"comments"`
		Draft string `json:"draft"`
	}

	var cb commentsBody
	if status := ts.do(t, http.MethodGet, "/api/posts/1/comments", id, "", &cb); status != http.StatusOK {
		t.Fatalf("GET comments status = %d", status)
	}
	if len(cb.Comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(cb.Comments))
	}

	if status := ts.do(t, http.MethodPost, "/api/posts/1/comments", id, `{"content":" \t "}`, nil); status != http.StatusUnprocessableEntity {
		t.Errorf("blank comment status = %d, want 422", status)
	}

	if status := ts.do(t, http.MethodPost, "/api/posts/1/comments?wait=1", id, `{"content":"nice"}`, &cb); status != http.StatusOK {
		t.Fatalf("add comment status = %d", status)
	}
	if cb.Draft != "" {
		t.Errorf("draft = %q, want cleared", cb.Draft)
	}
	// Supersede the reload started by the add before deleting.
	if status := ts.do(t, http.MethodGet, "/api/posts/1/comments", id, "", &cb); status != http.StatusOK || len(cb.Comments) != 3 {
		t.Fatalf("reload status = %d, comments = %d, want 3", status, len(cb.Comments))
	}

	if status := ts.do(t, http.MethodDelete, "/api/posts/1/comments/c1", id, "", nil); status != http.StatusForbidden {
		t.Errorf("delete other's comment status = %d, want 403", status)
	}
	if status := ts.do(t, http.MethodDelete, "/api/posts/1/comments/c2?wait=1", id, "", &cb); status != http.StatusOK {
		t.Errorf("delete own comment status = %d, want 200", status)
	}
	for _, c := range cb.Comments {
		if c.ID == "c2" {
			t.Error("c2 still listed after delete")
		}
	}
}

func TestDiscoverProfileFollow(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	id := ts.createSession(t)

	if status := ts.do(t, http.MethodGet, "/api/discover/moon", id, "", nil); status != http.StatusUnprocessableEntity {
		t.Errorf("bad kind status = %d, want 422", status)
	}
	if status := ts.do(t, http.MethodPost, "/api/users/user-2/follow", id, "", nil); status != http.StatusNotFound {
		t.Errorf("follow before any page status = %d, want 404", status)
	}

	var page struct {
		Entries []backend.DiscoveryEntry `json:"entries"`
	}
	if status := ts.do(t, http.MethodGet, "/api/discover/trending", id, "", &page); status != http.StatusOK {
		t.Fatalf("discover status = %d", status)
	}
	if len(page.Entries) == 0 {
		t.Fatal("no entries")
	}
	target := page.Entries[0]

	var follow struct {
		backend.FollowState
		Pending bool `json:"pending"`
	}
	if status := ts.do(t, http.MethodPost, "/api/users/"+target.User.ID+"/follow?wait=1", id, "", &follow); status != http.StatusOK {
		t.Fatalf("follow status = %d", status)
	}
	if follow.IsFollowing == target.IsFollowing {
		t.Errorf("follow = %+v, want flipped from %v", follow, target.IsFollowing)
	}

	var profile struct {
		IsOwn bool `json:"isOwn"`
	}
	if status := ts.do(t, http.MethodGet, "/api/profiles/"+backend.CurrentUserID, id, "", &profile); status != http.StatusOK {
		t.Fatalf("profile status = %d", status)
	}
	if !profile.IsOwn {
		t.Error("own profile not marked isOwn")
	}
	if status := ts.do(t, http.MethodPost, "/api/users/"+backend.CurrentUserID+"/follow", id, "", nil); status != http.StatusUnprocessableEntity {
		t.Errorf("follow self status = %d, want 422", status)
	}
}

func TestNotifications(t *testing.T) {
	ts := newTestServer(t, backend.MockConfig{}, nil)
	id := ts.createSession(t)

	type snapshot struct {
		Notifications []backend.Notification `json:"notifications"`
		Unread        int                    `json:"unread"`
	}
	var snap snapshot
	if status := ts.do(t, http.MethodPost, "/api/notifications/open", id, "", &snap); status != http.StatusOK {
		t.Fatalf("open status = %d", status)
	}
	if snap.Unread == 0 || len(snap.Notifications) == 0 {
		t.Fatalf("snapshot = %+v, want unread notifications", snap)
	}
	first := snap.Notifications[0].ID

	var resp struct {
		Notifications snapshot `json:"notifications"`
	}
	if status := ts.do(t, http.MethodPost, "/api/notifications/unknown/read", id, "", &resp); status != http.StatusOK {
		t.Errorf("unknown id status = %d, want 200", status)
	}
	if resp.Notifications.Unread != snap.Unread {
		t.Errorf("unread = %d, want unchanged %d", resp.Notifications.Unread, snap.Unread)
	}

	ts.mock.FailNext(backend.OpMarkAllRead, 1)
	if status := ts.do(t, http.MethodPost, "/api/notifications/read-all?wait=1", id, "", &resp); status != http.StatusOK {
		t.Fatalf("read-all status = %d", status)
	}
	if resp.Notifications.Unread != snap.Unread {
		t.Errorf("unread after failed read-all = %d, want %d", resp.Notifications.Unread, snap.Unread)
	}

	if status := ts.do(t, http.MethodPost, "/api/notifications/"+first+"/read?wait=1", id, "", &resp); status != http.StatusOK {
		t.Fatalf("read status = %d", status)
	}
	if resp.Notifications.Unread != snap.Unread-1 {
		t.Errorf("unread after read = %d, want %d", resp.Notifications.Unread, snap.Unread-1)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.Reset()
	metrics.Init(metrics.WithRegistry(reg))
	t.Cleanup(metrics.Reset)

	ts := newTestServer(t, backend.MockConfig{}, &Config{MetricsPath: "/metrics", Gatherer: reg})
	ts.do(t, http.MethodGet, "/healthz", "", "", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics err = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "noai_http_requests_total") {
		t.Errorf("metrics output missing http_requests_total")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{noaierrors.CodeEmptyContent, http.StatusUnprocessableEntity},
		{noaierrors.CodeContentTooLong, http.StatusUnprocessableEntity},
		{noaierrors.CodeNotAuthor, http.StatusForbidden},
		{noaierrors.CodeEffectDropped, http.StatusConflict},
		{noaierrors.CodeSessionUnknown, http.StatusNotFound},
		{noaierrors.CodeSessionClosed, http.StatusGone},
		{noaierrors.CodeSessionLimit, http.StatusServiceUnavailable},
		{noaierrors.CodeSimulated, http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := statusFor(noaierrors.New(tt.code)); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
	if got := statusFor(io.EOF); got != http.StatusInternalServerError {
		t.Errorf("statusFor(plain error) = %d, want 500", got)
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "example.com", true},
		{"same", "https://example.com", "example.com", true},
		{"same with port", "http://localhost:8080", "localhost:8080", true},
		{"other host", "https://evil.com", "example.com", false},
		{"other port", "http://localhost:3000", "localhost:8080", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := SameOriginCheck(r); got != tt.want {
				t.Errorf("SameOriginCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowOrigins(t *testing.T) {
	check := AllowOrigins("http://localhost:3000")
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Host = "localhost:8080"

	r.Header.Set("Origin", "http://localhost:3000")
	if !check(r) {
		t.Error("listed origin rejected")
	}
	r.Header.Set("Origin", "http://localhost:4000")
	if check(r) {
		t.Error("unlisted origin accepted")
	}
}
