package feed

import (
	"log/slog"
	"sync"

	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/resource"
)

// TimelineAPI is what the timeline needs from the backend.
type TimelineAPI interface {
	backend.Timeline
	backend.Likes
	backend.Comments
}

// Timeline is the home feed. Each post gets a Like controller when it is
// first loaded; comment sections are created when first opened.
type Timeline struct {
	ctx    reactive.Ctx
	api    TimelineAPI
	opts   []Option
	logger *slog.Logger
	res    *resource.Resource[[]backend.Post]

	mu       sync.Mutex
	likes    map[string]*Like
	comments map[string]*Comments
}

// NewTimeline creates the timeline. Call Load to fetch posts.
func NewTimeline(ctx reactive.Ctx, api TimelineAPI, opts ...Option) *Timeline {
	o := buildOptions(opts)
	t := &Timeline{
		ctx:      ctx,
		api:      api,
		opts:     opts,
		logger:   o.logger.With("view", "timeline"),
		likes:    make(map[string]*Like),
		comments: make(map[string]*Comments),
	}
	t.res = resource.New(ctx, t.api.LoadTimeline,
		resource.OnSuccess(t.loaded),
		resource.OnError(func(err error) {
			t.logger.Warn("loading timeline failed", "error", err)
		}),
	)
	return t
}

// Load fetches the posts.
func (t *Timeline) Load() *reactive.Future[[]backend.Post] {
	return t.res.Refetch()
}

// Retry is the "Try again" action of the error state.
func (t *Timeline) Retry() *reactive.Future[[]backend.Post] {
	return t.res.Refetch()
}

// State returns the load state.
func (t *Timeline) State() resource.State { return t.res.State() }

// Posts returns the loaded posts with their live like state.
func (t *Timeline) Posts() []backend.Post {
	posts := t.res.DataOr(nil)
	out := make([]backend.Post, len(posts))
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range posts {
		if l, ok := t.likes[p.ID]; ok {
			p.Likes = l.State()
		}
		out[i] = p
	}
	return out
}

// Like returns the like controller of postID, or nil if the post has not
// been loaded.
func (t *Timeline) Like(postID string) *Like {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.likes[postID]
}

// Comments returns the comment section of postID, creating and loading it
// on first use. It returns nil for posts that have not been loaded.
func (t *Timeline) Comments(postID string) *Comments {
	t.mu.Lock()
	if c, ok := t.comments[postID]; ok {
		t.mu.Unlock()
		return c
	}
	if _, known := t.likes[postID]; !known {
		t.mu.Unlock()
		return nil
	}
	c := NewComments(t.ctx, t.api, postID, t.opts...)
	t.comments[postID] = c
	t.mu.Unlock()

	c.Load()
	return c
}

func (t *Timeline) loaded(posts []backend.Post) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range posts {
		state := p.Likes
		state.PostID = p.ID
		if l, ok := t.likes[p.ID]; ok {
			l.Set(state)
			continue
		}
		t.likes[p.ID] = NewLike(t.ctx, t.api, state, t.opts...)
	}
}

// Prepend shows a freshly created post before the next reload.
func (t *Timeline) Prepend(p backend.Post) {
	t.mu.Lock()
	if _, ok := t.likes[p.ID]; !ok {
		state := p.Likes
		state.PostID = p.ID
		t.likes[p.ID] = NewLike(t.ctx, t.api, state, t.opts...)
	}
	t.mu.Unlock()
	t.res.Mutate(func(posts []backend.Post) []backend.Post {
		return append([]backend.Post{p}, posts...)
	})
}

// PostView is a post as rendered on the timeline.
type PostView struct {
	backend.Post
	LikePending  bool `json:"likePending"`
	CommentsOpen bool `json:"commentsOpen"`
}

// TimelineSnapshot is the JSON view of the timeline.
type TimelineSnapshot struct {
	State resource.State `json:"state"`
	Error string         `json:"error,omitempty"`
	Empty bool           `json:"empty"`
	Posts []PostView     `json:"posts"`
}

// Snapshot returns the current view. Empty is set once loaded with no
// posts.
func (t *Timeline) Snapshot() TimelineSnapshot {
	posts := t.Posts()
	views := make([]PostView, 0, len(posts))
	t.mu.Lock()
	for _, p := range posts {
		v := PostView{Post: p}
		if l, ok := t.likes[p.ID]; ok {
			v.LikePending = l.Pending()
		}
		_, v.CommentsOpen = t.comments[p.ID]
		views = append(views, v)
	}
	t.mu.Unlock()

	s := TimelineSnapshot{
		State: t.res.State(),
		Posts: views,
	}
	s.Empty = s.State == resource.Ready && len(views) == 0
	if t.res.Error() != nil {
		s.Error = "Failed to load timeline."
	}
	return s
}

// Dispose tears down every controller the timeline created.
func (t *Timeline) Dispose() {
	t.res.Dispose()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.likes {
		l.Dispose()
	}
	for _, c := range t.comments {
		c.Dispose()
	}
}

