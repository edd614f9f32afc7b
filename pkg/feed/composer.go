package feed

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/reactive"
)

// PostFailedMessage is shown when creating a post fails.
const PostFailedMessage = "Failed to post. Please try again."

// Composer is the "What's on your mind?" dialog. Posting is not
// optimistic: the content stays until the backend accepts it.
type Composer struct {
	ctx      reactive.Ctx
	api      backend.Timeline
	logger   *slog.Logger
	onPosted func(backend.Post)

	content *reactive.Signal[string]
	errMsg  *reactive.Signal[string]

	mu      sync.Mutex
	posting bool
}

// NewComposer creates a composer. onPosted runs on the loop after a post
// is created; the session uses it to refresh the timeline.
func NewComposer(ctx reactive.Ctx, api backend.Timeline, onPosted func(backend.Post), opts ...Option) *Composer {
	o := buildOptions(opts)
	return &Composer{
		ctx:      ctx,
		api:      api,
		logger:   o.logger.With("view", "composer"),
		onPosted: onPosted,
		content:  reactive.NewSignal(""),
		errMsg:   reactive.NewSignal(""),
	}
}

// Content returns the text being composed.
func (c *Composer) Content() string { return c.content.Get() }

// SetContent replaces the text. Ignored while posting.
func (c *Composer) SetContent(s string) {
	if c.Posting() {
		return
	}
	c.content.Set(s)
}

// CharCount counts the characters typed, untrimmed.
func (c *Composer) CharCount() int { return utf8.RuneCountInString(c.content.Get()) }

// NearLimit reports whether the count is past the soft limit.
func (c *Composer) NearLimit() bool { return c.CharCount() > SoftLimit }

// OverLimit reports whether the count is past MaxChars.
func (c *Composer) OverLimit() bool { return c.CharCount() > MaxChars }

// Posting reports whether a post is being created.
func (c *Composer) Posting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.posting
}

// Error returns the message of the last failed post, or "".
func (c *Composer) Error() string { return c.errMsg.Get() }

// Reset clears the dialog. Ignored while posting.
func (c *Composer) Reset() {
	if c.Posting() {
		return
	}
	c.content.Set("")
	c.errMsg.Set("")
}

// Post sets the content and submits it. Validation errors are returned
// directly; the backend outcome is on the future.
func (c *Composer) Post(content string) (*reactive.Future[backend.Post], error) {
	c.SetContent(content)
	return c.Submit()
}

// Submit posts the current content, trimmed. On failure the content is
// kept and Error returns PostFailedMessage.
func (c *Composer) Submit() (*reactive.Future[backend.Post], error) {
	c.mu.Lock()
	if c.posting {
		c.mu.Unlock()
		return nil, noaierrors.New(noaierrors.CodeEffectDropped).Wrap(ErrBusy)
	}
	content, err := normalizeContent(c.content.Get())
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.posting = true
	c.mu.Unlock()
	c.errMsg.Set("")

	future, resolve := reactive.NewFuture[backend.Post]()
	go func() {
		post, err := c.api.CreatePost(c.ctx.StdContext(), content)

		done := make(chan struct{})
		c.ctx.Dispatch(func() {
			defer close(done)
			c.finish(post, err)
			resolve(post, err)
		})
		select {
		case <-done:
		case <-c.ctx.StdContext().Done():
			resolve(backend.Post{}, context.Canceled)
		}
	}()
	return future, nil
}

// finish runs on the loop.
func (c *Composer) finish(post backend.Post, err error) {
	c.mu.Lock()
	c.posting = false
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("creating post failed", "error", err)
		c.errMsg.Set(PostFailedMessage)
		return
	}
	c.content.Set("")
	if c.onPosted != nil {
		c.onPosted(post)
	}
}

// ComposerSnapshot is the JSON view of the composer.
type ComposerSnapshot struct {
	Content   string `json:"content"`
	CharCount int    `json:"charCount"`
	NearLimit bool   `json:"nearLimit"`
	OverLimit bool   `json:"overLimit"`
	Posting   bool   `json:"posting"`
	Error     string `json:"error,omitempty"`
}

// Snapshot returns the current view.
func (c *Composer) Snapshot() ComposerSnapshot {
	return ComposerSnapshot{
		Content:   c.Content(),
		CharCount: c.CharCount(),
		NearLimit: c.NearLimit(),
		OverLimit: c.OverLimit(),
		Posting:   c.Posting(),
		Error:     c.Error(),
	}
}
