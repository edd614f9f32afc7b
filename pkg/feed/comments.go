package feed

import (
	"context"
	"log/slog"
	"slices"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/resource"
)

// Comments is the comment section under one post.
//
// The draft lives in its own optimistic controller: submitting clears it
// immediately, and a rejected submit puts the typed text back. That
// controller always drops while pending, which is the submitting guard.
type Comments struct {
	postID        string
	currentUserID string
	api           backend.Comments
	logger        *slog.Logger

	draft *optimistic.Controller[string]
	list  *optimistic.Controller[[]backend.Comment]
	res   *resource.Resource[[]backend.Comment]
}

// NewComments creates the comment section of postID. Nothing is loaded
// until Load.
func NewComments(ctx reactive.Ctx, api backend.Comments, postID string, opts ...Option) *Comments {
	o := buildOptions(opts)
	c := &Comments{
		postID:        postID,
		currentUserID: o.currentUserID,
		api:           api,
		logger:        o.logger.With("post_id", postID),
		draft:         optimistic.New(ctx, "", o.controller(ActionComment, optimistic.DropWhilePending)...),
		list:          optimistic.New(ctx, []backend.Comment{}, o.controller(ActionCommentDelete, optimistic.DropWhilePending)...),
	}
	c.res = resource.New(ctx, c.fetch,
		resource.OnSuccess(c.loaded),
		resource.OnError(func(err error) {
			c.logger.Warn("loading comments failed", "error", err)
		}),
	)
	return c
}

// PostID returns the post the section belongs to.
func (c *Comments) PostID() string { return c.postID }

// Draft returns the text in the input.
func (c *Comments) Draft() string { return c.draft.Value() }

// SetDraft replaces the text in the input. Ignored while submitting, the
// input is disabled then.
func (c *Comments) SetDraft(s string) {
	if c.Submitting() {
		return
	}
	c.draft.Set(s)
}

// Submitting reports whether a comment is waiting for the backend.
func (c *Comments) Submitting() bool { return c.draft.IsPending(c.postID) }

// List returns the visible comments, oldest first.
func (c *Comments) List() []backend.Comment {
	return slices.Clone(c.list.Value())
}

// Load fetches the comments. A failure leaves the section in the Error
// state with the previous list.
func (c *Comments) Load() *reactive.Future[[]backend.Comment] {
	return c.res.Refetch()
}

// State returns the load state.
func (c *Comments) State() resource.State { return c.res.State() }

// Submit posts the draft. Whitespace-only drafts are rejected before any
// state change and nothing is sent. While a submit is running the draft is
// already cleared, so a second Submit fails with ErrBusy rather than as
// empty. On success the list is reloaded.
func (c *Comments) Submit() (*optimistic.Op, error) {
	if c.Submitting() {
		return nil, noaierrors.New(noaierrors.CodeEffectDropped).Wrap(ErrBusy)
	}
	content, err := normalizeContent(c.draft.Value())
	if err != nil {
		return nil, err
	}

	op := c.draft.Run(optimistic.Transition[string]{
		Key:   c.postID,
		Apply: func(string) string { return "" },
		Effect: func(ctx context.Context) error {
			return c.api.AddComment(ctx, c.postID, content)
		},
		Revert: func(_, _ string) string { return content },
		OnSettled: func(err error) {
			if err == nil {
				c.res.Refetch()
			}
		},
	})
	return op, nil
}

// Delete removes one of the current user's comments. The comment
// disappears immediately and comes back at its old position if the
// backend rejects.
func (c *Comments) Delete(commentID string) (*optimistic.Op, error) {
	list := c.list.Value()
	i := slices.IndexFunc(list, func(cm backend.Comment) bool { return cm.ID == commentID })
	if i < 0 {
		return nil, noaierrors.New(noaierrors.CodeNotFound).
			WithDetailf("comment %s is not in this section", commentID).
			Wrap(backend.ErrNotFound)
	}
	removed := list[i]
	if removed.AuthorID != c.currentUserID {
		return nil, noaierrors.New(noaierrors.CodeNotAuthor).Wrap(ErrNotAuthor)
	}

	op := c.list.Run(optimistic.Transition[[]backend.Comment]{
		Key: commentID,
		Apply: func(cur []backend.Comment) []backend.Comment {
			return slices.DeleteFunc(slices.Clone(cur), func(cm backend.Comment) bool {
				return cm.ID == commentID
			})
		},
		Effect: func(ctx context.Context) error {
			return c.api.DeleteComment(ctx, commentID)
		},
		Revert: func(cur, _ []backend.Comment) []backend.Comment {
			return restoreComment(cur, removed, i)
		},
	})
	return op, nil
}

// restoreComment puts cm back at index i unless it is already present.
func restoreComment(list []backend.Comment, cm backend.Comment, i int) []backend.Comment {
	if slices.ContainsFunc(list, func(x backend.Comment) bool { return x.ID == cm.ID }) {
		return list
	}
	i = min(i, len(list))
	return slices.Insert(slices.Clone(list), i, cm)
}

// CanDelete reports whether the current user wrote the comment.
func (c *Comments) CanDelete(cm backend.Comment) bool {
	return cm.AuthorID == c.currentUserID
}

func (c *Comments) fetch(ctx context.Context) ([]backend.Comment, error) {
	return c.api.LoadComments(ctx, c.postID)
}

func (c *Comments) loaded(list []backend.Comment) {
	if list == nil {
		list = []backend.Comment{}
	}
	c.list.Set(list)
}

// CommentView is a comment plus whether the viewer may delete it.
type CommentView struct {
	backend.Comment
	CanDelete bool `json:"canDelete"`
}

// CommentsSnapshot is the JSON view of a comment section.
type CommentsSnapshot struct {
	PostID     string         `json:"postId"`
	State      resource.State `json:"state"`
	Error      string         `json:"error,omitempty"`
	Comments   []CommentView  `json:"comments"`
	Draft      string         `json:"draft"`
	Submitting bool           `json:"submitting"`
}

// Snapshot returns the current view.
func (c *Comments) Snapshot() CommentsSnapshot {
	list := c.list.Value()
	views := make([]CommentView, 0, len(list))
	for _, cm := range list {
		views = append(views, CommentView{Comment: cm, CanDelete: c.CanDelete(cm)})
	}
	s := CommentsSnapshot{
		PostID:     c.postID,
		State:      c.res.State(),
		Comments:   views,
		Draft:      c.draft.Value(),
		Submitting: c.Submitting(),
	}
	if err := c.res.Error(); err != nil {
		s.Error = "Failed to load comments."
	}
	return s
}

// Dispose cancels pending submits, deletes and loads.
func (c *Comments) Dispose() {
	c.draft.Dispose()
	c.list.Dispose()
	c.res.Dispose()
}
