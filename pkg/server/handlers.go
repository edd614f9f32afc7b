package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/feed"
	"github.com/noai-dev/noai/pkg/notify"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/resource"
	"github.com/noai-dev/noai/pkg/session"
)

type contentRequest struct {
	Content string `json:"content"`
}

// respond renders view on the session loop and writes it.
func respond(w http.ResponseWriter, sess *session.Session, status int, view func() any) {
	var v any
	if err := sess.Do(func() { v = view() }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, v)
}

// await waits for f. Fetch failures are part of the rendered state, so only
// a cancelled request is an error.
func await[T any](r *http.Request, f *reactive.Future[T]) error {
	if f == nil {
		return nil
	}
	select {
	case <-f.Done():
		return nil
	case <-r.Context().Done():
		return r.Context().Err()
	}
}

func notFound(kind, id string) error {
	return noaierrors.New(noaierrors.CodeNotFound).
		WithDetailf("%s %s", kind, id).
		Wrap(backend.ErrNotFound)
}

func forceRefresh(r *http.Request) bool {
	switch r.URL.Query().Get("refresh") {
	case "1", "true":
		return true
	}
	return false
}

// =============================================================================
// Sessions
// =============================================================================

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set(SessionHeader, sess.ID)
	respond(w, sess, http.StatusCreated, func() any { return sess.State() })
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Close(sessionFrom(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	respond(w, sess, http.StatusOK, func() any { return sess.State() })
}

// =============================================================================
// Timeline and composer
// =============================================================================

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var f *reactive.Future[[]backend.Post]
	err := sess.Do(func() {
		st := sess.Timeline.State()
		if forceRefresh(r) || st == resource.Pending || st == resource.Loading {
			f = sess.Timeline.Load()
		}
	})
	if err == nil {
		err = await(r, f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusOK, func() any { return sess.Timeline.Snapshot() })
}

func (s *Server) handleTimelineRetry(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var f *reactive.Future[[]backend.Post]
	err := sess.Do(func() { f = sess.Timeline.Retry() })
	if err == nil {
		err = await(r, f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusOK, func() any { return sess.Timeline.Snapshot() })
}

func (s *Server) handleComposer(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	respond(w, sess, http.StatusOK, func() any { return sess.Composer.Snapshot() })
}

func (s *Server) handleComposerDraft(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess := sessionFrom(r)
	respond(w, sess, http.StatusOK, func() any {
		sess.Composer.SetContent(req.Content)
		return sess.Composer.Snapshot()
	})
}

type postResponse struct {
	Post     backend.Post          `json:"post"`
	Composer feed.ComposerSnapshot `json:"composer"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess := sessionFrom(r)

	var f *reactive.Future[backend.Post]
	var postErr error
	if err := sess.Do(func() { f, postErr = sess.Composer.Post(req.Content) }); err != nil {
		writeError(w, err)
		return
	}
	if postErr != nil {
		writeError(w, postErr)
		return
	}

	post, err := f.Wait(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusCreated, func() any {
		return postResponse{Post: post, Composer: sess.Composer.Snapshot()}
	})
}

// =============================================================================
// Likes and comments
// =============================================================================

type likeResponse struct {
	backend.LikeState
	Pending bool      `json:"pending"`
	Op      *opResult `json:"op,omitempty"`
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	postID := chi.URLParam(r, "postID")

	var like *feed.Like
	var op *optimistic.Op
	if err := sess.Do(func() {
		if like = sess.Timeline.Like(postID); like != nil {
			op = like.Toggle()
		}
	}); err != nil {
		writeError(w, err)
		return
	}
	if like == nil {
		writeError(w, notFound("post", postID))
		return
	}

	status, err := settle(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, status, func() any {
		return likeResponse{LikeState: like.State(), Pending: like.Pending(), Op: resultOf(op)}
	})
}

// comments returns the comment section of postID, or nil for a post that
// is not on the timeline.
func comments(sess *session.Session, postID string) (*feed.Comments, error) {
	var c *feed.Comments
	if err := sess.Do(func() { c = sess.Timeline.Comments(postID) }); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("post", postID)
	}
	return c, nil
}

type commentsResponse struct {
	feed.CommentsSnapshot
	Op *opResult `json:"op,omitempty"`
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	c, err := comments(sess, chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var f *reactive.Future[[]backend.Comment]
	err = sess.Do(func() { f = c.Load() })
	if err == nil {
		err = await(r, f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusOK, func() any { return c.Snapshot() })
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess := sessionFrom(r)
	c, err := comments(sess, chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.runCommentOp(w, r, sess, c, func() (*optimistic.Op, error) {
		c.SetDraft(req.Content)
		return c.Submit()
	})
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	c, err := comments(sess, chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, err)
		return
	}
	commentID := chi.URLParam(r, "commentID")
	s.runCommentOp(w, r, sess, c, func() (*optimistic.Op, error) {
		return c.Delete(commentID)
	})
}

func (s *Server) runCommentOp(w http.ResponseWriter, r *http.Request, sess *session.Session, c *feed.Comments, run func() (*optimistic.Op, error)) {
	var op *optimistic.Op
	var opErr error
	if err := sess.Do(func() { op, opErr = run() }); err != nil {
		writeError(w, err)
		return
	}
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	status, err := settle(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, status, func() any {
		return commentsResponse{CommentsSnapshot: c.Snapshot(), Op: resultOf(op)}
	})
}

// =============================================================================
// People
// =============================================================================

type followResponse struct {
	backend.FollowState
	Pending bool      `json:"pending"`
	Op      *opResult `json:"op,omitempty"`
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	userID := chi.URLParam(r, "userID")

	var op *optimistic.Op
	var opErr error
	if err := sess.Do(func() { op, opErr = sess.ToggleFollow(userID) }); err != nil {
		writeError(w, err)
		return
	}
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	status, err := settle(r, op)
	if err != nil {
		writeError(w, err)
		return
	}

	var resp followResponse
	var viewErr error
	if err := sess.Do(func() {
		resp.FollowState, resp.Pending, viewErr = sess.Following(userID)
	}); err != nil {
		writeError(w, err)
		return
	}
	if viewErr != nil {
		writeError(w, viewErr)
		return
	}
	resp.Op = resultOf(op)
	writeJSON(w, status, resp)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	kind, err := backend.ParseDiscoveryKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, noaierrors.New(noaierrors.CodeInvalidInput).
			WithSuggestion("Use nearby, trending or live").
			Wrap(err))
		return
	}
	sess := sessionFrom(r)

	var d *feed.Discovery
	var f *reactive.Future[[]backend.DiscoveryEntry]
	err = sess.Do(func() { d, f = sess.Discovery(kind) })
	if err == nil {
		err = await(r, f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusOK, func() any { return d.Snapshot() })
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	userID := chi.URLParam(r, "userID")

	var p *feed.Profile
	var f *reactive.Future[backend.Profile]
	err := sess.Do(func() { p, f = sess.Profile(userID) })
	if err == nil {
		err = await(r, f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusOK, func() any { return p.Snapshot() })
}

// =============================================================================
// Notifications
// =============================================================================

type notificationsResponse struct {
	Notifications notify.Snapshot `json:"notifications"`
	Op            *opResult       `json:"op,omitempty"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var f *reactive.Future[[]backend.Notification]
	err := sess.Do(func() {
		if forceRefresh(r) {
			f = sess.Notifications.Fetch()
		}
	})
	if err == nil {
		err = await(r, f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusOK, func() any { return sess.Notifications.Snapshot() })
}

func (s *Server) handleNotificationsOpen(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var f *reactive.Future[[]backend.Notification]
	err := sess.Do(func() { f = sess.Notifications.Open() })
	if err == nil {
		err = await(r, f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, http.StatusOK, func() any { return sess.Notifications.Snapshot() })
}

func (s *Server) handleNotificationsSeen(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	respond(w, sess, http.StatusOK, func() any {
		sess.Notifications.ClearNewFlag()
		return sess.Notifications.Snapshot()
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.runNotificationOp(w, r, func(sess *session.Session) *optimistic.Op {
		return sess.Notifications.MarkAsRead(id)
	})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.runNotificationOp(w, r, func(sess *session.Session) *optimistic.Op {
		return sess.Notifications.MarkAllAsRead()
	})
}

func (s *Server) runNotificationOp(w http.ResponseWriter, r *http.Request, run func(*session.Session) *optimistic.Op) {
	sess := sessionFrom(r)
	var op *optimistic.Op
	if err := sess.Do(func() { op = run(sess) }); err != nil {
		writeError(w, err)
		return
	}
	status, err := settle(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, sess, status, func() any {
		return notificationsResponse{Notifications: sess.Notifications.Snapshot(), Op: resultOf(op)}
	})
}
