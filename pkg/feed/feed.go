package feed

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
)

// Action labels used for metrics, spans and failure toasts.
const (
	ActionLike          = "like"
	ActionFollow        = "follow"
	ActionComment       = "comment"
	ActionCommentDelete = "comment_delete"
)

var (
	// ErrEmptyContent rejects drafts that are empty after trimming.
	ErrEmptyContent = errors.New("feed: content is empty")

	// ErrNotAuthor rejects deleting someone else's comment.
	ErrNotAuthor = errors.New("feed: not the author")

	// ErrBusy rejects a submit while the previous one is still running.
	ErrBusy = errors.New("feed: submit already in progress")

	// ErrOwnProfile rejects following yourself.
	ErrOwnProfile = errors.New("feed: cannot follow your own profile")
)

type options struct {
	policy        optimistic.Policy
	reporter      optimistic.Reporter
	logger        *slog.Logger
	follows       *Follows
	currentUserID string
}

// Option configures a feed controller.
type Option func(*options)

// WithPolicy sets the concurrency policy for like and follow toggles.
// Comment submission always drops while pending.
func WithPolicy(p optimistic.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithReporter sets where rolled-back effects are reported.
func WithReporter(r optimistic.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFollows makes pages take their follow buttons from r, so a user
// shown on several pages has one button state. r owns those controllers.
func WithFollows(r *Follows) Option {
	return func(o *options) {
		o.follows = r
	}
}

// WithCurrentUser sets the signed-in user id used for authorship checks.
func WithCurrentUser(id string) Option {
	return func(o *options) {
		o.currentUserID = id
	}
}

func buildOptions(opts []Option) options {
	o := options{
		policy:        optimistic.DropWhilePending,
		currentUserID: backend.CurrentUserID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.reporter == nil {
		o.reporter = optimistic.LogReporter(o.logger)
	}
	return o
}

// follow returns the button for initial.UserID. It is shared when the page
// was given a Follows, otherwise it belongs to the caller.
func (o options) follow(ctx reactive.Ctx, api backend.Follows, initial backend.FollowState, opts []Option) (f *Follow, shared bool) {
	if o.follows != nil {
		return o.follows.Get(initial), true
	}
	return NewFollow(ctx, api, initial, opts...), false
}

func (o options) controller(action string, policy optimistic.Policy) []optimistic.Option {
	return []optimistic.Option{
		optimistic.WithAction(action),
		optimistic.WithPolicy(policy),
		optimistic.WithReporter(o.reporter),
	}
}

// MaxChars is the longest post or comment accepted.
const MaxChars = 500

// SoftLimit is where the composer starts warning about length.
const SoftLimit = 280

var validate = validator.New()

type draft struct {
	Content string `validate:"required,max=500"`
}

// normalizeContent trims content and checks it is postable.
func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", noaierrors.New(noaierrors.CodeEmptyContent).Wrap(ErrEmptyContent)
	}
	if err := validate.Struct(draft{Content: content}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return "", noaierrors.New(noaierrors.CodeContentTooLong).
				WithDetailf("Content is limited to %d characters.", MaxChars)
		}
		return "", noaierrors.New(noaierrors.CodeInvalidInput).Wrap(err)
	}
	return content, nil
}
