package feed

import (
	"context"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/resource"
)

// ProfileAPI is what a profile page needs from the backend.
type ProfileAPI interface {
	backend.Profiles
	backend.Follows
}

// Profile is a user page. The follower count shown follows the follow
// button, so a rolled-back follow also rolls the count back.
type Profile struct {
	userID string
	own    bool
	api    ProfileAPI
	res    *resource.Resource[backend.Profile]
	follow *Follow
	shared bool
}

// NewProfile creates the page of userID. Viewing your own page has no
// follow button.
func NewProfile(ctx reactive.Ctx, api ProfileAPI, userID string, opts ...Option) *Profile {
	o := buildOptions(opts)
	p := &Profile{
		userID: userID,
		own:    userID == o.currentUserID,
		api:    api,
	}
	if !p.own {
		p.follow, p.shared = o.follow(ctx, api, backend.FollowState{UserID: userID}, opts)
	}
	p.res = resource.New(ctx, p.fetch, resource.OnSuccess(p.loaded))
	return p
}

// UserID returns the profile owner.
func (p *Profile) UserID() string { return p.userID }

// IsOwn reports whether the page belongs to the current user.
func (p *Profile) IsOwn() bool { return p.own }

// Load fetches the profile.
func (p *Profile) Load() *reactive.Future[backend.Profile] {
	return p.res.Refetch()
}

// ToggleFollow follows or unfollows the owner.
func (p *Profile) ToggleFollow() (*optimistic.Op, error) {
	if p.own {
		return nil, noaierrors.New(noaierrors.CodeInvalidInput).
			WithDetail("You cannot follow yourself.").
			Wrap(ErrOwnProfile)
	}
	return p.follow.Toggle(), nil
}

func (p *Profile) fetch(ctx context.Context) (backend.Profile, error) {
	return p.api.LoadProfile(ctx, p.userID)
}

func (p *Profile) loaded(profile backend.Profile) {
	if p.follow != nil {
		p.follow.Set(profile.IsFollowing)
	}
}

// ProfileSnapshot is the JSON view of a profile page.
type ProfileSnapshot struct {
	State         resource.State   `json:"state"`
	Error         string           `json:"error,omitempty"`
	Profile       *backend.Profile `json:"profile,omitempty"`
	IsOwn         bool             `json:"isOwn"`
	FollowPending bool             `json:"followPending"`
}

// Snapshot returns the page. Followers are adjusted by one when the
// visible follow state differs from the loaded one.
func (p *Profile) Snapshot() ProfileSnapshot {
	s := ProfileSnapshot{State: p.res.State(), IsOwn: p.own}
	if p.res.Error() != nil {
		s.Error = "Failed to load profile."
	}

	var empty backend.Profile
	loaded := p.res.DataOr(empty)
	if loaded.User.ID == "" {
		return s
	}
	view := loaded
	if p.follow != nil {
		following := p.follow.IsFollowing()
		switch {
		case following && !loaded.IsFollowing:
			view.Stats.Followers++
		case !following && loaded.IsFollowing:
			view.Stats.Followers--
		}
		view.IsFollowing = following
		s.FollowPending = p.follow.Pending()
	}
	s.Profile = &view
	return s
}

// Dispose cancels the load and a pending follow the page owns.
func (p *Profile) Dispose() {
	p.res.Dispose()
	if p.follow != nil && !p.shared {
		p.follow.Dispose()
	}
}
