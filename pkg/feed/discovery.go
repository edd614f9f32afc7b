package feed

import (
	"context"
	"sync"

	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/reactive"
	"github.com/noai-dev/noai/pkg/resource"
)

// DiscoveryAPI is what discovery pages need from the backend.
type DiscoveryAPI interface {
	backend.Discovery
	backend.Follows
}

// Discovery is one of the nearby, trending or live pages.
type Discovery struct {
	ctx  reactive.Ctx
	api  DiscoveryAPI
	kind backend.DiscoveryKind
	opts []Option
	o    options
	res  *resource.Resource[[]backend.DiscoveryEntry]

	mu      sync.Mutex
	follows map[string]*Follow
}

// NewDiscovery creates a discovery page of kind.
func NewDiscovery(ctx reactive.Ctx, api DiscoveryAPI, kind backend.DiscoveryKind, opts ...Option) *Discovery {
	d := &Discovery{
		ctx:     ctx,
		api:     api,
		kind:    kind,
		opts:    opts,
		o:       buildOptions(opts),
		follows: make(map[string]*Follow),
	}
	d.res = resource.New(ctx, d.fetch, resource.OnSuccess(d.loaded))
	return d
}

// Kind returns the page kind.
func (d *Discovery) Kind() backend.DiscoveryKind { return d.kind }

// Load fetches the page.
func (d *Discovery) Load() *reactive.Future[[]backend.DiscoveryEntry] {
	return d.res.Refetch()
}

// Follow returns the follow controller of userID, or nil if the user is
// not on the page.
func (d *Discovery) Follow(userID string) *Follow {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.follows[userID]
}

func (d *Discovery) fetch(ctx context.Context) ([]backend.DiscoveryEntry, error) {
	return d.api.Discover(ctx, d.kind)
}

func (d *Discovery) loaded(entries []backend.DiscoveryEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		if f, ok := d.follows[e.User.ID]; ok {
			f.Set(e.IsFollowing)
			continue
		}
		f, shared := d.o.follow(d.ctx, d.api,
			backend.FollowState{UserID: e.User.ID, IsFollowing: e.IsFollowing}, d.opts)
		if shared {
			// Another page may have created it with older state.
			f.Set(e.IsFollowing)
		}
		d.follows[e.User.ID] = f
	}
}

// DiscoverySnapshot is the JSON view of a discovery page.
type DiscoverySnapshot struct {
	Kind    backend.DiscoveryKind    `json:"kind"`
	State   resource.State           `json:"state"`
	Error   string                   `json:"error,omitempty"`
	Entries []backend.DiscoveryEntry `json:"entries"`
}

// Snapshot returns the page with each entry's live follow state.
func (d *Discovery) Snapshot() DiscoverySnapshot {
	entries := d.res.DataOr(nil)
	out := make([]backend.DiscoveryEntry, len(entries))
	d.mu.Lock()
	for i, e := range entries {
		if f, ok := d.follows[e.User.ID]; ok {
			e.IsFollowing = f.IsFollowing()
		}
		out[i] = e
	}
	d.mu.Unlock()

	s := DiscoverySnapshot{Kind: d.kind, State: d.res.State(), Entries: out}
	if d.res.Error() != nil {
		s.Error = "Failed to load people."
	}
	return s
}

// Dispose cancels the load and every pending follow the page owns.
func (d *Discovery) Dispose() {
	d.res.Dispose()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.o.follows != nil {
		return
	}
	for _, f := range d.follows {
		f.Dispose()
	}
}
