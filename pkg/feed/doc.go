// Package feed holds the per-view controllers of the NOAI client: likes,
// follows, comment sections, the timeline, the post composer, discovery
// pages and profiles.
//
// Every controller is bound to one reactive.Ctx (the session loop) and must
// only be driven from it. User actions that confirm with the backend go
// through pkg/optimistic, so the visible state changes before the backend
// is called and is rolled back if the call fails:
//
//	like := feed.NewLike(loop, api, post.Likes)
//	op := like.Toggle()     // count and heart flip immediately
//	err := op.Wait(ctx)     // non-nil if the backend rejected and it rolled back
//
// Loads go through pkg/resource and surface as Pending, Loading, Ready or
// Error on each controller's Snapshot.
package feed
