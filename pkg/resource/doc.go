// Package resource tracks asynchronous loads: the timeline, a post's
// comments, a profile, a discovery page.
//
// A Resource moves through Pending, Loading, Ready and Error. Each Refetch
// gets a fetch id; results from an older fetch are ignored once a newer one
// started. Results are applied on the owning loop.
//
//	timeline := resource.New(loop, api.LoadTimeline)
//	timeline.Refetch()
//
//	switch timeline.State() {
//	case resource.Loading:
//	    // spinner
//	case resource.Error:
//	    // "Try again" calls timeline.Refetch()
//	case resource.Ready:
//	    posts := timeline.Data()
//	}
//
// A failed fetch keeps the last good data; Data returns it and DataOr
// returns the fallback only when no fetch has ever succeeded.
package resource
