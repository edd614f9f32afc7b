// Package server exposes NOAI sessions over HTTP and WebSocket.
//
// Clients create a session with POST /api/sessions and send its id in the
// X-Noai-Session header on every other request. Mutating endpoints answer
// with the optimistic state right away:
//
//	202 Accepted    the effect is still pending
//	200 OK          the effect already settled (confirmed or rolled back)
//	409 Conflict    dropped because the same entity is still pending
//	422 Unprocessable Entity  invalid input, no effect was started
//
// Adding ?wait=1 to a mutating request waits for the effect to settle
// and returns the final state instead.
//
// GET /ws upgrades to a WebSocket that carries JSON frames pushed by the
// session (notification snapshots and toasts). Browsers cannot set headers
// on the upgrade, so /ws also accepts the id as ?session=<id>.
package server
