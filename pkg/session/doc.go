// Package session holds the per-client state of the NOAI server.
//
// A Session owns one reactive.Loop and every controller the client has
// open: the timeline, the composer, the notification store and any
// discovery or profile pages visited. All controller calls go through
// Session.Do so they run on the loop:
//
//	err := sess.Do(func() {
//	    op = sess.Timeline.Like(postID).Toggle()
//	})
//
// Sessions push frames (notification snapshots, toasts) to subscribers;
// the server forwards them over a WebSocket.
//
// # Manager
//
// The Manager creates, looks up and closes sessions, enforces the session
// limit and closes sessions that have been idle too long:
//
//	mgr := session.NewManager(api, session.ManagerConfig{
//	    MaxSessions: 1000,
//	    IdleTimeout: 30 * time.Minute,
//	}, logger)
//	defer mgr.Shutdown(ctx)
package session
