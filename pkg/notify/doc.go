// Package notify is the notification store behind the bell in the header.
//
// The store owns the notification list of one session. The list is only
// ever replaced wholesale by Fetch or changed by the two read operations,
// and the unread count is always derived from it:
//
//	store := notify.New(loop, api, notify.Config{})
//	store.Start()           // background "new notification" poll
//	defer store.Dispose()
//
//	store.Open()            // panel opened: fetch and clear the flag
//	store.MarkAsRead("n1")  // optimistic, reverts that record on failure
//	store.MarkAllAsRead()   // optimistic, restores the snapshot on failure
//
// All methods except the read-only accessors must be called on the
// session loop.
package notify
