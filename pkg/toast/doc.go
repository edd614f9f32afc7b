// Package toast sends transient feedback messages to a connected client.
//
// Toasts are ordinary events on the session's push channel: the server
// emits a "noai:toast" event and the thin client decides how to show it.
//
//	toast.Error(sess, "Couldn't update like. Please try again.")
//
// The client side listens for the event:
//
//	socket.addEventListener("message", (e) => {
//	    const frame = JSON.parse(e.data);
//	    if (frame.type === "noai:toast") {
//	        showToast(frame.data.level, frame.data.message);
//	    }
//	});
//
// FailureReporter turns rolled-back optimistic effects into error toasts.
package toast
