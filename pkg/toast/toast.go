package toast

// EventName is the event name used for toast notifications.
const EventName = "noai:toast"

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Emitter delivers a named event to one client.
type Emitter interface {
	Emit(name string, data any)
}

// Show sends a toast notification with the specified type.
func Show(e Emitter, level Type, message string) {
	e.Emit(EventName, map[string]any{
		"level":   string(level),
		"message": message,
	})
}

// Success sends a success toast notification.
func Success(e Emitter, message string) {
	Show(e, TypeSuccess, message)
}

// Error sends an error toast notification.
func Error(e Emitter, message string) {
	Show(e, TypeError, message)
}

// Warning sends a warning toast notification.
func Warning(e Emitter, message string) {
	Show(e, TypeWarning, message)
}

// Info sends an info toast notification.
func Info(e Emitter, message string) {
	Show(e, TypeInfo, message)
}

// WithTitle sends a toast with both a title and message.
func WithTitle(e Emitter, level Type, title, message string) {
	e.Emit(EventName, map[string]any{
		"level":   string(level),
		"title":   title,
		"message": message,
	})
}

// DefaultMessages are the error toasts shown per optimistic action.
var DefaultMessages = map[string]string{
	"like":           "Couldn't update like. Please try again.",
	"follow":         "Couldn't update follow. Please try again.",
	"comment":        "Failed to add comment. Please try again.",
	"comment_delete": "Failed to delete comment. Please try again.",
	"mark_read":      "Couldn't mark notification as read.",
	"mark_all_read":  "Couldn't mark notifications as read.",
}

// FailureReporter reports failed optimistic effects as error toasts.
// It satisfies optimistic.Reporter.
type FailureReporter struct {
	Emitter Emitter

	// Messages maps an action to its toast text. Nil uses DefaultMessages.
	Messages map[string]string
}

// Report emits an error toast for action. Actions without a message
// get a generic one.
func (r FailureReporter) Report(action, key string, err error) {
	if r.Emitter == nil {
		return
	}
	messages := r.Messages
	if messages == nil {
		messages = DefaultMessages
	}
	msg, ok := messages[action]
	if !ok {
		msg = "Something went wrong. Please try again."
	}
	r.Emitter.Emit(EventName, map[string]any{
		"level":   string(TypeError),
		"message": msg,
		"action":  action,
		"key":     key,
	})
}
