package errors

// Registered error codes.
const (
	CodeEffectFailed   = "E001"
	CodeEffectDropped  = "E002"
	CodeDisposed       = "E003"
	CodeEmptyContent   = "E010"
	CodeContentTooLong = "E011"
	CodeNotAuthor      = "E012"
	CodeInvalidInput   = "E013"
	CodeFetchFailed    = "E020"
	CodeConfigNotFound = "E030"
	CodeConfigParse    = "E031"
	CodeConfigInvalid  = "E032"
	CodeSessionUnknown = "E040"
	CodeSessionLimit   = "E041"
	CodeSessionClosed  = "E042"
	CodeSimulated      = "E050"
	CodeNotFound       = "E051"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Effect Errors (E001-E009)
	// ============================================

	CodeEffectFailed: {
		Category: CategoryEffect,
		Message:  "Effect failed",
		Detail:   "The confirming effect rejected; the optimistic change was rolled back.",
	},
	CodeEffectDropped: {
		Category: CategoryEffect,
		Message:  "Effect already pending",
		Detail:   "Another effect for the same entity is still in flight, so this trigger was ignored.",
	},
	CodeDisposed: {
		Category: CategoryEffect,
		Message:  "Controller disposed",
		Detail:   "The owning view was disposed before the effect settled; its result was discarded.",
	},

	// ============================================
	// Validation Errors (E010-E019)
	// ============================================

	CodeEmptyContent: {
		Category: CategoryValidation,
		Message:  "Content is empty",
		Detail:   "Content must contain at least one non-whitespace character.",
	},
	CodeContentTooLong: {
		Category: CategoryValidation,
		Message:  "Content too long",
		Detail:   "Content exceeds the maximum allowed length.",
	},
	CodeNotAuthor: {
		Category: CategoryValidation,
		Message:  "Not the author",
		Detail:   "Only the author of a comment can delete it.",
	},
	CodeInvalidInput: {
		Category: CategoryValidation,
		Message:  "Invalid input",
	},

	// ============================================
	// Fetch Errors (E020-E029)
	// ============================================

	CodeFetchFailed: {
		Category: CategoryFetch,
		Message:  "Fetch failed",
		Detail:   "Loading data from the backend failed; the previous data was kept.",
	},

	// ============================================
	// Config Errors (E030-E039)
	// ============================================

	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No noai.json was found in the given directory.",
	},
	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Config file is not valid JSON",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},

	// ============================================
	// Session Errors (E040-E049)
	// ============================================

	CodeSessionUnknown: {
		Category: CategorySession,
		Message:  "Session not found",
		Detail:   "The session ID is invalid or the session has expired.",
	},
	CodeSessionLimit: {
		Category: CategorySession,
		Message:  "Too many sessions",
		Detail:   "The server reached its session limit.",
	},
	CodeSessionClosed: {
		Category: CategorySession,
		Message:  "Session closed",
	},

	// ============================================
	// Backend Errors (E050-E059)
	// ============================================

	CodeSimulated: {
		Category: CategoryBackend,
		Message:  "Simulated backend failure",
		Detail:   "The mock backend was configured to reject this call.",
	},
	CodeNotFound: {
		Category: CategoryBackend,
		Message:  "Not found",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
