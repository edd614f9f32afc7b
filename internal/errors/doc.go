// Package errors provides structured, coded errors for NOAI.
//
// Every failure that crosses a package boundary is a *NoaiError carrying a
// registered code, a category and, optionally, the wrapped cause:
//
//	err := errors.New(errors.CodeEffectFailed).
//	    WithDetail("like toggle rejected by backend").
//	    Wrap(cause)
//
//	errors.Is(err, cause) // true
//
// # Categories
//
//   - effect: an asynchronous confirmation rejected or was dropped
//   - validation: user input refused before any effect ran
//   - fetch: a read from the backend failed
//   - config: noai.json / environment problems
//   - session: unknown or closed client sessions
//   - backend: failures injected by the mock backend
//
// Format renders an error for terminal output (used by the CLI), FormatJSON
// for API responses.
package errors
