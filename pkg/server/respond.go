package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/session"
)

type sessionKey struct{}

// withSession resolves the session named by SessionHeader.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(r.Header.Get(SessionHeader))
		if err != nil {
			writeError(w, err)
			return
		}
		sess.Touch()
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch noaierrors.CodeOf(err) {
	case noaierrors.CodeEmptyContent, noaierrors.CodeContentTooLong, noaierrors.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case noaierrors.CodeNotAuthor:
		return http.StatusForbidden
	case noaierrors.CodeEffectDropped:
		return http.StatusConflict
	case noaierrors.CodeSessionUnknown, noaierrors.CodeNotFound:
		return http.StatusNotFound
	case noaierrors.CodeSessionClosed, noaierrors.CodeDisposed:
		return http.StatusGone
	case noaierrors.CodeSessionLimit:
		return http.StatusServiceUnavailable
	case noaierrors.CodeEffectFailed, noaierrors.CodeFetchFailed, noaierrors.CodeSimulated:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	var ne *noaierrors.NoaiError
	if !errors.As(err, &ne) {
		ne = noaierrors.FromError(err, "")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_, _ = w.Write([]byte(ne.FormatJSON()))
}

// decode reads a JSON body into v. Failures are input errors.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return noaierrors.New(noaierrors.CodeInvalidInput).
			WithDetail("Request body must be JSON.").
			Wrap(err)
	}
	return nil
}

// wantsWait reports whether the client asked to wait for settlement.
func wantsWait(r *http.Request) bool {
	switch r.URL.Query().Get("wait") {
	case "1", "true":
		return true
	}
	return false
}

// settle waits for op when the client asked to and returns the status
// for the optimistic response. A nil op means nothing was started.
func settle(r *http.Request, op *optimistic.Op) (int, error) {
	if op == nil {
		return http.StatusOK, nil
	}
	if !op.Accepted() {
		return 0, op.Err()
	}
	if wantsWait(r) {
		select {
		case <-op.Done():
		case <-r.Context().Done():
			return 0, r.Context().Err()
		}
	}
	if op.Settled() {
		return http.StatusOK, nil
	}
	return http.StatusAccepted, nil
}

// opResult is attached to optimistic responses.
type opResult struct {
	Action     string `json:"action"`
	Key        string `json:"key"`
	Pending    bool   `json:"pending"`
	RolledBack bool   `json:"rolledBack,omitempty"`
	Error      string `json:"error,omitempty"`
}

func resultOf(op *optimistic.Op) *opResult {
	if op == nil {
		return nil
	}
	res := &opResult{Action: op.Action(), Key: op.Key(), Pending: !op.Settled()}
	if op.Settled() {
		res.RolledBack = op.RolledBack()
		if err := op.Err(); err != nil {
			res.Error = err.Error()
		}
	}
	return res
}
