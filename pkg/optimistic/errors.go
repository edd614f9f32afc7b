package optimistic

import (
	"errors"

	noaierrors "github.com/noai-dev/noai/internal/errors"
)

var (
	// ErrPending is returned by Op.Err when a Run was dropped because the
	// same key already had an effect in flight.
	ErrPending = errors.New("optimistic: effect already pending")

	// ErrDisposed is returned by Op.Err when the controller was disposed
	// before the effect settled.
	ErrDisposed = errors.New("optimistic: controller disposed")
)

func droppedError(action, key string) error {
	return noaierrors.New(noaierrors.CodeEffectDropped).
		WithDetailf("%s %s is still waiting for the previous change", action, key).
		Wrap(ErrPending)
}

func disposedError() error {
	return noaierrors.New(noaierrors.CodeDisposed).Wrap(ErrDisposed)
}

func effectError(action string, err error) error {
	return noaierrors.New(noaierrors.CodeEffectFailed).
		WithDetailf("%s was rejected and rolled back", action).
		Wrap(err)
}
