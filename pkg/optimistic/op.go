package optimistic

import (
	"context"

	"github.com/noai-dev/noai/pkg/reactive"
)

// Op is the handle returned by Run. It settles once the effect finishes,
// the controller is disposed, or immediately when the Run was rejected.
type Op struct {
	action   string
	key      string
	accepted bool

	future   *reactive.Future[bool]
	complete func(bool, error)
}

func newOp(action, key string) *Op {
	f, complete := reactive.NewFuture[bool]()
	return &Op{
		action:   action,
		key:      key,
		accepted: true,
		future:   f,
		complete: complete,
	}
}

func rejectedOp(action, key string, err error) *Op {
	op := newOp(action, key)
	op.accepted = false
	op.resolve(err, false)
	return op
}

// resolve settles the op. Only the first call has any effect.
func (o *Op) resolve(err error, rolledBack bool) {
	o.complete(rolledBack, err)
}

// Action returns the transition's action label.
func (o *Op) Action() string { return o.action }

// Key returns the transition's key.
func (o *Op) Key() string { return o.key }

// Accepted reports whether the transition was applied. A dropped or
// post-dispose Run is not accepted.
func (o *Op) Accepted() bool { return o.accepted }

// Done returns a channel closed when the op settles.
func (o *Op) Done() <-chan struct{} { return o.future.Done() }

// Settled reports whether the op has settled.
func (o *Op) Settled() bool { return o.future.Ready() }

// Err returns the settlement error: nil on confirmation (or before
// settlement), an E001 error wrapping the effect's error on rollback,
// ErrPending when dropped and ErrDisposed after disposal.
func (o *Op) Err() error {
	_, err := o.future.Result()
	return err
}

// RolledBack reports whether the optimistic value was reverted.
func (o *Op) RolledBack() bool {
	rb, _ := o.future.Result()
	return rb
}

// Wait blocks until the op settles or ctx is done, returning Err().
func (o *Op) Wait(ctx context.Context) error {
	_, err := o.future.Wait(ctx)
	return err
}
