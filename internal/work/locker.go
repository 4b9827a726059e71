package work

import (
	"context"
	"time"
)

// Locker serializes every operation that touches the shared working tree.
// Waiters are queued and served in arrival order; a waiter that cannot
// acquire the lock before its deadline gets ErrResourceLocked without the
// operation having started.
type Locker struct {
	ch chan struct{}
}

// NewLocker creates an unlocked Locker.
func NewLocker() *Locker {
	return &Locker{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is held, the timeout elapses, or ctx is
// cancelled. On success the returned release func must be called exactly
// once.
func (l *Locker) Acquire(ctx context.Context, timeout time.Duration) (release func(), err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case l.ch <- struct{}{}:
		return func() { <-l.ch }, nil
	case <-ctx.Done():
		return nil, ErrResourceLocked
	}
}
