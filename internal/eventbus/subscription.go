package eventbus

import "sync/atomic"

// Handler receives the payload of a fired topic.
type Handler[T any] func(payload T)

// Listener wraps a Handler so it can be identified by pointer.
// Keep the *Listener around if you intend to remove it with Remove instead of
// cancelling the Subscription returned by Add.
type Listener[T any] struct {
	fn Handler[T]
}

// NewListener creates a listener for fn. A nil fn yields a listener that ignores payloads.
func NewListener[T any](fn Handler[T]) *Listener[T] {
	return &Listener[T]{fn: fn}
}

// Handle invokes the wrapped handler.
func (l *Listener[T]) Handle(payload T) {
	if l == nil || l.fn == nil {
		return
	}
	l.fn(payload)
}

// Subscription is the handle for one registration. Only the code that received it should
// cancel it.
type Subscription struct {
	cancelled atomic.Bool
	cancel    func() bool
}

func newSubscription(cancel func() bool) *Subscription {
	return &Subscription{cancel: cancel}
}

// Cancel removes the registration this subscription was issued for. It returns true only
// on the call that actually removed it; every later call is a no-op returning false.
func (s *Subscription) Cancel() bool {
	if s == nil || !s.cancelled.CompareAndSwap(false, true) {
		return false
	}
	return s.cancel()
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription) Cancelled() bool {
	return s != nil && s.cancelled.Load()
}
