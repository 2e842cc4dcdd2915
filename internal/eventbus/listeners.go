package eventbus

import (
	"errors"
	"runtime/debug"
	"sync"
)

// slot is one registration. The same listener added twice occupies two slots, and each
// Subscription points at its own slot.
type slot[T any] struct {
	listener *Listener[T]
}

// Listeners is the ordered listener list of a single topic.
// The zero value is ready to use.
type Listeners[T any] struct {
	mu    sync.Mutex
	slots []*slot[T]
}

// NewListeners creates an empty listener list.
func NewListeners[T any]() *Listeners[T] {
	return &Listeners[T]{}
}

// Add appends l and returns the subscription that removes this registration.
func (ls *Listeners[T]) Add(l *Listener[T]) *Subscription {
	s := &slot[T]{listener: l}

	ls.mu.Lock()
	ls.slots = append(ls.slots, s)
	ls.mu.Unlock()

	return newSubscription(func() bool {
		return ls.removeSlot(s)
	})
}

// AddFunc is Add for a bare handler.
func (ls *Listeners[T]) AddFunc(fn Handler[T]) *Subscription {
	return ls.Add(NewListener(fn))
}

// Remove drops the first registration of l and reports whether one was found.
func (ls *Listeners[T]) Remove(l *Listener[T]) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i, s := range ls.slots {
		if s.listener == l {
			ls.deleteAt(i)
			return true
		}
	}
	return false
}

func (ls *Listeners[T]) removeSlot(target *slot[T]) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i, s := range ls.slots {
		if s == target {
			ls.deleteAt(i)
			return true
		}
	}
	return false
}

// deleteAt must be called with mu held. It copies instead of shifting in place so that
// snapshots handed out by Fire stay intact.
func (ls *Listeners[T]) deleteAt(i int) {
	next := make([]*slot[T], 0, len(ls.slots)-1)
	next = append(next, ls.slots[:i]...)
	next = append(next, ls.slots[i+1:]...)
	ls.slots = next
}

// Fire calls every listener registered when Fire starts, in insertion order, on the
// calling goroutine. Listeners added during the pass are not called until the next Fire;
// listeners removed during the pass still receive this payload.
//
// A panicking listener does not stop the fan-out. Its panic is recovered and returned,
// joined with any others, as *PanicError values.
func (ls *Listeners[T]) Fire(payload T) error {
	ls.mu.Lock()
	snapshot := ls.slots
	ls.mu.Unlock()

	var errs []error
	for _, s := range snapshot {
		if err := invoke(s.listener, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke[T any](l *Listener[T], payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	l.Handle(payload)
	return nil
}

// Size returns the number of registrations.
func (ls *Listeners[T]) Size() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	return len(ls.slots)
}

// Clean drops every registration. Outstanding subscriptions become no-ops.
func (ls *Listeners[T]) Clean() {
	ls.mu.Lock()
	ls.slots = nil
	ls.mu.Unlock()
}
