package eventbus

import (
	"slices"
	"sync"
)

// Registry routes topics to their listener lists.
//
// A topic has an entry only while it has at least one listener; the entry is created on
// the first Add and deleted as soon as the topic is emptied.
type Registry[T any] struct {
	mu     sync.Mutex
	topics map[string]*Listeners[T]
	total  int
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		topics: make(map[string]*Listeners[T]),
	}
}

// Add registers l on topic. The returned subscription also keeps the aggregate count
// and topic garbage collection in step when cancelled.
func (r *Registry[T]) Add(topic string, l *Listener[T]) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	ls, ok := r.topics[topic]
	if !ok {
		ls = NewListeners[T]()
		r.topics[topic] = ls
	}
	inner := ls.Add(l)
	r.total++

	return newSubscription(func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()

		if !inner.Cancel() {
			return false
		}
		r.total--
		r.dropIfEmpty(topic, ls)
		return true
	})
}

// AddFunc is Add for a bare handler.
func (r *Registry[T]) AddFunc(topic string, fn Handler[T]) *Subscription {
	return r.Add(topic, NewListener(fn))
}

// Remove drops the first registration of l on topic.
func (r *Registry[T]) Remove(topic string, l *Listener[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ls, ok := r.topics[topic]
	if !ok || !ls.Remove(l) {
		return false
	}
	r.total--
	r.dropIfEmpty(topic, ls)
	return true
}

// RemoveAll drops every listener on topic and returns how many were removed.
func (r *Registry[T]) RemoveAll(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ls, ok := r.topics[topic]
	if !ok {
		return 0
	}
	n := ls.Size()
	ls.Clean()
	r.total -= n
	delete(r.topics, topic)
	return n
}

// dropIfEmpty must be called with mu held. The identity check keeps a stale subscription
// from deleting a newer list registered under the same name.
func (r *Registry[T]) dropIfEmpty(topic string, ls *Listeners[T]) {
	if ls.Size() == 0 && r.topics[topic] == ls {
		delete(r.topics, topic)
	}
}

// Fire delivers payload to the listeners of topic. Firing a topic nobody listens to is
// a no-op. Listener panics come back wrapped in a *DispatchError.
func (r *Registry[T]) Fire(topic string, payload T) error {
	r.mu.Lock()
	ls, ok := r.topics[topic]
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := ls.Fire(payload); err != nil {
		return &DispatchError{Topic: topic, Err: err}
	}
	return nil
}

// Size returns the number of listeners on topic, 0 if it has no entry.
func (r *Registry[T]) Size(topic string) int {
	r.mu.Lock()
	ls, ok := r.topics[topic]
	r.mu.Unlock()

	if !ok {
		return 0
	}
	return ls.Size()
}

// Total returns the number of listeners across all topics.
func (r *Registry[T]) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.total
}

// Has reports whether topic currently has an entry.
func (r *Registry[T]) Has(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.topics[topic]
	return ok
}

// Topics returns the names of all topics with listeners, sorted.
func (r *Registry[T]) Topics() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.topics))
	for name := range r.topics {
		names = append(names, name)
	}
	r.mu.Unlock()

	slices.Sort(names)
	return names
}

// Clean drops topic and all of its listeners.
func (r *Registry[T]) Clean(topic string) {
	r.RemoveAll(topic)
}

// CleanAll drops every topic and resets the aggregate count.
func (r *Registry[T]) CleanAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ls := range r.topics {
		ls.Clean()
	}
	r.topics = make(map[string]*Listeners[T])
	r.total = 0
}
