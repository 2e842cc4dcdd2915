package bridge

import "sync"

var (
	defaultMu     sync.Mutex
	defaultBridge *Bridge
)

// Default returns the process-wide bridge, creating it on first use. Code that subscribes
// through the package-level functions before the application is wired keeps its listeners:
// wiring adopts this instance with ConfigureDefault instead of replacing it.
func Default() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultBridge == nil {
		defaultBridge = New()
	}
	return defaultBridge
}

// ConfigureDefault applies opts to the process-wide bridge and returns it.
func ConfigureDefault(opts ...Option) *Bridge {
	b := Default()
	b.Configure(opts...)
	return b
}

// SetDefault replaces the process-wide bridge; nil makes the next Default build a new one.
// Listeners registered on the previous bridge stay with it, so this is meant for tests.
func SetDefault(b *Bridge) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultBridge = b
}

// On registers fn for topic on the default bridge.
func On(topic string, fn Handler) *Subscription {
	return Default().On(topic, fn)
}

// Off removes listeners from topic on the default bridge; none given removes all.
func Off(topic string, listeners ...*Listener) {
	Default().Off(topic, listeners...)
}

// OnUpdateData registers fn for update_data:<kind> on the default bridge.
func OnUpdateData(kind string, fn Handler) *Subscription {
	return Default().OnUpdateData(kind, fn)
}

// Send fires topic locally on the default bridge.
func Send(topic string, data any) error {
	return Default().Send(topic, data)
}

// SendUpdateData fires update_data:<kind> locally on the default bridge.
func SendUpdateData(kind string, data any) error {
	return Default().SendUpdateData(kind, data)
}
