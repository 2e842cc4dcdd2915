// Package bridge connects the backend push channel to the in-process listeners of the UI.
//
// A Bridge owns one eventbus.Registry. Once started it subscribes to the transport's
// message channel, unwraps each {"event", "data"} envelope and fires the event locally.
// The update_data family is special: every update_data event is also re-fired under
// update_data:<type> so listeners can follow a single kind of data.
//
// UI code may also fire topics itself with Send, which never touches the transport.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nfrund/tradedesk/internal/eventbus"
	"github.com/nfrund/tradedesk/internal/transport"
)

// ErrAlreadyStarted is returned by Start on a bridge that is already active.
var ErrAlreadyStarted = errors.New("bridge already started")

// Handler, Listener and Subscription are the eventbus types specialised to bridge payloads.
type (
	Handler      = eventbus.Handler[any]
	Listener     = eventbus.Listener[any]
	Subscription = eventbus.Subscription
)

// NewListener wraps fn so it can later be passed to Off.
func NewListener(fn Handler) *Listener {
	return eventbus.NewListener(fn)
}

// State is the lifecycle state of a bridge.
type State int32

const (
	// StateIdle means the bridge is not attached to a transport yet. Local Send still works.
	StateIdle State = iota
	// StateActive means the transport subscription is installed. There is no way back.
	StateActive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Bridge dispatches backend and local events to registered listeners.
type Bridge struct {
	registry *eventbus.Registry[any]
	env      atomic.Pointer[environment]
	state    atomic.Int32
	derive   *Listener
}

// environment holds what a bridge reports to. It is swapped whole by Configure.
type environment struct {
	logger *slog.Logger
	tracer trace.Tracer
}

type options struct {
	environment
	registry *eventbus.Registry[any]
}

// Option configures a Bridge.
type Option func(*options)

// WithLogger sets the logger used for listener failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets the tracer used for transport deliveries.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithRegistry makes the bridge use an existing registry. Configure ignores it.
func WithRegistry(registry *eventbus.Registry[any]) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// New creates an idle bridge with the update_data derivation already installed.
func New(opts ...Option) *Bridge {
	o := options{
		environment: environment{
			logger: slog.Default(),
			tracer: noop.NewTracerProvider().Tracer(transport.TracerName),
		},
		registry: eventbus.NewRegistry[any](),
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Bridge{registry: o.registry}
	b.env.Store(&o.environment)
	b.derive = NewListener(b.deriveUpdate)
	b.registry.Add(TopicUpdateData, b.derive)
	return b
}

// Configure replaces the logger and tracer of a bridge that may already have listeners.
// Listeners and the lifecycle state are untouched.
func (b *Bridge) Configure(opts ...Option) {
	o := options{environment: *b.env.Load()}
	for _, opt := range opts {
		opt(&o)
	}
	b.env.Store(&o.environment)
}

// Start subscribes the bridge to the transport's message channel. It may succeed only
// once per bridge; delivery stops when ctx is cancelled.
func (b *Bridge) Start(ctx context.Context, sub transport.Subscriber) error {
	if !b.state.CompareAndSwap(int32(StateIdle), int32(StateActive)) {
		return ErrAlreadyStarted
	}
	if err := sub.Subscribe(ctx, transport.ChannelMessage, b.Deliver); err != nil {
		b.state.Store(int32(StateIdle))
		return fmt.Errorf("subscribe to %s channel: %w", transport.ChannelMessage, err)
	}
	b.Logger().Info("Event bridge active", "channel", transport.ChannelMessage)
	return nil
}

// Logger returns the logger the bridge reports listener failures to.
func (b *Bridge) Logger() *slog.Logger {
	return b.env.Load().logger
}

func (b *Bridge) tracer() trace.Tracer {
	return b.env.Load().tracer
}

// State returns the lifecycle state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// On registers fn for topic. It never fails, even for topics nobody fires yet.
func (b *Bridge) On(topic string, fn Handler) *Subscription {
	return b.registry.AddFunc(topic, fn)
}

// Subscribe registers an existing listener for topic.
func (b *Bridge) Subscribe(topic string, l *Listener) *Subscription {
	return b.registry.Add(topic, l)
}

// Off removes the given listeners from topic, or every listener when none are given.
// Removing everything from update_data keeps the update_data:<type> derivation alive.
func (b *Bridge) Off(topic string, listeners ...*Listener) {
	if len(listeners) == 0 {
		b.registry.RemoveAll(topic)
		if topic == TopicUpdateData {
			b.registry.Add(TopicUpdateData, b.derive)
		}
		return
	}
	for _, l := range listeners {
		b.registry.Remove(topic, l)
	}
}

// OnUpdateData registers fn for update_data:<kind>. fn receives an Update.
func (b *Bridge) OnUpdateData(kind string, fn Handler) *Subscription {
	return b.On(UpdateTopic(kind), fn)
}

// Send fires topic locally with data. Listener panics are logged and returned.
func (b *Bridge) Send(topic string, data any) error {
	err := b.registry.Fire(topic, data)
	if err != nil {
		b.Logger().Error("Event listener failed", "topic", topic, "error", err)
	}
	return err
}

// SendUpdateData fires update_data:<kind> locally with data.
func (b *Bridge) SendUpdateData(kind string, data any) error {
	return b.Send(UpdateTopic(kind), data)
}

// SendUpdate fires the whole update_data family for u: the raw update_data topic and,
// through the derivation, update_data:<u.Type>.
func (b *Bridge) SendUpdate(u UpdateData) error {
	return b.Send(TopicUpdateData, u)
}

// Size returns the listener count of topic.
func (b *Bridge) Size(topic string) int {
	return b.registry.Size(topic)
}

// Total returns the listener count across all topics, the derivation included.
func (b *Bridge) Total() int {
	return b.registry.Total()
}

// Topics returns every topic that currently has listeners.
func (b *Bridge) Topics() []string {
	return b.registry.Topics()
}
