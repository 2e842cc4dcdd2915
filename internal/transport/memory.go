package transport

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

// Metadata keys used to carry Message fields through watermill's message.
const (
	metaKeyChannel = "channel"
)

// Memory is an in-process transport built on watermill's GoChannel. It stands in for the
// backend connection in the memory mode and in tests.
type Memory struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger *slog.Logger
	closed atomic.Bool
}

// MemoryOption configures a Memory transport.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	tracer trace.Tracer
	logger *slog.Logger
	buffer int64
}

// WithMemoryTracer wraps publishing with OpenTelemetry spans.
func WithMemoryTracer(tracer trace.Tracer) MemoryOption {
	return func(c *memoryConfig) {
		c.tracer = tracer
	}
}

// WithMemoryLogger sets the logger used for delivery failures.
func WithMemoryLogger(logger *slog.Logger) MemoryOption {
	return func(c *memoryConfig) {
		c.logger = logger
	}
}

// WithMemoryBuffer sets the per-subscriber output buffer of the underlying GoChannel.
func WithMemoryBuffer(size int64) MemoryOption {
	return func(c *memoryConfig) {
		c.buffer = size
	}
}

// NewMemory creates an in-memory transport.
func NewMemory(opts ...MemoryOption) *Memory {
	cfg := memoryConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: cfg.buffer},
		watermill.NewStdLogger(false, false),
	)

	var pub message.Publisher = goChannel
	if cfg.tracer != nil {
		pub = NewTracingPublisher(goChannel, cfg.tracer)
	}

	return &Memory{
		pub:    pub,
		sub:    goChannel,
		logger: cfg.logger,
	}
}

// toWatermill converts a Message to a watermill message.
func toWatermill(msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyChannel, msg.Channel)
	return wmMsg
}

// fromWatermill converts a watermill message back, dropping the reserved channel key.
func fromWatermill(wmMsg *message.Message) Message {
	metadata := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		if k != metaKeyChannel {
			metadata[k] = v
		}
	}
	metadata["message_id"] = wmMsg.UUID

	return Message{
		Channel:  wmMsg.Metadata.Get(metaKeyChannel),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements Publisher. Messages published to a channel without subscribers are
// dropped, the same as a backend push nobody listens for.
func (m *Memory) Publish(ctx context.Context, msg Message) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if msg.Channel == "" {
		msg.Channel = ChannelMessage
	}
	wmMsg := toWatermill(msg)
	wmMsg.SetContext(ctx)
	return m.pub.Publish(msg.Channel, wmMsg)
}

// Subscribe implements Subscriber.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if m.closed.Load() {
		return ErrClosed
	}
	messages, err := m.sub.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	go func() {
		for wmMsg := range messages {
			msg := fromWatermill(wmMsg)
			if err := handler(wmMsg.Context(), msg); err != nil {
				m.logger.Error("Failed to handle transport message", "channel", channel, "msg_id", wmMsg.UUID, "error", err)
			}
			// Handler failures are logged, never redelivered.
			wmMsg.Ack()
		}
		m.logger.Debug("Transport message loop ended", "channel", channel)
	}()

	return nil
}

// Close shuts the transport down and ends every subscription loop.
func (m *Memory) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.sub.Close()
}
