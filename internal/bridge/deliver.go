package bridge

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/tradedesk/internal/transport"
)

// envelope is the shape of every frame on the message channel.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Deliver is the transport handler. It fires the envelope's event with its data as a
// json.RawMessage (nil when absent). Frames that are not envelopes, or carry no event,
// are dropped without a trace. Listener failures are logged and never reported back to
// the transport.
func (b *Bridge) Deliver(ctx context.Context, msg transport.Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil || env.Event == "" {
		return nil
	}

	_, span := b.tracer().Start(ctx, "bridge.deliver."+env.Event,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.operation", "process"),
			attribute.String("messaging.destination", env.Event),
			attribute.String("messaging.source", msg.Channel),
			attribute.Int("messaging.message_payload_size_bytes", len(msg.Payload)),
			attribute.String("messaging.message_payload_preview", transport.PayloadPreview(msg.Payload)),
			attribute.Int("bridge.listeners", b.registry.Size(env.Event)),
		),
	)
	defer span.End()

	var data any
	if present(env.Data) {
		data = env.Data
	}

	if err := b.registry.Fire(env.Event, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.Logger().Error("Event listener failed", "topic", env.Event, "channel", msg.Channel, "error", err)
	}
	return nil
}

// present reports whether a JSON field carries a value. Absent and null are the same.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
