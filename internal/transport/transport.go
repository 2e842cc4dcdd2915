// Package transport adapts the channels that carry backend push notifications into the
// process. The bridge only needs Subscriber; Publisher exists so that tests, the simulator
// and the in-memory mode can inject envelopes.
package transport

import (
	"context"
	"errors"
)

// ChannelMessage is the generic backend push channel. Every payload on it is expected to be
// a JSON {"event": ..., "data": ...} envelope.
const ChannelMessage = "message"

var (
	// ErrClosed is returned by operations on a transport that has been closed.
	ErrClosed = errors.New("transport closed")
	// ErrUnknownChannel is returned when subscribing to a channel the transport does not carry.
	ErrUnknownChannel = errors.New("unknown channel")
)

// Message is one frame received from, or sent to, the backend.
type Message struct {
	// Channel identifies where the frame travels (normally ChannelMessage).
	Channel string
	// Payload is the raw frame, usually JSON.
	Payload []byte
	// Metadata carries transport level context such as the connection ID.
	Metadata map[string]string
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends frames over the transport.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber receives frames from the transport.
type Subscriber interface {
	// Subscribe registers handler for channel and returns immediately; delivery happens
	// on a transport goroutine until ctx is cancelled or the transport is closed.
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Transport is a full duplex channel to the backend.
type Transport interface {
	Publisher
	Subscriber
}
