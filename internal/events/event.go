// Package events declares the topics of the trading desk with their payload types.
//
// The bridge itself moves untyped payloads. An Event[T] binds a topic name to T so that
// listeners receive a decoded value whether the event came from the backend as JSON or
// from a local Send as a Go value:
//
//	events.OrderUpdate.On(b, func(o events.Order) {
//		blotter.Upsert(o)
//	})
//
// Every declared topic is also registered in the topicmgr catalogue.
package events

import (
	"reflect"

	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/topicmgr"
)

// Event is a topic with a known payload type.
type Event[T any] struct {
	def topicmgr.Definition
}

// Define declares a topic carrying T and registers it in the default catalogue. It panics
// on an invalid or duplicate name, so call it from package-level var blocks.
func Define[T any](name, description string, scope topicmgr.Scope) Event[T] {
	return DefineIn[T](topicmgr.Default(), topicmgr.Definition{
		Name:        name,
		Scope:       scope,
		Description: description,
	})
}

// DefineIn is Define against an explicit catalogue with a full definition.
func DefineIn[T any](m *topicmgr.Manager, def topicmgr.Definition) Event[T] {
	def.Family = topicmgr.FamilyOf(def.Name)
	if def.Payload == "" {
		def.Payload = typeName[T]()
	}
	return Event[T]{def: m.MustRegister(def)}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.def.Name
}

// Definition returns the catalogue entry of the topic.
func (e Event[T]) Definition() topicmgr.Definition {
	return e.def
}

// On registers fn for the topic. Payloads that do not decode into T are logged and
// skipped; fn is not called for them.
func (e Event[T]) On(b *bridge.Bridge, fn func(T)) *bridge.Subscription {
	return b.On(e.def.Name, func(payload any) {
		v, err := Decode[T](payload)
		if err != nil {
			b.Logger().Warn("Dropping undecodable event", "topic", e.def.Name, "error", err)
			return
		}
		fn(v)
	})
}

// Send fires the topic locally with v.
func (e Event[T]) Send(b *bridge.Bridge, v T) error {
	return b.Send(e.def.Name, v)
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return "any"
	}
	return t.String()
}
