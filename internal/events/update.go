package events

import (
	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/topicmgr"
)

// UpdateKind is one member of the update_data family with a known data type.
type UpdateKind[T any] struct {
	kind string
	def  topicmgr.Definition
}

// DefineUpdate declares update_data:<kind> carrying T and registers it in the default
// catalogue.
func DefineUpdate[T any](kind, description string) UpdateKind[T] {
	return DefineUpdateIn[T](topicmgr.Default(), kind, description)
}

// DefineUpdateIn is DefineUpdate against an explicit catalogue.
func DefineUpdateIn[T any](m *topicmgr.Manager, kind, description string) UpdateKind[T] {
	def := topicmgr.DefineBackend(topicmgr.Definition{
		Name:        bridge.UpdateTopic(kind),
		Description: description,
		Payload:     typeName[T](),
	})
	return UpdateKind[T]{kind: kind, def: m.MustRegister(def)}
}

// Kind returns the member name, e.g. "settings".
func (k UpdateKind[T]) Kind() string {
	return k.kind
}

// Name returns the derived topic, e.g. "update_data:settings".
func (k UpdateKind[T]) Name() string {
	return k.def.Name
}

// Definition returns the catalogue entry of the derived topic.
func (k UpdateKind[T]) Definition() topicmgr.Definition {
	return k.def
}

// On registers fn for the derived topic. fn receives the operation and the decoded data.
func (k UpdateKind[T]) On(b *bridge.Bridge, fn func(op string, data T)) *bridge.Subscription {
	return b.OnUpdateData(k.kind, func(payload any) {
		u, err := decodeUpdate(payload)
		if err != nil {
			b.Logger().Warn("Dropping undecodable update", "topic", k.def.Name, "error", err)
			return
		}
		data, err := Decode[T](u.Data)
		if err != nil {
			b.Logger().Warn("Dropping undecodable update", "topic", k.def.Name, "operation", u.Operation, "error", err)
			return
		}
		fn(u.Operation, data)
	})
}

// Send fires the whole family locally: update_data with the full envelope, then
// update_data:<kind> through the bridge's derivation.
func (k UpdateKind[T]) Send(b *bridge.Bridge, op string, data T) error {
	return b.SendUpdate(bridge.UpdateData{Type: k.kind, Operation: op, Data: data})
}

func decodeUpdate(payload any) (bridge.Update, error) {
	switch v := payload.(type) {
	case bridge.Update:
		return v, nil
	case *bridge.Update:
		if v != nil {
			return *v, nil
		}
	}
	return Decode[bridge.Update](payload)
}
