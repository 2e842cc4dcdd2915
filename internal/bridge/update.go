package bridge

import (
	"encoding/json"
	"strings"
)

// TopicUpdateData is the generic "data updated" topic pushed by the backend.
const TopicUpdateData = "update_data"

// familySeparator joins a topic family and one of its members.
const familySeparator = ":"

// UpdateData is the update_data envelope payload.
type UpdateData struct {
	Type      string `json:"type"`
	Operation string `json:"operation"`
	Data      any    `json:"data"`
}

// Update is what listeners of update_data:<type> receive.
type Update struct {
	Operation string `json:"operation"`
	Data      any    `json:"data"`
}

// UpdateTopic returns the derived topic for one kind of data, e.g. "update_data:settings".
func UpdateTopic(kind string) string {
	return TopicUpdateData + familySeparator + kind
}

// UpdateKind returns the kind of a derived topic and whether topic belongs to the family.
func UpdateKind(topic string) (string, bool) {
	return strings.CutPrefix(topic, TopicUpdateData+familySeparator)
}

// deriveUpdate is the bridge's own update_data listener.
func (b *Bridge) deriveUpdate(payload any) {
	u, ok := decodeUpdate(payload)
	if !ok || u.Type == "" {
		return
	}

	topic := UpdateTopic(u.Type)
	if err := b.registry.Fire(topic, Update{Operation: u.Operation, Data: u.Data}); err != nil {
		b.Logger().Error("Event listener failed", "topic", topic, "operation", u.Operation, "error", err)
	}
}

// decodeUpdate accepts the shapes an update_data payload arrives in: the Go struct from a
// local SendUpdate, or JSON from the transport.
func decodeUpdate(payload any) (UpdateData, bool) {
	switch v := payload.(type) {
	case UpdateData:
		return v, true
	case *UpdateData:
		if v == nil {
			return UpdateData{}, false
		}
		return *v, true
	case json.RawMessage:
		return unmarshalUpdate(v)
	case []byte:
		return unmarshalUpdate(v)
	case nil:
		return UpdateData{}, false
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return UpdateData{}, false
		}
		return unmarshalUpdate(raw)
	}
}

func unmarshalUpdate(raw []byte) (UpdateData, bool) {
	var wire struct {
		Type      string          `json:"type"`
		Operation string          `json:"operation"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return UpdateData{}, false
	}

	u := UpdateData{Type: wire.Type, Operation: wire.Operation}
	if present(wire.Data) {
		u.Data = wire.Data
	}
	return u, true
}
