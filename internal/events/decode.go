package events

import (
	"encoding/json"
	"fmt"
)

// Decode converts a bridge payload into T. Payloads already of type T (or *T) are
// returned as is; JSON from the transport and other values are re-decoded through JSON.
// A nil payload decodes to the zero T.
func Decode[T any](payload any) (T, error) {
	var out T

	switch v := payload.(type) {
	case nil:
		return out, nil
	case T:
		return v, nil
	case *T:
		if v == nil {
			return out, nil
		}
		return *v, nil
	case json.RawMessage:
		return out, unmarshal(v, &out)
	case []byte:
		return out, unmarshal(v, &out)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("encode %T payload: %w", payload, err)
	}
	return out, unmarshal(raw, &out)
}

func unmarshal[T any](raw []byte, out *T) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload into %T: %w", *out, err)
	}
	return nil
}
