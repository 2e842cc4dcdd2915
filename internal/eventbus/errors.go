package eventbus

import (
	"fmt"
)

// PanicError is reported when a listener panics during Fire.
type PanicError struct {
	// Value is whatever the listener passed to panic.
	Value any
	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panicked: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// DispatchError ties a fan-out failure to the topic it happened on.
type DispatchError struct {
	Topic string
	Err   error
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %q: %v", e.Topic, e.Err)
}

// Unwrap returns the underlying error
func (e *DispatchError) Unwrap() error {
	return e.Err
}
