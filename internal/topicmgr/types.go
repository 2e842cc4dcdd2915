package topicmgr

import (
	"strings"
	"time"
)

// FamilySeparator splits a topic name into its family and member, e.g. update_data:settings.
const FamilySeparator = ":"

// Scope tells where a topic's events come from
type Scope string

const (
	ScopeBackend Scope = "backend" // Pushed by the backend process over the transport
	ScopeLocal   Scope = "local"   // Fired by UI code in the same process
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeBackend || s == ScopeLocal
}

// Definition describes a known topic. It says nothing about who listens to it.
type Definition struct {
	Name        string `json:"name"`              // Unique identifier
	Family      string `json:"family"`            // Part of Name before the separator
	Scope       Scope  `json:"scope"`             // Backend or local
	Description string `json:"description"`       // Human-readable description
	Example     string `json:"example,omitempty"` // Example payload
	Payload     string `json:"payload,omitempty"` // Go type of the payload
}

// String returns the topic name.
func (d Definition) String() string {
	return d.Name
}

// Member returns the part of Name after the family separator, empty for plain topics.
func (d Definition) Member() string {
	_, member, _ := strings.Cut(d.Name, FamilySeparator)
	return member
}

// FamilyOf returns the family of a topic name: everything before the first separator.
func FamilyOf(name string) string {
	family, _, _ := strings.Cut(name, FamilySeparator)
	return family
}

// DefineBackend creates a definition for a topic pushed by the backend
func DefineBackend(def Definition) Definition {
	def.Scope = ScopeBackend
	def.Family = FamilyOf(def.Name)
	return def
}

// DefineLocal creates a definition for a topic fired inside the process
func DefineLocal(def Definition) Definition {
	def.Scope = ScopeLocal
	def.Family = FamilyOf(def.Name)
	return def
}

// RegistryEntry is a registered definition with registry metadata
type RegistryEntry struct {
	Definition   Definition `json:"definition"`
	RegisteredAt time.Time  `json:"registered_at"`
}

// TopicError represents structured errors of the topic catalogue
type TopicError struct {
	Type    ErrorType `json:"type"`
	Topic   string    `json:"topic"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

// ErrorType defines the kind of catalogue error
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorValidationFailed      ErrorType = "validation_failed"
	ErrorInvalidScope          ErrorType = "invalid_scope"
)

// Error implements the error interface
func (e *TopicError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *TopicError) Unwrap() error {
	return e.Cause
}

// Is matches another *TopicError by Type, so callers can test with errors.Is against
// a bare &TopicError{Type: ...}.
func (e *TopicError) Is(target error) bool {
	t, ok := target.(*TopicError)
	return ok && t.Type == e.Type
}
