package topicmgr

import (
	"errors"
	"fmt"
	"sync"
)

// Manager combines the catalogue registry with validation
type Manager struct {
	registry  *Registry
	validator *Validator
}

// NewManager creates a new topic manager with registry and validator
func NewManager() *Manager {
	return &Manager{
		registry:  NewRegistry(),
		validator: NewValidator(),
	}
}

// Register validates a definition and adds it to the catalogue
func (m *Manager) Register(def Definition) error {
	if err := m.validator.ValidateDefinition(def); err != nil {
		var te *TopicError
		if errors.As(err, &te) {
			return te
		}
		return &TopicError{
			Type:    ErrorValidationFailed,
			Topic:   def.Name,
			Message: "topic validation failed",
			Cause:   err,
		}
	}

	return m.registry.Register(def)
}

// MustRegister registers a definition and panics on error (for static initialization)
func (m *Manager) MustRegister(def Definition) Definition {
	if err := m.Register(def); err != nil {
		panic(fmt.Sprintf("failed to register topic %s: %v", def.Name, err))
	}
	return def
}

// Get retrieves a definition by name
func (m *Manager) Get(name string) (Definition, bool) {
	return m.registry.Get(name)
}

// Lookup is Get returning a TopicError for unknown names
func (m *Manager) Lookup(name string) (Definition, error) {
	def, ok := m.registry.Get(name)
	if !ok {
		return Definition{}, &TopicError{
			Type:    ErrorTopicNotFound,
			Topic:   name,
			Message: fmt.Sprintf("topic not found: %s", name),
		}
	}
	return def, nil
}

// List returns all registered definitions, sorted by name
func (m *Manager) List() []Definition {
	return m.registry.List()
}

// ListByFamily returns the definitions of one family
func (m *Manager) ListByFamily(family string) []Definition {
	return m.registry.ListByFamily(family)
}

// ListByScope returns the definitions of one scope
func (m *Manager) ListByScope(scope Scope) []Definition {
	return m.registry.ListByScope(scope)
}

// Families returns every registered family
func (m *Manager) Families() []string {
	return m.registry.Families()
}

// ValidateTopicName checks if a topic name is valid without registering anything
func (m *Manager) ValidateTopicName(name string) error {
	if err := m.validator.ValidateName(name); err != nil {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Topic:   name,
			Message: "invalid topic name",
			Cause:   err,
		}
	}
	return nil
}

// Count returns the total number of registered definitions
func (m *Manager) Count() int {
	return m.registry.Count()
}

// Stats returns catalogue statistics
func (m *Manager) Stats() RegistryStats {
	return m.registry.Stats()
}

// Registry returns the underlying registry
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Global manager instance
var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// Default returns the default global manager
func Default() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// Register registers a definition with the default manager
func Register(def Definition) error {
	return Default().Register(def)
}

// MustRegister registers a definition with the default manager and panics on error
func MustRegister(def Definition) Definition {
	return Default().MustRegister(def)
}

// Get retrieves a definition from the default manager
func Get(name string) (Definition, bool) {
	return Default().Get(name)
}

// List returns all definitions from the default manager
func List() []Definition {
	return Default().List()
}

// ValidateTopicName checks a topic name using the default manager
func ValidateTopicName(name string) error {
	return Default().ValidateTopicName(name)
}
