package topicmgr

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Registry manages the collection of known topic definitions
type Registry struct {
	entries map[string]*RegistryEntry
	mu      sync.RWMutex
}

// NewRegistry creates a new topic registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a definition to the registry
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Name == "" {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Message: "topic name cannot be empty",
		}
	}

	if _, exists := r.entries[def.Name]; exists {
		return &TopicError{
			Type:    ErrorDuplicateRegistration,
			Topic:   def.Name,
			Message: fmt.Sprintf("topic already registered: %s", def.Name),
		}
	}

	r.entries[def.Name] = &RegistryEntry{
		Definition:   def,
		RegisteredAt: time.Now(),
	}
	return nil
}

// Get retrieves a definition by name
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		return Definition{}, false
	}
	return entry.Definition, true
}

// GetEntry retrieves a copy of the registry entry for name
func (r *Registry) GetEntry(name string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		return RegistryEntry{}, false
	}
	return *entry, true
}

// List returns all definitions sorted by name
func (r *Registry) List() []Definition {
	return r.filter(func(Definition) bool { return true })
}

// ListByFamily returns the definitions of one family, the family root included
func (r *Registry) ListByFamily(family string) []Definition {
	return r.filter(func(d Definition) bool { return d.Family == family })
}

// ListByScope returns the definitions of one scope
func (r *Registry) ListByScope(scope Scope) []Definition {
	return r.filter(func(d Definition) bool { return d.Scope == scope })
}

func (r *Registry) filter(keep func(Definition) bool) []Definition {
	r.mu.RLock()
	defs := make([]Definition, 0, len(r.entries))
	for _, entry := range r.entries {
		if keep(entry.Definition) {
			defs = append(defs, entry.Definition)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(defs, func(a, b Definition) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

// Families returns the distinct families, sorted
func (r *Registry) Families() []string {
	r.mu.RLock()
	seen := make(map[string]struct{})
	for _, entry := range r.entries {
		seen[entry.Definition.Family] = struct{}{}
	}
	r.mu.RUnlock()

	families := make([]string, 0, len(seen))
	for family := range seen {
		families = append(families, family)
	}
	slices.Sort(families)
	return families
}

// Count returns the number of registered definitions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Stats returns registry statistics
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		TotalTopics:     len(r.entries),
		FamilyBreakdown: make(map[string]int),
	}

	for _, entry := range r.entries {
		switch entry.Definition.Scope {
		case ScopeBackend:
			stats.BackendTopics++
		case ScopeLocal:
			stats.LocalTopics++
		}
		stats.FamilyBreakdown[entry.Definition.Family]++
	}

	return stats
}

// RegistryStats provides statistics about the registry
type RegistryStats struct {
	TotalTopics     int            `json:"total_topics"`
	BackendTopics   int            `json:"backend_topics"`
	LocalTopics     int            `json:"local_topics"`
	FamilyBreakdown map[string]int `json:"family_breakdown"`
}
