package topicmgr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxNameLength bounds topic names.
const MaxNameLength = 100

// Validator checks topic names and definitions
type Validator struct {
	// namePattern defines valid topic names
	namePattern *regexp.Regexp
}

// NewValidator creates a new topic validator
func NewValidator() *Validator {
	// A lowercase identifier, optionally followed by one family member.
	// Examples: order_update, update_data:settings, update_data:strategy.v2
	namePattern := regexp.MustCompile(`^[a-z][a-z0-9_]*(:[a-z0-9_][a-z0-9_.-]*)?$`)

	return &Validator{
		namePattern: namePattern,
	}
}

// ValidateName checks if a topic name follows the naming convention
func (v *Validator) ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("name too long (max %d characters)", MaxNameLength)
	}

	if strings.ContainsAny(name, "*#>") {
		return errors.New("name cannot contain wildcards")
	}

	if !v.namePattern.MatchString(name) {
		return errors.New("name must be a lowercase identifier with at most one family separator, e.g. update_data:settings")
	}

	return nil
}

// ValidateDefinition validates a topic definition
func (v *Validator) ValidateDefinition(def Definition) error {
	if err := v.ValidateName(def.Name); err != nil {
		return fmt.Errorf("invalid topic name: %w", err)
	}

	if strings.TrimSpace(def.Description) == "" {
		return errors.New("topic description cannot be empty")
	}

	if !def.Scope.Valid() {
		return &TopicError{
			Type:    ErrorInvalidScope,
			Topic:   def.Name,
			Message: fmt.Sprintf("invalid scope: %q", def.Scope),
		}
	}

	if def.Family != FamilyOf(def.Name) {
		return fmt.Errorf("family %q does not match topic name %q", def.Family, def.Name)
	}

	return nil
}
