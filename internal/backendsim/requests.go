package backendsim

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// PushRequest is the body of POST /push. It is forwarded to clients unchanged.
type PushRequest struct {
	Event string          `json:"event" validate:"required,max=100"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PushResponse reports how many clients the envelope was queued for.
type PushResponse struct {
	Event   string `json:"event"`
	Clients int    `json:"clients"`
}

// envelope is the wire shape of every pushed frame.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
