// Package apierror holds the JSON envelopes for every 4xx/5xx response.
// Handlers never write raw error strings from the database or the hosted
// backend; they pick a message here.
package apierror

// APIError is the envelope for every non-validation error.
type APIError struct {
	Detail string `json:"detail"`
	// Codigo is a stable machine-readable reason (e.g. "ya_cerrado").
	Codigo string `json:"codigo,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode returns an envelope carrying a machine-readable reason.
func WithCode(codigo, msg string) *APIError {
	return &APIError{Detail: msg, Codigo: codigo}
}

// ValidationError wraps per-field validation failures.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
