package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeExecution  = "EXECUTION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeStore      = "STORE_ERROR"
	ErrCodeRender     = "RENDER_ERROR"
)

// TracevizError is the structured error type for all traceviz operations.
// The diagram compiler itself never produces one; it reports anomalies as
// dropped-step diagnostics instead.
type TracevizError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *TracevizError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *TracevizError) Unwrap() error {
	return e.Cause
}

// NewError creates a new TracevizError.
func NewError(code, message string) *TracevizError {
	return &TracevizError{Code: code, Message: message}
}

// NewErrorf creates a new TracevizError with a formatted message.
func NewErrorf(code, format string, args ...any) *TracevizError {
	return &TracevizError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *TracevizError) WithCause(err error) *TracevizError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *TracevizError) WithDetails(details map[string]any) *TracevizError {
	e.Details = details
	return e
}
