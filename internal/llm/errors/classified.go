package errors

import "fmt"

// ClassifiedError is a provider call failure reduced to the taxonomy the
// orchestrator records in AttemptMeta.ErrorType and the circuit breaker
// uses to decide what counts as a fault.
type ClassifiedError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Provider  string    `json:"provider,omitempty"`
	Retryable bool      `json:"retryable"` // transient, worth a later attempt
	Cause     error     `json:"-"`
}

func (e *ClassifiedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *ClassifiedError) Unwrap() error { return e.Cause }
