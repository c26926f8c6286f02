package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes provider call failures. The orchestrator records it
// on every failed attempt so a zero score can be traced back to its cause.
type ErrorType string

const (
	// ErrorTypeTimeout indicates the per-call deadline elapsed.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeCanceled indicates the caller abandoned the request.
	ErrorTypeCanceled ErrorType = "canceled"

	// ErrorTypeRateLimit indicates a local or remote rate limit rejected the call.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity issues.
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates the provider is down or not configured.
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeInvalidResponse indicates the provider answered with content
	// that held no usable score.
	ErrorTypeInvalidResponse ErrorType = "invalid_response"

	// ErrorTypeValidation indicates input validation failed.
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeContent indicates content blocked by safety filters.
	ErrorTypeContent ErrorType = "content_filtered"

	// ErrorTypeAuth indicates authentication failed.
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypePermission indicates insufficient permissions.
	ErrorTypePermission ErrorType = "permission_denied"

	// ErrorTypeQuota indicates account quota exceeded.
	ErrorTypeQuota ErrorType = "quota_exceeded"

	// ErrorTypeCircuitOpen indicates the call was refused locally because
	// the provider failed repeatedly in the recent past.
	ErrorTypeCircuitOpen ErrorType = "circuit_open"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common provider errors.
var (
	// ErrProviderUnavailable indicates the provider cannot serve requests,
	// including when its credentials are not configured.
	ErrProviderUnavailable = errors.New("provider service unavailable")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCacheMiss indicates the requested item was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnknownProvider indicates an unknown or unsupported provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidResponse indicates the provider returned an invalid response.
	ErrInvalidResponse = errors.New("invalid provider response")

	// ErrUnusableScore indicates a well-formed response with neither an
	// overall score nor any subscores.
	ErrUnusableScore = errors.New("provider returned no usable score")

	// ErrCircuitOpen indicates a circuit breaker refused the call.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrUnsupportedSection indicates a provider cannot score a section.
	ErrUnsupportedSection = errors.New("section not supported by provider")
)

// ProviderError captures structured error responses from providers.
type ProviderError struct {
	Provider   string    `json:"provider"`    // Provider name
	StatusCode int       `json:"status_code"` // HTTP status code
	Message    string    `json:"message"`     // Error message
	Code       string    `json:"code"`        // Provider error code
	Type       ErrorType `json:"type"`        // Classified error type
	RetryAfter int       `json:"retry_after"` // Retry-After header value in seconds
}

// Error returns formatted provider error with status code context.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether a later call to the same provider could succeed.
// The orchestrator never retries within a call; this guides Temporal retries
// of the whole scoring activity.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// RateLimitError distinguishes local token-bucket rejections from remote 429s.
type RateLimitError struct {
	Provider   string `json:"provider"`
	RetryAfter int    `json:"retry_after"` // Seconds to wait before retry
	Limit      int    `json:"limit"`       // Rate limit
	LocalLimit bool   `json:"local_limit"` // Whether this is a local limit
}

// Error returns formatted rate limit error with retry guidance.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// Unwrap lets errors.Is match ErrRateLimitExceeded.
func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// IsRetryableError reports whether err is transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Retryable
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}

	if errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}

	type statusCoder interface {
		StatusCode() int
	}
	if sc, ok := err.(statusCoder); ok {
		code := sc.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code == http.StatusGatewayTimeout ||
			code >= 500
	}

	return false
}
