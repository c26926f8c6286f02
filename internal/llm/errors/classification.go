package errors

import (
	"context"
	"errors"
	"strings"
)

// Classify returns the ErrorType of err, or "" for nil.
func Classify(err error) ErrorType {
	if c := ClassifyLLMError(err); c != nil {
		return c.Type
	}
	return ""
}

// ClassifyLLMError reduces a provider call error to a ClassifiedError.
// Typed errors are checked first, then sentinels and context errors, and
// finally message patterns for untyped errors.
func ClassifyLLMError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if classified := classifyTypedErrors(err); classified != nil {
		return classified
	}

	if classified := classifySentinelErrors(err); classified != nil {
		return classified
	}

	return classifyStringPatternErrors(err)
}

func classifyTypedErrors(err error) *ClassifiedError {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return &ClassifiedError{
			Type:      providerErr.Type,
			Message:   providerErr.Message,
			Code:      providerErr.Code,
			Retryable: providerErr.IsRetryable(),
			Provider:  providerErr.Provider,
			Cause: err,
		}
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &ClassifiedError{
			Type:      ErrorTypeRateLimit,
			Message:   rateLimitErr.Error(),
			Code:      "RATE_LIMIT",
			Retryable: true,
			Provider:  rateLimitErr.Provider,
			Cause: err,
		}
	}

	return nil
}

func classifySentinelErrors(err error) *ClassifiedError {
	sentinel := func(t ErrorType, code string, retryable bool) *ClassifiedError {
		return &ClassifiedError{Type: t, Message: err.Error(), Code: code, Retryable: retryable, Cause: err}
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return sentinel(ErrorTypeCircuitOpen, "CIRCUIT_OPEN", true)
	case errors.Is(err, context.DeadlineExceeded):
		return sentinel(ErrorTypeTimeout, "TIMEOUT", true)
	case errors.Is(err, context.Canceled):
		return sentinel(ErrorTypeCanceled, "CANCELED", false)
	case errors.Is(err, ErrRateLimitExceeded):
		return sentinel(ErrorTypeRateLimit, "RATE_LIMIT", true)
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrUnknownProvider):
		return sentinel(ErrorTypeProvider, "PROVIDER_UNAVAILABLE", false)
	case errors.Is(err, ErrUnsupportedSection):
		return sentinel(ErrorTypeProvider, "UNSUPPORTED_SECTION", false)
	case errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrUnusableScore):
		return sentinel(ErrorTypeInvalidResponse, "INVALID_RESPONSE", true)
	}

	return nil
}

func classifyStringPatternErrors(err error) *ClassifiedError {
	errMsg := strings.ToLower(err.Error())

	pattern := func(t ErrorType, msg, code string, retryable bool) *ClassifiedError {
		return &ClassifiedError{
			Type:      t,
			Message:   msg,
			Code:      code,
			Retryable: retryable,
			Cause:     err,
		}
	}

	switch {
	case strings.Contains(errMsg, "rate limit"):
		return pattern(ErrorTypeRateLimit, "Rate limit exceeded", "RATE_LIMIT", true)
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		return pattern(ErrorTypeTimeout, "Request timeout", "TIMEOUT", true)
	case strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "authentication"):
		return pattern(ErrorTypeAuth, "Authentication failed", "AUTH_FAILED", false)
	case strings.Contains(errMsg, "forbidden") || strings.Contains(errMsg, "permission"):
		return pattern(ErrorTypePermission, "Permission denied", "PERMISSION_DENIED", false)
	case strings.Contains(errMsg, "quota"):
		return pattern(ErrorTypeQuota, "Quota exceeded", "QUOTA_EXCEEDED", false)
	case strings.Contains(errMsg, "safety") || strings.Contains(errMsg, "blocked"):
		return pattern(ErrorTypeContent, "Content filtered", "CONTENT_FILTERED", false)
	case strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection"):
		return pattern(ErrorTypeNetwork, "Network error", "NETWORK_ERROR", true)
	default:
		return pattern(ErrorTypeUnknown, "Unknown error", "UNKNOWN", false)
	}
}
