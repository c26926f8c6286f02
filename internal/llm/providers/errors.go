package providers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
)

// Provider adapter errors.
var (
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// ClassifyErrorType determines ErrorType from an HTTP status and a vendor error code.
// Provider codes win over status codes since vendors reuse 400 and 429 for
// several distinct conditions.
func ClassifyErrorType(statusCode int, errorCode string) llmerrors.ErrorType {
	lowerCode := strings.ToLower(errorCode)
	switch {
	case strings.Contains(lowerCode, "quota") || strings.Contains(lowerCode, "insufficient"):
		return llmerrors.ErrorTypeQuota
	case strings.Contains(lowerCode, "rate") || strings.Contains(lowerCode, "limit"):
		return llmerrors.ErrorTypeRateLimit
	case strings.Contains(lowerCode, "timeout"):
		return llmerrors.ErrorTypeTimeout
	case strings.Contains(lowerCode, "auth") || strings.Contains(lowerCode, "unauthorized"):
		return llmerrors.ErrorTypeAuth
	case strings.Contains(lowerCode, "permission") || strings.Contains(lowerCode, "forbidden"):
		return llmerrors.ErrorTypePermission
	case strings.Contains(lowerCode, "overloaded"):
		return llmerrors.ErrorTypeProvider
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return llmerrors.ErrorTypeRateLimit
	case http.StatusUnauthorized:
		return llmerrors.ErrorTypeAuth
	case http.StatusForbidden:
		return llmerrors.ErrorTypePermission
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return llmerrors.ErrorTypeTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return llmerrors.ErrorTypeValidation
	default:
		if statusCode >= configuration.ServerErrorStatusThreshold {
			return llmerrors.ErrorTypeProvider
		}
		return llmerrors.ErrorTypeUnknown
	}
}

// retryAfterSeconds reads a Retry-After header given in seconds. HTTP-date
// values are ignored.
func retryAfterSeconds(h http.Header) int {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// newProviderError builds the error for a non-200 reply.
func newProviderError(provider string, resp *http.Response, message, code string) *llmerrors.ProviderError {
	return &llmerrors.ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Type:       ClassifyErrorType(resp.StatusCode, code),
		RetryAfter: retryAfterSeconds(resp.Header),
	}
}
