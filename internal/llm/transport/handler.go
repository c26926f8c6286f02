package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
)

// Router selects the provider adapter for a request.
type Router interface {
	Pick(provider, model string) (ProviderAdapter, error)
}

// ProviderAdapter abstracts provider-specific HTTP communication patterns.
type ProviderAdapter interface {
	Build(ctx context.Context, req *Request) (*http.Request, error)
	Parse(httpResp *http.Response) (*Response, error)
	Name() string
}

// Validator checks a parsed provider response before it leaves the handler.
type Validator interface {
	ValidateProviderResponse(resp *Response) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(*Response) error

// ValidateProviderResponse implements Validator.
func (f ValidatorFunc) ValidateProviderResponse(resp *Response) error { return f(resp) }

// DefaultValidator rejects empty and content-filtered completions.
var DefaultValidator Validator = ValidatorFunc(func(resp *Response) error {
	if resp == nil {
		return llmerrors.ErrInvalidResponse
	}
	if resp.FinishReason == FinishContentFilter {
		return &llmerrors.ProviderError{
			Message: "completion blocked by content filter",
			Type:    llmerrors.ErrorTypeContent,
		}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return fmt.Errorf("%w: empty content", llmerrors.ErrInvalidResponse)
	}
	return nil
})

// Handler processes requests through a composable middleware pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// NewHTTPHandler creates the core handler that makes the actual HTTP call.
// A nil validator selects DefaultValidator.
func NewHTTPHandler(client *http.Client, router Router, validator Validator) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	if validator == nil {
		validator = DefaultValidator
	}
	return &httpHandler{
		client:    client,
		router:    router,
		validator: validator,
	}
}

type httpHandler struct {
	client    *http.Client
	router    Router
	validator Validator
}

// Handle implements Handler by making HTTP requests to providers.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	adapter, err := h.router.Pick(req.Provider, req.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to select provider: %w", err)
	}

	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp, err := adapter.Parse(httpResp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	resp.Usage.LatencyMs = latency.Milliseconds()

	if err := h.validator.ValidateProviderResponse(resp); err != nil {
		return nil, fmt.Errorf("invalid provider response: %w", err)
	}

	return resp, nil
}
