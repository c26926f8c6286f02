// Package observability logs and measures every provider call.
package observability

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

// Metric names.
const (
	MetricRequestsTotal    = "pte.provider.requests.total"
	MetricRequestsSuccess  = "pte.provider.requests.success"
	MetricRequestsErrors   = "pte.provider.requests.errors"
	MetricRequestDuration  = "pte.provider.request.duration_ms"
	MetricTokensTotal      = "pte.provider.tokens.total"
	MetricCacheHits        = "pte.provider.cache.hits"
	responsePreviewMaxSize = 200
)

// Metrics collects counters and histograms with tag dimensions.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrementCounter(string, map[string]string, float64) {}

func (NoOpMetrics) RecordHistogram(string, map[string]string, float64) {}

type loggingMiddleware struct {
	logger        *slog.Logger
	metrics       Metrics
	redactPrompts bool
}

// NewLoggingMiddleware returns a middleware that logs request start and
// outcome and records call metrics. Prompts and completions are logged as
// lengths only when RedactPrompts is set, since they carry candidate
// responses.
func NewLoggingMiddleware(cfg configuration.ObservabilityConfig, logger *slog.Logger, metrics Metrics) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NoOpMetrics{}
	}

	m := &loggingMiddleware{
		logger:        logger.With("component", "provider"),
		metrics:       metrics,
		redactPrompts: cfg.RedactPrompts,
	}
	return m.wrap
}

func (m *loggingMiddleware) wrap(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if req.RequestID == "" {
			req.RequestID = uuid.New().String()
		}

		tags := map[string]string{
			"provider":  req.Provider,
			"model":     req.Model,
			"operation": string(req.Operation),
		}
		if section := req.Metadata["section"]; section != "" {
			tags["section"] = section
		}

		m.logRequest(ctx, req)
		m.metrics.IncrementCounter(MetricRequestsTotal, tags, 1)

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		duration := time.Since(start)

		m.metrics.RecordHistogram(MetricRequestDuration, tags, float64(duration.Milliseconds()))

		if err != nil {
			m.handleError(ctx, req, err, duration, tags)
		} else if resp != nil {
			m.handleSuccess(ctx, req, resp, duration, tags)
		}

		return resp, err
	})
}

func (m *loggingMiddleware) logRequest(ctx context.Context, req *transport.Request) {
	fields := []any{
		"request_id", req.RequestID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"max_tokens", req.MaxTokens,
		"temperature", req.Temperature,
		"timeout_ms", req.Timeout.Milliseconds(),
	}
	for k, v := range req.Metadata {
		fields = append(fields, k, v)
	}

	if m.redactPrompts {
		fields = append(fields,
			"system_prompt_length", len(req.SystemPrompt),
			"prompt_length", len(req.Prompt))
	} else {
		fields = append(fields,
			"system_prompt", req.SystemPrompt,
			"prompt", req.Prompt)
	}

	m.logger.DebugContext(ctx, "provider request started", fields...)
}

func (m *loggingMiddleware) handleError(
	ctx context.Context,
	req *transport.Request,
	err error,
	duration time.Duration,
	tags map[string]string,
) {
	errorType := llmerrors.Classify(err)
	if errorType == "" {
		errorType = llmerrors.ErrorTypeUnknown
	}

	errorTags := maps.Clone(tags)
	errorTags["error_type"] = string(errorType)
	m.metrics.IncrementCounter(MetricRequestsErrors, errorTags, 1)

	m.logger.WarnContext(ctx, "provider request failed",
		"request_id", req.RequestID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"duration_ms", duration.Milliseconds(),
		"error_type", errorType,
		"error", err.Error())
}

func (m *loggingMiddleware) handleSuccess(
	ctx context.Context,
	req *transport.Request,
	resp *transport.Response,
	duration time.Duration,
	tags map[string]string,
) {
	m.metrics.IncrementCounter(MetricRequestsSuccess, tags, 1)
	m.metrics.RecordHistogram(MetricTokensTotal, tags, float64(resp.Usage.TotalTokens))
	if resp.Cached {
		m.metrics.IncrementCounter(MetricCacheHits, tags, 1)
	}

	fields := []any{
		"request_id", req.RequestID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"duration_ms", duration.Milliseconds(),
		"finish_reason", resp.FinishReason,
		"cached", resp.Cached,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"provider_request_ids", strings.Join(resp.ProviderRequestIDs, ","),
	}

	if m.redactPrompts {
		fields = append(fields, "response_length", len(resp.Content))
	} else {
		content := resp.Content
		if len(content) > responsePreviewMaxSize {
			content = content[:responsePreviewMaxSize] + "..."
		}
		fields = append(fields, "response_preview", content)
	}

	m.logger.InfoContext(ctx, "provider request completed", fields...)
}
