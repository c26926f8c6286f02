// Package transport carries scoring prompts to chat-completion providers.
//
// A Request flows through a Handler chain: middlewares (logging, rate
// limiting, caching) wrap the core HTTP handler, which picks a provider
// adapter, builds the vendor request, and parses the reply into a Response.
package transport

import (
	"net/http"
	"time"
)

// OperationType differentiates the kinds of provider calls. It namespaces
// cache keys and labels log lines.
type OperationType string

const (
	// OpScoring asks the model for a JSON score envelope.
	OpScoring OperationType = "scoring"

	// OpRationale asks only for explanatory text on an already graded item.
	OpRationale OperationType = "rationale"

	// OpHealth is a minimal liveness probe.
	OpHealth OperationType = "health"
)

// FinishReason is the normalized reason a model stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolUse       FinishReason = "tool_use"
)

// Request is a provider-neutral chat request.
type Request struct {
	Operation OperationType `json:"operation"`

	// Provider identifies which adapter serves the call.
	Provider string `json:"provider"` // "openai"|"anthropic"

	Model string `json:"model"`

	SystemPrompt string `json:"system_prompt,omitempty"`
	Prompt       string `json:"prompt"`

	MaxTokens   int64   `json:"max_tokens"`
	Temperature float64 `json:"temperature"`

	// JSONMode asks the vendor to constrain output to a JSON object when it
	// supports doing so.
	JSONMode bool `json:"json_mode,omitempty"`

	Timeout   time.Duration     `json:"timeout"`
	RequestID string            `json:"request_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Response is normalized provider output.
type Response struct {
	Content            string          `json:"content"`
	FinishReason       FinishReason    `json:"finish_reason"`
	ProviderRequestIDs []string        `json:"provider_request_ids"`
	Usage              NormalizedUsage `json:"usage"`

	// Cached is set when the response was served from the response cache.
	Cached bool `json:"cached,omitempty"`

	Headers http.Header `json:"-"`
	RawBody []byte      `json:"raw_body,omitempty"`
}

// NormalizedUsage provides consistent usage metrics across providers.
type NormalizedUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}
