// Package provider is the boundary between the orchestrator and external AI
// scoring backends.
//
// Every backend implements Provider: one scoring method per section plus a
// health probe. Backends are built lazily through a Factory so a missing
// credential surfaces as ErrProviderUnavailable at construction time instead
// of as a failure deep inside a call. Call runs a single provider invocation
// under a hard timeout and reports the outcome as a Result value, so callers
// iterate over providers with plain data instead of error unwinding.
package provider

import (
	"context"
	"time"

	"github.com/ahrav/go-ptescore/internal/domain"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
)

// ErrProviderUnavailable is returned by factories whose backend cannot be
// used, most often because no API key is configured.
var ErrProviderUnavailable = llmerrors.ErrProviderUnavailable

// Provider scores one response per call. Implementations must honor ctx;
// Call additionally abandons any call that outlives its timeout.
type Provider interface {
	Name() string
	ScoreSpeaking(ctx context.Context, in SpeakingInput) (domain.RawProviderScore, error)
	ScoreWriting(ctx context.Context, in WritingInput) (domain.RawProviderScore, error)
	ScoreReading(ctx context.Context, in ReadingInput) (domain.RawProviderScore, error)
	ScoreListening(ctx context.Context, in ListeningInput) (domain.RawProviderScore, error)
	Health(ctx context.Context) HealthStatus
}

// Common holds the fields shared by every section input.
type Common struct {
	QuestionType     domain.QuestionType
	Timeout          time.Duration
	IncludeRationale bool
}

// SpeakingInput is a transcribed spoken response.
type SpeakingInput struct {
	Common
	Prompt        string
	ReferenceText string
	Transcript    string
}

// WritingInput is a written response with optional word limits.
type WritingInput struct {
	Common
	Prompt   string
	Text     string
	MinWords int
	MaxWords int
}

// ReadingInput is a reading item. Expected is the answer key when one
// exists; free responses leave it empty.
type ReadingInput struct {
	Common
	Prompt   string
	Passage  string
	Options  []string
	Response string
	Expected string
}

// ListeningInput is a listening item. Transcript is the audio script the
// candidate heard.
type ListeningInput struct {
	Common
	Prompt     string
	Transcript string
	Options    []string
	Response   string
	Expected   string
}

// HealthStatus is the result of a liveness probe.
type HealthStatus struct {
	Provider  string `json:"provider"`
	OK        bool   `json:"ok"`
	Model     string `json:"model,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Factory constructs a Provider. It returns ErrProviderUnavailable, wrapped
// with the reason, when the backend is not usable in this process.
type Factory func(ctx context.Context) (Provider, error)

// Registry maps provider identifiers to factories.
type Registry map[string]Factory

// Static returns a factory that always yields p. Tests and embedders with
// pre-built providers use it.
func Static(p Provider) Factory {
	return func(context.Context) (Provider, error) { return p, nil }
}
