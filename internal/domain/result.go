package domain

import (
	"maps"
	"math"
	"time"
)

// MaxScore is the top of the PTE Academic scale.
const MaxScore = 90

// Subscores maps a dimension name ("content", "pronunciation", ...) to a
// 0-90 value. Keys vary by section and question type.
type Subscores map[string]float64

// Clone returns an independent copy. A nil receiver yields an empty map.
func (s Subscores) Clone() Subscores {
	out := make(Subscores, len(s))
	maps.Copy(out, s)
	return out
}

// Strategy names the path that produced a ScoringResult.
type Strategy string

const (
	StrategyDeterministic Strategy = "deterministic"
	StrategyProvider      Strategy = "provider"
	StrategyFallback      Strategy = "fallback"
)

// AttemptMeta records one provider invocation.
type AttemptMeta struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	OK        bool   `json:"ok"`
	ErrorType string `json:"error_type,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Metadata is diagnostic context attached to a ScoringResult. Nothing that
// computes Overall ever reads it.
type Metadata struct {
	RequestID string        `json:"request_id,omitempty"`
	Strategy  Strategy      `json:"strategy,omitempty"`
	Providers []string      `json:"providers,omitempty"`
	Used      string        `json:"used,omitempty"`
	Attempts  []AttemptMeta `json:"attempts,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
	LatencyMs int64         `json:"latency_ms"`
}

// ScoringResult is the canonical scoring output. Overall is always an
// integer in [0, 90]; Subscores is never nil on results built by this module.
type ScoringResult struct {
	Overall   int       `json:"overall"`
	Subscores Subscores `json:"subscores"`
	Rationale string    `json:"rationale,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// ProviderMeta identifies where a RawProviderScore came from.
type ProviderMeta struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model,omitempty"`
	LatencyMs int64     `json:"latency_ms,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// RawProviderScore is a provider's score before normalization into a
// ScoringResult. A nil Overall means the provider did not report one.
type RawProviderScore struct {
	Overall   *float64     `json:"overall,omitempty"`
	Subscores Subscores    `json:"subscores,omitempty"`
	Rationale string       `json:"rationale,omitempty"`
	Meta      ProviderMeta `json:"meta"`
}

// Usable reports whether the score carries a finite overall or at least one
// subscore. Unusable scores count as failed attempts.
func (r RawProviderScore) Usable() bool {
	if r.Overall != nil && !math.IsNaN(*r.Overall) && !math.IsInf(*r.Overall, 0) {
		return true
	}
	return len(r.Subscores) > 0
}

// Float returns a pointer to v, for populating RawProviderScore.Overall.
func Float(v float64) *float64 { return &v }
