package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrchestratorInput is a single scoring request. It has no identity and is
// discarded once a ScoringResult is produced.
type OrchestratorInput struct {
	Section      TestSection  `validate:"required"`
	QuestionType QuestionType `validate:"required"`
	Payload      Payload      `validate:"required"`

	// IncludeRationale asks providers for explanatory text. On deterministic
	// items this is the only reason a provider is ever called.
	IncludeRationale bool

	// ProviderPriority overrides the configured provider order for this call.
	ProviderPriority []string

	// Timeout overrides the per-provider-call timeout. Zero means default.
	Timeout time.Duration `validate:"min=0"`
}

// Validate checks the envelope and the payload's required fields.
func (in *OrchestratorInput) Validate() error {
	if !in.Section.Valid() {
		return fmt.Errorf("%w: unknown section %q", ErrInvalidInput, in.Section)
	}
	if err := ValidatePayload(in.Payload); err != nil {
		return err
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// ScoreRequest is the wire form of OrchestratorInput used by JSON callers
// (CLI, Temporal activities). The payload stays raw until the section and
// question type pick its variant.
type ScoreRequest struct {
	Section          TestSection     `json:"section"`
	QuestionType     string          `json:"questionType"`
	Payload          json.RawMessage `json:"payload"`
	IncludeRationale bool            `json:"includeRationale,omitempty"`
	ProviderPriority []string        `json:"providerPriority,omitempty"`
	TimeoutMs        int64           `json:"timeoutMs,omitempty"`
}

// Input decodes the request into an OrchestratorInput. Unknown sections have
// already been folded to READING by TestSection's JSON decoding; an empty
// section is folded here the same way.
func (r ScoreRequest) Input() (OrchestratorInput, error) {
	section := r.Section
	if !section.Valid() {
		section = ToTestSection(string(section))
	}
	qt := NormalizeQuestionType(r.QuestionType)
	if qt == "" {
		return OrchestratorInput{}, fmt.Errorf("%w: questionType is required", ErrInvalidInput)
	}
	if r.TimeoutMs < 0 {
		return OrchestratorInput{}, fmt.Errorf("%w: timeoutMs must be >= 0", ErrInvalidInput)
	}

	payload, err := DecodePayload(section, qt, r.Payload)
	if err != nil {
		return OrchestratorInput{}, err
	}

	return OrchestratorInput{
		Section:          section,
		QuestionType:     qt,
		Payload:          payload,
		IncludeRationale: r.IncludeRationale,
		ProviderPriority: r.ProviderPriority,
		Timeout:          time.Duration(r.TimeoutMs) * time.Millisecond,
	}, nil
}
