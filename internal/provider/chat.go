package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

// scoringTemperature keeps grading as repeatable as the vendors allow.
const scoringTemperature = 0

const healthPrompt = `Reply with {"ok": true}.`

// ChatProvider scores through a chat-completion backend reached via a
// transport.Handler chain. The same type serves every vendor; the handler
// decides which wire protocol is spoken.
type ChatProvider struct {
	name      string
	model     string
	maxTokens int64
	handler   transport.Handler
	now       func() time.Time
}

// NewChatProvider returns a provider named name that sends requests for
// model through handler.
func NewChatProvider(name, model string, maxTokens int64, handler transport.Handler) *ChatProvider {
	if maxTokens <= 0 {
		maxTokens = configuration.DefaultScoringMaxTokens
	}
	return &ChatProvider{
		name:      name,
		model:     model,
		maxTokens: maxTokens,
		handler:   handler,
		now:       time.Now,
	}
}

// NewChatFactory returns a Factory for a handler-backed provider. Without
// an API key the factory reports ErrProviderUnavailable and builds nothing.
func NewChatFactory(name string, cfg configuration.ProviderConfig, handler transport.Handler) Factory {
	return func(context.Context) (Provider, error) {
		if !cfg.HasCredentials() {
			return nil, fmt.Errorf("%w: %s: no API key configured (set %s)", ErrProviderUnavailable, name, cfg.APIKeyEnv)
		}
		return NewChatProvider(name, cfg.Model, cfg.MaxTokens, handler), nil
	}
}

// Name implements Provider.
func (p *ChatProvider) Name() string { return p.name }

// Model returns the model identifier sent with each request.
func (p *ChatProvider) Model() string { return p.model }

// ScoreSpeaking implements Provider.
func (p *ChatProvider) ScoreSpeaking(ctx context.Context, in SpeakingInput) (domain.RawProviderScore, error) {
	prompt, err := SpeakingPrompt(in)
	if err != nil {
		return p.failed(err), err
	}
	return p.score(ctx, domain.SectionSpeaking, in.Common, prompt)
}

// ScoreWriting implements Provider.
func (p *ChatProvider) ScoreWriting(ctx context.Context, in WritingInput) (domain.RawProviderScore, error) {
	prompt, err := WritingPrompt(in)
	if err != nil {
		return p.failed(err), err
	}
	return p.score(ctx, domain.SectionWriting, in.Common, prompt)
}

// ScoreReading implements Provider.
func (p *ChatProvider) ScoreReading(ctx context.Context, in ReadingInput) (domain.RawProviderScore, error) {
	prompt, err := ReadingPrompt(in)
	if err != nil {
		return p.failed(err), err
	}
	return p.score(ctx, domain.SectionReading, in.Common, prompt)
}

// ScoreListening implements Provider.
func (p *ChatProvider) ScoreListening(ctx context.Context, in ListeningInput) (domain.RawProviderScore, error) {
	prompt, err := ListeningPrompt(in)
	if err != nil {
		return p.failed(err), err
	}
	return p.score(ctx, domain.SectionListening, in.Common, prompt)
}

func (p *ChatProvider) score(ctx context.Context, section domain.TestSection, c Common, prompt Prompt) (domain.RawProviderScore, error) {
	req := &transport.Request{
		Operation:    transport.OpScoring,
		Provider:     p.name,
		Model:        p.model,
		SystemPrompt: prompt.System,
		Prompt:       prompt.User,
		MaxTokens:    p.maxTokens,
		Temperature:  scoringTemperature,
		JSONMode:     true,
		Timeout:      c.Timeout,
		RequestID:    transport.RequestIDFromContext(ctx),
		Metadata: map[string]string{
			"section":       section.String(),
			"question_type": string(c.QuestionType),
		},
	}

	resp, err := p.handler.Handle(ctx, req)
	if err != nil {
		return p.failed(err), err
	}

	raw := ParseRawScore(resp.Content)
	raw.Meta.Provider = p.name
	raw.Meta.Model = p.model
	raw.Meta.LatencyMs = resp.Usage.LatencyMs
	raw.Meta.Timestamp = p.now().UTC()
	if !c.IncludeRationale {
		raw.Rationale = ""
	}
	return raw, nil
}

func (p *ChatProvider) failed(err error) domain.RawProviderScore {
	return domain.RawProviderScore{Meta: domain.ProviderMeta{
		Provider:  p.name,
		Model:     p.model,
		Timestamp: p.now().UTC(),
		Error:     err.Error(),
	}}
}

// Health sends a minimal completion and reports whether it came back.
func (p *ChatProvider) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Provider: p.name, Model: p.model}
	start := p.now()
	resp, err := p.handler.Handle(ctx, &transport.Request{
		Operation: transport.OpHealth,
		Provider:  p.name,
		Model:     p.model,
		Prompt:    healthPrompt,
		MaxTokens: 16,
		JSONMode:  true,
		RequestID: transport.RequestIDFromContext(ctx),
	})
	status.LatencyMs = p.now().Sub(start).Milliseconds()
	switch {
	case err != nil:
		status.Error = err.Error()
	case strings.TrimSpace(resp.Content) == "":
		status.Error = "empty health response"
	default:
		status.OK = true
	}
	return status
}
