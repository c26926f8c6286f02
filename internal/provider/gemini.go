package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/providers"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

// ProviderGemini is the registry name of the Gemini provider.
const ProviderGemini = configuration.ProviderGemini

// contentGenerator is the part of *genai.GenerativeModel the handler uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// geminiHandler is a transport.Handler that talks to Gemini through the SDK
// instead of a hand-built HTTP request, so the shared middleware chain wraps
// Gemini exactly like the HTTP vendors.
type geminiHandler struct {
	model     func(req *transport.Request) contentGenerator
	validator transport.Validator
}

// NewGeminiHandler returns the core handler for client.
func NewGeminiHandler(client *genai.Client) transport.Handler {
	return &geminiHandler{
		model: func(req *transport.Request) contentGenerator {
			m := client.GenerativeModel(req.Model)
			m.SetTemperature(float32(req.Temperature))
			if req.MaxTokens > 0 {
				m.SetMaxOutputTokens(int32(req.MaxTokens))
			}
			if req.JSONMode {
				m.ResponseMIMEType = "application/json"
			}
			if req.SystemPrompt != "" {
				m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
			}
			return m
		},
		validator: transport.DefaultValidator,
	}
}

// Handle implements transport.Handler.
func (h *geminiHandler) Handle(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := h.model(req).GenerateContent(ctx, genai.Text(req.Prompt))
	latency := time.Since(start)
	if err != nil {
		return nil, geminiError(err)
	}

	out := &transport.Response{
		Content:      firstText(resp),
		FinishReason: geminiFinishReason(resp),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = transport.NormalizedUsage{
			PromptTokens:     int64(u.PromptTokenCount),
			CompletionTokens: int64(u.CandidatesTokenCount),
			TotalTokens:      int64(u.TotalTokenCount),
		}
	}
	out.Usage.LatencyMs = latency.Milliseconds()

	if err := h.validator.ValidateProviderResponse(out); err != nil {
		return nil, fmt.Errorf("invalid provider response: %w", err)
	}
	return out, nil
}

// firstText returns the first text part of the first candidate that has one.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func geminiFinishReason(resp *genai.GenerateContentResponse) transport.FinishReason {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return transport.FinishStop
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonMaxTokens:
		return transport.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return transport.FinishContentFilter
	default:
		return transport.FinishStop
	}
}

// geminiError maps SDK errors onto the shared taxonomy.
func geminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &llmerrors.ProviderError{
			Provider: ProviderGemini,
			Message:  blocked.Error(),
			Type:     llmerrors.ErrorTypeContent,
		}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		var reason string
		if len(apiErr.Errors) > 0 {
			reason = apiErr.Errors[0].Reason
		}
		return &llmerrors.ProviderError{
			Provider:   ProviderGemini,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Code:       reason,
			Type:       providers.ClassifyErrorType(apiErr.Code, reason),
		}
	}

	return fmt.Errorf("gemini: %w", err)
}

// GeminiProvider is a ChatProvider backed by the Gemini SDK. It owns its
// SDK client; Close releases it.
type GeminiProvider struct {
	*ChatProvider
	client *genai.Client
}

// Close releases the SDK client.
func (g *GeminiProvider) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// NewGeminiFactory returns a Factory that dials a fresh SDK client per
// provider instance and wraps it in middlewares. Without an API key it
// reports ErrProviderUnavailable before touching the network.
func NewGeminiFactory(cfg configuration.ProviderConfig, middlewares []transport.Middleware, opts ...option.ClientOption) Factory {
	return func(ctx context.Context) (Provider, error) {
		if !cfg.HasCredentials() {
			return nil, fmt.Errorf("%w: %s: no API key configured (set %s)", ErrProviderUnavailable, ProviderGemini, cfg.APIKeyEnv)
		}

		clientOpts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
		if cfg.Endpoint != "" {
			clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
		}
		client, err := genai.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, ProviderGemini, err)
		}

		handler := transport.Chain(NewGeminiHandler(client), middlewares...)
		return &GeminiProvider{
			ChatProvider: NewChatProvider(ProviderGemini, cfg.Model, cfg.MaxTokens, handler),
			client:       client,
		}, nil
	}
}
