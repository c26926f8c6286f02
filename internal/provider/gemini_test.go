package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

type fakeGenerator struct {
	parts []genai.Part
	resp  *genai.GenerateContentResponse
	err   error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func fakeHandler(gen *fakeGenerator, seen **transport.Request) *geminiHandler {
	return &geminiHandler{
		model: func(req *transport.Request) contentGenerator {
			if seen != nil {
				*seen = req
			}
			return gen
		},
		validator: transport.DefaultValidator,
	}
}

func candidate(reason genai.FinishReason, texts ...string) *genai.Candidate {
	c := &genai.Candidate{Content: &genai.Content{Role: "model"}, FinishReason: reason}
	for _, t := range texts {
		c.Content.Parts = append(c.Content.Parts, genai.Text(t))
	}
	return c
}

func TestGeminiHandler_Success(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{candidate(genai.FinishReasonStop, `{"overall": `, `70, "scale": 90}`)},
		UsageMetadata: &genai.UsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 12,
			TotalTokenCount:      132,
		},
	}}
	var seen *transport.Request
	h := fakeHandler(gen, &seen)

	resp, err := h.Handle(context.Background(), &transport.Request{
		Provider: ProviderGemini,
		Model:    "gemini-1.5-flash",
		Prompt:   "score this",
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"overall": 70, "scale": 90}`, resp.Content)
	assert.Equal(t, transport.FinishStop, resp.FinishReason)
	assert.Equal(t, int64(132), resp.Usage.TotalTokens)
	assert.Equal(t, int64(120), resp.Usage.PromptTokens)
	require.Len(t, gen.parts, 1)
	assert.Equal(t, genai.Text("score this"), gen.parts[0])
	assert.Equal(t, "gemini-1.5-flash", seen.Model)
}

func TestGeminiHandler_FinishReasons(t *testing.T) {
	tests := []struct {
		name   string
		reason genai.FinishReason
		want   transport.FinishReason
		errTyp llmerrors.ErrorType
	}{
		{"max_tokens", genai.FinishReasonMaxTokens, transport.FinishLength, ""},
		{"safety", genai.FinishReasonSafety, transport.FinishContentFilter, llmerrors.ErrorTypeContent},
		{"recitation", genai.FinishReasonRecitation, transport.FinishContentFilter, llmerrors.ErrorTypeContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{candidate(tt.reason, `{"overall": 1}`)},
			}}
			resp, err := fakeHandler(gen, nil).Handle(context.Background(), &transport.Request{})
			if tt.errTyp != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errTyp, llmerrors.Classify(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.FinishReason)
		})
	}
}

func TestGeminiHandler_EmptyCandidates(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{}}
	_, err := fakeHandler(gen, nil).Handle(context.Background(), &transport.Request{})
	assert.ErrorIs(t, err, llmerrors.ErrInvalidResponse)
}

func TestGeminiHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want llmerrors.ErrorType
	}{
		{
			name: "blocked",
			err:  &genai.BlockedError{Candidate: &genai.Candidate{FinishReason: genai.FinishReasonSafety}},
			want: llmerrors.ErrorTypeContent,
		},
		{
			name: "rate_limited",
			err:  &googleapi.Error{Code: 429, Message: "Resource has been exhausted"},
			want: llmerrors.ErrorTypeRateLimit,
		},
		{
			name: "bad_key",
			err:  &googleapi.Error{Code: 400, Message: "API key not valid", Errors: []googleapi.ErrorItem{{Reason: "unauthorized"}}},
			want: llmerrors.ErrorTypeAuth,
		},
		{
			name: "server",
			err:  &googleapi.Error{Code: 503, Message: "overloaded"},
			want: llmerrors.ErrorTypeProvider,
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: llmerrors.ErrorTypeTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tt.err}
			_, err := fakeHandler(gen, nil).Handle(context.Background(), &transport.Request{})
			require.Error(t, err)
			assert.Equal(t, tt.want, llmerrors.Classify(err))

			var pe *llmerrors.ProviderError
			if errors.As(err, &pe) {
				assert.Equal(t, ProviderGemini, pe.Provider)
			}
		})
	}
}

func TestGeminiHandler_ThroughChatProvider(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{candidate(genai.FinishReasonStop, "```json\n{\"overall\": 63, \"scale\": 90}\n```")},
	}}
	p := NewChatProvider(ProviderGemini, "gemini-1.5-flash", 0, fakeHandler(gen, nil))

	res := Call(context.Background(), 0, p.Name(), func(ctx context.Context) (domain.RawProviderScore, error) {
		return p.ScoreWriting(ctx, WritingInput{Text: "text"})
	})
	require.True(t, res.OK())
	assert.Equal(t, 63.0, *res.Score.Overall)
}

func TestNewGeminiFactory_NoKey(t *testing.T) {
	f := NewGeminiFactory(configuration.ProviderConfig{APIKeyEnv: "GEMINI_API_KEY"}, nil)
	_, err := f(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestFirstText(t *testing.T) {
	assert.Empty(t, firstText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		nil,
		{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}},
		candidate(genai.FinishReasonStop, "second"),
	}}
	assert.Equal(t, "second", firstText(resp))
}
