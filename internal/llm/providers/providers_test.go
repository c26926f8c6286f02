package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

func scoringRequest(provider string) *transport.Request {
	return &transport.Request{
		Operation:    transport.OpScoring,
		Provider:     provider,
		SystemPrompt: "You are a PTE examiner.",
		Prompt:       "Score this essay.",
		Temperature:  0.2,
		JSONMode:     true,
		RequestID:    "req-1",
	}
}

func TestOpenAIAdapter_Build(t *testing.T) {
	a := NewOpenAIAdapter(configuration.ProviderConfig{
		Endpoint:  "http://example.test/v1/",
		APIKey:    "sk-test",
		Model:     "gpt-4o-mini",
		MaxTokens: 300,
		Headers:   map[string]string{"OpenAI-Organization": "org"},
	})

	httpReq, err := a.Build(context.Background(), scoringRequest(ProviderOpenAI))
	require.NoError(t, err)

	assert.Equal(t, "http://example.test/v1/chat/completions", httpReq.URL.String())
	assert.Equal(t, "Bearer sk-test", httpReq.Header.Get("Authorization"))
	assert.Equal(t, "org", httpReq.Header.Get("OpenAI-Organization"))
	assert.Equal(t, "req-1", httpReq.Header.Get("X-Client-Request-Id"))

	raw, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 300, body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Score this essay.", msgs[1].(map[string]any)["content"])
}

func TestOpenAIAdapter_BuildUnsupportedOperation(t *testing.T) {
	a := NewOpenAIAdapter(configuration.ProviderConfig{})
	_, err := a.Build(context.Background(), &transport.Request{Operation: "embedding"})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestOpenAIAdapter_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		headers    map[string]string
		body       string
		wantErr    bool
		wantType   llmerrors.ErrorType
		wantRetry  int
		wantText   string
		wantFinish transport.FinishReason
	}{
		{
			name:       "success",
			status:     http.StatusOK,
			headers:    map[string]string{"x-request-id": "oa-1"},
			body:       `{"choices":[{"message":{"content":"{\"overall\":70}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
			wantText:   `{"overall":70}`,
			wantFinish: transport.FinishStop,
		},
		{
			name:       "success_truncated",
			status:     http.StatusOK,
			body:       `{"choices":[{"message":{"content":"{\"overall\""},"finish_reason":"length"}]}`,
			wantText:   `{"overall"`,
			wantFinish: transport.FinishLength,
		},
		{
			name:      "failure_rate_limited",
			status:    http.StatusTooManyRequests,
			headers:   map[string]string{"Retry-After": "7"},
			body:      `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`,
			wantErr:   true,
			wantType:  llmerrors.ErrorTypeRateLimit,
			wantRetry: 7,
		},
		{
			name:     "failure_quota",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"message":"no credit","type":"insufficient_quota","code":"insufficient_quota"}}`,
			wantErr:  true,
			wantType: llmerrors.ErrorTypeQuota,
		},
		{
			name:     "failure_bad_key",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"bad key","code":"invalid_api_key"}}`,
			wantErr:  true,
			wantType: llmerrors.ErrorTypeAuth,
		},
		{
			name:     "failure_non_json_error",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantErr:  true,
			wantType: llmerrors.ErrorTypeProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cfg := map[string]configuration.ProviderConfig{
				ProviderOpenAI: {Endpoint: srv.URL + "/v1", APIKey: "k", Model: "m"},
			}
			h := transport.NewHTTPHandler(srv.Client(), NewRouter(cfg), transport.ValidatorFunc(func(*transport.Response) error { return nil }))

			resp, err := h.Handle(context.Background(), scoringRequest(ProviderOpenAI))
			if tt.wantErr {
				var provErr *llmerrors.ProviderError
				require.ErrorAs(t, err, &provErr)
				assert.Equal(t, tt.status, provErr.StatusCode)
				assert.Equal(t, tt.wantType, provErr.Type)
				assert.Equal(t, tt.wantRetry, provErr.RetryAfter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Content)
			assert.Equal(t, tt.wantFinish, resp.FinishReason)
		})
	}
}

func TestOpenAIAdapter_ParseUsage(t *testing.T) {
	a := NewOpenAIAdapter(configuration.ProviderConfig{})
	rec := httptest.NewRecorder()
	rec.Header().Set("x-request-id", "oa-9")
	rec.WriteHeader(http.StatusOK)
	_, _ = rec.WriteString(`{"choices":[{"message":{"content":"x"},"finish_reason":"content_filter"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)

	resp, err := a.Parse(rec.Result())
	require.NoError(t, err)
	assert.Equal(t, transport.FinishContentFilter, resp.FinishReason)
	assert.Equal(t, []string{"oa-9"}, resp.ProviderRequestIDs)
	assert.Equal(t, int64(7), resp.Usage.TotalTokens)
}

func TestAnthropicAdapter_Build(t *testing.T) {
	a := NewAnthropicAdapter(configuration.ProviderConfig{APIKey: "ak", Model: "claude"})

	httpReq, err := a.Build(context.Background(), scoringRequest(ProviderAnthropic))
	require.NoError(t, err)

	assert.Equal(t, "https://api.anthropic.com/v1/messages", httpReq.URL.String())
	assert.Equal(t, "ak", httpReq.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, httpReq.Header.Get("anthropic-version"))

	var body anthropicRequest
	require.NoError(t, json.NewDecoder(httpReq.Body).Decode(&body))
	assert.Equal(t, "claude", body.Model)
	assert.Equal(t, int64(configuration.DefaultScoringMaxTokens), body.MaxTokens)
	assert.Contains(t, body.System, "You are a PTE examiner.")
	assert.Contains(t, body.System, "JSON object")
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)
}

func TestAnthropicAdapter_RoundTrip(t *testing.T) {
	t.Run("success_joins_text_blocks", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/messages", r.URL.Path)
			w.Header().Set("request-id", "an-1")
			_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"overall\":"},{"type":"text","text":"65}"}],"stop_reason":"end_turn","usage":{"input_tokens":4,"output_tokens":6}}`))
		}))
		defer srv.Close()

		h := transport.NewHTTPHandler(srv.Client(), NewRouter(map[string]configuration.ProviderConfig{
			ProviderAnthropic: {Endpoint: srv.URL, APIKey: "k"},
		}), nil)

		resp, err := h.Handle(context.Background(), scoringRequest(ProviderAnthropic))
		require.NoError(t, err)
		assert.Equal(t, `{"overall":65}`, resp.Content)
		assert.Equal(t, int64(10), resp.Usage.TotalTokens)
		assert.Equal(t, []string{"an-1"}, resp.ProviderRequestIDs)
	})

	t.Run("failure_overloaded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(529)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
		}))
		defer srv.Close()

		h := transport.NewHTTPHandler(srv.Client(), NewRouter(map[string]configuration.ProviderConfig{
			ProviderAnthropic: {Endpoint: srv.URL, APIKey: "k"},
		}), nil)

		_, err := h.Handle(context.Background(), scoringRequest(ProviderAnthropic))
		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "Overloaded", provErr.Message)
		assert.Equal(t, llmerrors.ErrorTypeProvider, provErr.Type)
		assert.True(t, llmerrors.IsRetryableError(err))
	})
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(configuration.DefaultProviderConfigs())

	a, err := r.Pick(ProviderOpenAI, "")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, a.Name())

	a, err = r.Pick(ProviderAnthropic, "")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, a.Name())

	_, err = r.Pick(configuration.ProviderGemini, "")
	assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
}

func TestClassifyErrorType(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   llmerrors.ErrorType
	}{
		{http.StatusTooManyRequests, "", llmerrors.ErrorTypeRateLimit},
		{http.StatusTooManyRequests, "insufficient_quota", llmerrors.ErrorTypeQuota},
		{http.StatusBadRequest, "rate_limit_error", llmerrors.ErrorTypeRateLimit},
		{http.StatusUnauthorized, "", llmerrors.ErrorTypeAuth},
		{http.StatusBadRequest, "authentication_error", llmerrors.ErrorTypeAuth},
		{http.StatusForbidden, "", llmerrors.ErrorTypePermission},
		{http.StatusGatewayTimeout, "", llmerrors.ErrorTypeTimeout},
		{http.StatusBadRequest, "invalid_request_error", llmerrors.ErrorTypeValidation},
		{http.StatusInternalServerError, "", llmerrors.ErrorTypeProvider},
		{529, "overloaded_error", llmerrors.ErrorTypeProvider},
		{http.StatusNotFound, "", llmerrors.ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status)+"/"+tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyErrorType(tt.status, tt.code))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, 0, retryAfterSeconds(h))
	h.Set("Retry-After", "12")
	assert.Equal(t, 12, retryAfterSeconds(h))
	h.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	assert.Equal(t, 0, retryAfterSeconds(h))
}
