package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
)

// openAIStub serves chat/completions. While failing is set it answers 503.
type openAIStub struct {
	calls   atomic.Int32
	failing atomic.Bool
}

func (s *openAIStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
		http.Error(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}
	if s.failing.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprint(w, `{"id":"c1","choices":[{"message":{"content":"{\"overall\":72,\"scale\":90,\"subscores\":{\"content\":70}}"},"finish_reason":"stop"}],"usage":{"total_tokens":20}}`)
}

func testRegistryConfig(endpoint string) *configuration.Config {
	cfg := configuration.DefaultConfig()
	cfg.Providers = map[string]configuration.ProviderConfig{
		configuration.ProviderOpenAI: {APIKey: "sk-test", Endpoint: endpoint},
	}
	cfg.CircuitBreaker = configuration.CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute}
	return cfg
}

func newTestRegistry(t *testing.T, cfg *configuration.Config) Registry {
	t.Helper()
	reg, stop, err := NewRegistry(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	t.Cleanup(stop)
	return reg
}

func essay() WritingInput {
	return WritingInput{Common: Common{QuestionType: domain.QTWriteEssay}, Text: "An essay about cities."}
}

func TestNewRegistry_ScoresThroughHTTPStack(t *testing.T) {
	stub := &openAIStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	reg := newTestRegistry(t, testRegistryConfig(srv.URL))
	require.Contains(t, reg, ProviderOpenAI)
	require.Contains(t, reg, ProviderAnthropic)
	require.Contains(t, reg, ProviderGemini)

	p, err := reg[ProviderOpenAI](context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())

	raw, err := p.ScoreWriting(context.Background(), essay())
	require.NoError(t, err)
	require.NotNil(t, raw.Overall)
	assert.InDelta(t, 72, *raw.Overall, 1e-9)
	assert.InDelta(t, 70, raw.Subscores["content"], 1e-9)
	assert.Equal(t, ProviderOpenAI, raw.Meta.Provider)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestNewRegistry_MissingKeysUnavailable(t *testing.T) {
	reg := newTestRegistry(t, testRegistryConfig("http://127.0.0.1:1"))
	for _, name := range []string{ProviderAnthropic, ProviderGemini} {
		_, err := reg[name](context.Background())
		assert.True(t, errors.Is(err, ErrProviderUnavailable), name)
	}
}

func TestNewRegistry_CircuitOpensOnProviderFaults(t *testing.T) {
	stub := &openAIStub{}
	stub.failing.Store(true)
	srv := httptest.NewServer(stub)
	defer srv.Close()

	reg := newTestRegistry(t, testRegistryConfig(srv.URL))
	p, err := reg[ProviderOpenAI](context.Background())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := p.ScoreWriting(context.Background(), essay())
		require.Error(t, err)
		assert.Equal(t, llmerrors.ErrorTypeProvider, llmerrors.Classify(err))
	}

	_, err = p.ScoreWriting(context.Background(), essay())
	require.ErrorIs(t, err, llmerrors.ErrCircuitOpen)
	assert.Equal(t, int32(2), stub.calls.Load())

	status := p.Health(context.Background())
	assert.False(t, status.OK)
	assert.Equal(t, int32(3), stub.calls.Load(), "health probes bypass the breaker")
}

func TestNewRegistry_StopLogsStackStats(t *testing.T) {
	stub := &openAIStub{}
	stub.failing.Store(true)
	srv := httptest.NewServer(stub)
	defer srv.Close()

	var buf bytes.Buffer
	reg, stop, err := NewRegistry(context.Background(), testRegistryConfig(srv.URL), slog.New(slog.NewJSONHandler(&buf, nil)), nil)
	require.NoError(t, err)

	p, err := reg[ProviderOpenAI](context.Background())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := p.ScoreWriting(context.Background(), essay())
		require.Error(t, err)
	}
	buf.Reset()
	stop()

	var entry struct {
		Msg      string `json:"msg"`
		Breakers struct {
			Total int `json:"total"`
			Open  int `json:"open"`
		} `json:"circuit_breakers"`
	}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		require.NoError(t, json.Unmarshal(line, &entry), string(line))
		if entry.Msg == "provider registry closed" {
			break
		}
	}
	require.Equal(t, "provider registry closed", entry.Msg, buf.String())
	assert.Equal(t, 1, entry.Breakers.Total)
	assert.Equal(t, 1, entry.Breakers.Open)
}

func TestNewRegistry_InvalidBreakerConfig(t *testing.T) {
	cfg := testRegistryConfig("http://127.0.0.1:1")
	cfg.CircuitBreaker.FailureThreshold = 0
	_, _, err := NewRegistry(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
