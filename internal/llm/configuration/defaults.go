package configuration

import (
	"time"
)

// HTTP and connection constants.
const (
	DefaultHTTPTimeoutSeconds  = 30
	ServerErrorStatusThreshold = 500
)

// Rate limiting constants.
const (
	DefaultTokensPerSecond = 10
	DefaultBurstSize       = 20
)

// Circuit breaker constants.
const (
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 30 * time.Second
)

// Cache constants.
const (
	DefaultCacheTTL       = 24 * time.Hour
	DefaultCacheKeyPrefix = "pte"
)

// Completion budget for a score envelope: a handful of subscores plus a
// short rationale.
const DefaultScoringMaxTokens = 600

// Default models. They favor low-latency tiers since scoring runs under a
// per-call timeout of a few seconds.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultGeminiModel    = "gemini-1.5-flash"
)

// DefaultProviderConfigs returns endpoint, model and credential variable
// defaults for every built-in provider. Credentials themselves are never
// defaulted.
func DefaultProviderConfigs() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		ProviderOpenAI: {
			Endpoint:  "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     DefaultOpenAIModel,
			MaxTokens: DefaultScoringMaxTokens,
		},
		ProviderAnthropic: {
			Endpoint:  "https://api.anthropic.com/v1",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Model:     DefaultAnthropicModel,
			MaxTokens: DefaultScoringMaxTokens,
		},
		ProviderGemini: {
			APIKeyEnv: "GEMINI_API_KEY",
			Model:     DefaultGeminiModel,
			MaxTokens: DefaultScoringMaxTokens,
		},
	}
}

// DefaultConfig returns configuration with sensible defaults. The cache is
// off until a Redis address is supplied.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout: DefaultHTTPTimeoutSeconds * time.Second,
		Providers:   DefaultProviderConfigs(),
		RateLimit: RateLimitConfig{
			Local: LocalRateLimitConfig{
				TokensPerSecond: DefaultTokensPerSecond,
				BurstSize:       DefaultBurstSize,
				Enabled:         true,
			},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: DefaultFailureThreshold,
			OpenTimeout:      DefaultOpenTimeout,
		},
		Cache: CacheConfig{
			Enabled:   false,
			TTL:       DefaultCacheTTL,
			KeyPrefix: DefaultCacheKeyPrefix,
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			LogFormat:     "json",
			RedactPrompts: true,
		},
	}
}
