// Package configuration holds provider and transport settings. Values are
// plain data: the composition root fills them from files and environment,
// and nothing in this package reads the environment itself.
package configuration

import (
	"net/http"
	"time"
)

// Canonical provider identifiers. They key Config.Providers and appear in
// provider priority lists.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds the settings for every provider client and the middleware
// stack wrapped around them.
type Config struct {
	// HTTP client configuration
	HTTPTimeout time.Duration `json:"http_timeout"`
	HTTPClient  *http.Client  `json:"-"`

	// Provider configurations keyed by provider identifier
	Providers map[string]ProviderConfig `json:"providers"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Circuit breaker configuration
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`

	// Cache configuration
	Cache CacheConfig `json:"cache"`

	// Observability configuration
	Observability ObservabilityConfig `json:"observability"`
}

// ProviderConfig holds provider-specific configuration and authentication.
type ProviderConfig struct {
	Endpoint  string            `json:"endpoint"`
	APIKey    string            `json:"-"` // Sensitive, not serialized
	APIKeyEnv string            `json:"api_key_env"`
	Model     string            `json:"model"`
	MaxTokens int64             `json:"max_tokens"`
	Timeout   time.Duration     `json:"timeout"`
	Headers   map[string]string `json:"headers"`
}

// HasCredentials reports whether an API key is configured.
func (p ProviderConfig) HasCredentials() bool { return p.APIKey != "" }

// RateLimitConfig controls the in-process token bucket placed in front of
// each provider/model pair.
type RateLimitConfig struct {
	Local LocalRateLimitConfig `json:"local"`
}

// LocalRateLimitConfig for in-memory token buckets.
type LocalRateLimitConfig struct {
	TokensPerSecond float64 `json:"tokens_per_second"`
	BurstSize       int     `json:"burst_size"`
	Enabled         bool    `json:"enabled"`
}

// CircuitBreakerConfig controls the per provider/model breaker. After
// FailureThreshold consecutive provider faults the breaker refuses calls
// for OpenTimeout, then lets a single probe through.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled"`
	FailureThreshold int           `json:"failure_threshold"`
	OpenTimeout      time.Duration `json:"open_timeout"`
}

// CacheConfig controls the optional Redis response cache. Identical prompts
// to the same model reuse the stored completion until TTL expires.
type CacheConfig struct {
	Enabled       bool          `json:"enabled"`
	TTL           time.Duration `json:"ttl"`
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"-"` // Sensitive field excluded from JSON.
	RedisDB       int           `json:"redis_db"`
	KeyPrefix     string        `json:"key_prefix"`
}

// ObservabilityConfig controls structured logging of provider calls.
type ObservabilityConfig struct {
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
	RedactPrompts bool   `json:"redact_prompts"`
}

// Provider returns the configuration for name merged over its defaults.
// ok is false for names with neither defaults nor explicit settings.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	def, known := DefaultProviderConfigs()[name]
	p, set := c.Providers[name]
	if !known && !set {
		return ProviderConfig{}, false
	}
	if p.Endpoint == "" {
		p.Endpoint = def.Endpoint
	}
	if p.Model == "" {
		p.Model = def.Model
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = def.MaxTokens
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = def.APIKeyEnv
	}
	return p, true
}
