// Package config is the composition root's view of the environment. It is
// the only package that reads configuration files or environment variables;
// everything below it receives plain structs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	"github.com/ahrav/go-ptescore/internal/orchestrator"
)

// EnvPrefix prefixes every environment override, e.g. PTE_TIMEOUT_MS or
// PTE_OPENAI_MODEL.
const EnvPrefix = "PTE"

// DefaultConfigName is looked up in the working directory when no explicit
// file is given. Any extension viper understands is accepted.
const DefaultConfigName = "ptescore"

// Config is the full service configuration.
type Config struct {
	// ProviderPriority and SectionPriority accept a YAML list or a comma
	// separated string, so PTE_PROVIDER_PRIORITY=gemini,openai works too.
	ProviderPriority         []string            `mapstructure:"provider_priority"`
	SectionPriority          map[string][]string `mapstructure:"section_priority"`
	TimeoutMs                int                 `mapstructure:"timeout_ms"`
	MergeEnrichmentSubscores bool                `mapstructure:"merge_enrichment_subscores"`
	HTTPTimeout              time.Duration       `mapstructure:"http_timeout"`

	OpenAI    ProviderSettings `mapstructure:"openai"`
	Anthropic ProviderSettings `mapstructure:"anthropic"`
	Gemini    ProviderSettings `mapstructure:"gemini"`

	RateLimit      RateLimitSettings      `mapstructure:"ratelimit"`
	CircuitBreaker CircuitBreakerSettings `mapstructure:"circuit_breaker"`
	Cache          CacheSettings          `mapstructure:"cache"`
	Temporal       TemporalSettings       `mapstructure:"temporal"`
	Log            LogSettings            `mapstructure:"log"`
}

// ProviderSettings configures one vendor. APIKey wins over APIKeyEnv, which
// names the variable to read the key from.
type ProviderSettings struct {
	APIKey    string `mapstructure:"api_key"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	Model     string `mapstructure:"model"`
	Endpoint  string `mapstructure:"endpoint"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// RateLimitSettings configures the local token bucket.
type RateLimitSettings struct {
	Enabled         bool    `mapstructure:"enabled"`
	TokensPerSecond float64 `mapstructure:"tokens_per_second"`
	Burst           int     `mapstructure:"burst"`
}

// CircuitBreakerSettings configures the per provider/model breaker.
type CircuitBreakerSettings struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// CacheSettings configures the Redis response cache.
type CacheSettings struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

// TemporalSettings locates the Temporal frontend for the worker.
type TemporalSettings struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	RedactPrompts bool   `mapstructure:"redact_prompts"`
}

// Load reads defaults, then the config file, then PTE_* environment
// variables. An explicit path must exist; the default ptescore file is
// optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.resolveKeys(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	llm := configuration.DefaultConfig()
	providers := configuration.DefaultProviderConfigs()

	v.SetDefault("provider_priority", "")
	v.SetDefault("section_priority", map[string][]string{})
	v.SetDefault("timeout_ms", orchestrator.DefaultTimeout.Milliseconds())
	v.SetDefault("merge_enrichment_subscores", false)
	v.SetDefault("http_timeout", llm.HTTPTimeout)

	for _, name := range []string{configuration.ProviderOpenAI, configuration.ProviderAnthropic, configuration.ProviderGemini} {
		p := providers[name]
		v.SetDefault(name+".api_key", "")
		v.SetDefault(name+".api_key_env", p.APIKeyEnv)
		v.SetDefault(name+".model", p.Model)
		v.SetDefault(name+".endpoint", p.Endpoint)
		v.SetDefault(name+".max_tokens", p.MaxTokens)
	}

	v.SetDefault("ratelimit.enabled", llm.RateLimit.Local.Enabled)
	v.SetDefault("ratelimit.tokens_per_second", llm.RateLimit.Local.TokensPerSecond)
	v.SetDefault("ratelimit.burst", llm.RateLimit.Local.BurstSize)

	v.SetDefault("circuit_breaker.enabled", llm.CircuitBreaker.Enabled)
	v.SetDefault("circuit_breaker.failure_threshold", llm.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.open_timeout", llm.CircuitBreaker.OpenTimeout)

	v.SetDefault("cache.enabled", llm.Cache.Enabled)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", llm.Cache.TTL)
	v.SetDefault("cache.key_prefix", llm.Cache.KeyPrefix)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "pte-scoring")

	v.SetDefault("log.level", llm.Observability.LogLevel)
	v.SetDefault("log.format", llm.Observability.LogFormat)
	v.SetDefault("log.redact_prompts", llm.Observability.RedactPrompts)
}

// resolveKeys fills missing API keys from the variables their settings name.
func (c *Config) resolveKeys(getenv func(string) string) {
	for _, p := range []*ProviderSettings{&c.OpenAI, &c.Anthropic, &c.Gemini} {
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = getenv(p.APIKeyEnv)
		}
	}
}

// Validate rejects settings that would fail later in a less obvious way.
func (c *Config) Validate() error {
	if c.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must be >= 0, got %d", c.TimeoutMs)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return errors.New("cache.enabled requires cache.redis_addr")
	}
	if c.RateLimit.Enabled && (c.RateLimit.TokensPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("ratelimit.tokens_per_second and ratelimit.burst must be positive")
	}
	if c.CircuitBreaker.Enabled && (c.CircuitBreaker.FailureThreshold <= 0 || c.CircuitBreaker.OpenTimeout <= 0) {
		return errors.New("circuit_breaker.failure_threshold and circuit_breaker.open_timeout must be positive")
	}
	return nil
}

// LLM builds the provider and middleware configuration.
func (c *Config) LLM() *configuration.Config {
	out := configuration.DefaultConfig()
	if c.HTTPTimeout > 0 {
		out.HTTPTimeout = c.HTTPTimeout
	}
	out.Providers = map[string]configuration.ProviderConfig{
		configuration.ProviderOpenAI:    c.OpenAI.provider(),
		configuration.ProviderAnthropic: c.Anthropic.provider(),
		configuration.ProviderGemini:    c.Gemini.provider(),
	}
	out.RateLimit.Local = configuration.LocalRateLimitConfig{
		Enabled:         c.RateLimit.Enabled,
		TokensPerSecond: c.RateLimit.TokensPerSecond,
		BurstSize:       c.RateLimit.Burst,
	}
	out.CircuitBreaker = configuration.CircuitBreakerConfig{
		Enabled:          c.CircuitBreaker.Enabled,
		FailureThreshold: c.CircuitBreaker.FailureThreshold,
		OpenTimeout:      c.CircuitBreaker.OpenTimeout,
	}
	out.Cache = configuration.CacheConfig{
		Enabled:       c.Cache.Enabled,
		TTL:           c.Cache.TTL,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		KeyPrefix:     c.Cache.KeyPrefix,
	}
	out.Observability = c.Observability()
	return out
}

// Observability returns the logging settings in the form the logger wants.
func (c *Config) Observability() configuration.ObservabilityConfig {
	return configuration.ObservabilityConfig{
		LogLevel:      c.Log.Level,
		LogFormat:     strings.ToLower(c.Log.Format),
		RedactPrompts: c.Log.RedactPrompts,
	}
}

func (p ProviderSettings) provider() configuration.ProviderConfig {
	return configuration.ProviderConfig{
		Endpoint:  p.Endpoint,
		APIKey:    p.APIKey,
		APIKeyEnv: p.APIKeyEnv,
		Model:     p.Model,
		MaxTokens: p.MaxTokens,
	}
}

// Orchestrator builds the orchestrator configuration. Section labels are
// matched loosely, so "speaking" and "S" both select SPEAKING.
func (c *Config) Orchestrator() orchestrator.Config {
	out := orchestrator.Config{
		ProviderPriority:         parseList(c.ProviderPriority),
		Timeout:                  time.Duration(c.TimeoutMs) * time.Millisecond,
		MergeEnrichmentSubscores: c.MergeEnrichmentSubscores,
	}
	for label, list := range c.SectionPriority {
		names := parseList(list)
		if len(names) == 0 {
			continue
		}
		if out.SectionPriority == nil {
			out.SectionPriority = map[domain.TestSection][]string{}
		}
		out.SectionPriority[domain.ToTestSection(label)] = names
	}
	return out
}

// parseList normalizes a decoded provider list. Entries may themselves hold
// commas when a YAML list mixes both forms.
func parseList(list []string) []string {
	return orchestrator.ParsePriority(strings.Join(list, ","))
}
