package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ahrav/go-ptescore/internal/llm/cache"
	"github.com/ahrav/go-ptescore/internal/llm/circuitbreaker"
	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	"github.com/ahrav/go-ptescore/internal/llm/observability"
	"github.com/ahrav/go-ptescore/internal/llm/providers"
	"github.com/ahrav/go-ptescore/internal/llm/ratelimit"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

// NewRegistry wires the default backends.
//
// Every backend shares one middleware stack, outermost first: request id,
// logging, response cache, circuit breaker, local rate limit. OpenAI and Anthropic sit on the
// HTTP handler; Gemini on the SDK handler. The returned stop function
// releases the rate limiter's sweeper, logs the stack's counters and must
// be called on shutdown.
func NewRegistry(ctx context.Context, cfg *configuration.Config, logger *slog.Logger, metrics observability.Metrics) (Registry, func(), error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter, err := ratelimit.New(cfg.RateLimit.Local, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}
	responses := cache.New(ctx, cfg.Cache, nil, logger)
	breakers, err := circuitbreaker.New(cfg.CircuitBreaker, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("circuit breaker: %w", err)
	}
	limiter.Start()

	middlewares := []transport.Middleware{
		transport.NewRequestIDMiddleware(),
		observability.NewLoggingMiddleware(cfg.Observability, logger, metrics),
		responses.Middleware(),
		breakers.Middleware(),
		limiter.Middleware(),
	}

	configs := make(map[string]configuration.ProviderConfig, len(cfg.Providers))
	for _, name := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		if pc, ok := cfg.Provider(name); ok {
			configs[name] = pc
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	httpCore := transport.Chain(
		transport.NewHTTPHandler(client, providers.NewRouter(configs), nil),
		middlewares...,
	)

	reg := Registry{}
	for _, name := range []string{ProviderOpenAI, ProviderAnthropic} {
		if pc, ok := configs[name]; ok {
			reg[name] = NewChatFactory(name, pc, httpCore)
		}
	}
	if pc, ok := configs[ProviderGemini]; ok {
		reg[ProviderGemini] = NewGeminiFactory(pc, middlewares)
	}

	logger.Info("provider registry ready",
		"providers", len(reg),
		"cache_enabled", responses.Enabled(),
		"circuit_breaker_enabled", cfg.CircuitBreaker.Enabled,
		"rate_limit_enabled", cfg.RateLimit.Local.Enabled,
	)
	stop := func() {
		limiter.Stop()
		logStackStats(logger, responses.Stats(), breakers.Stats(), limiter.Stats())
	}
	return reg, stop, nil
}

// logStackStats reports what the shared middleware saw over the registry's
// lifetime.
func logStackStats(logger *slog.Logger, c cache.Stats, cb circuitbreaker.Stats, rl ratelimit.Stats) {
	logger.Info("provider registry closed",
		slog.Group("cache",
			"hits", c.Hits,
			"misses", c.Misses,
			"errors", c.Errors,
			"hit_rate", c.HitRate,
		),
		slog.Group("circuit_breakers",
			"total", cb.Total,
			"open", cb.ByState[circuitbreaker.StateOpen.String()],
			"half_open", cb.ByState[circuitbreaker.StateHalfOpen.String()],
		),
		slog.Group("rate_limit",
			"enabled", rl.Enabled,
			"limiters", rl.LocalLimiters,
		),
	)
}

// Names of the HTTP-backed providers.
const (
	ProviderOpenAI    = providers.ProviderOpenAI
	ProviderAnthropic = providers.ProviderAnthropic
)
