// Package cache provides a Redis-backed response cache for provider calls.
//
// Scoring is deterministic in intent: the same prompt to the same model at
// the same temperature should earn the same score. The cache keys each
// completion by the canonical request hash so re-scoring an attempt reuses
// the earlier completion instead of paying for a fresh one. Redis failures
// never fail a call; the middleware logs and passes the request through.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

const (
	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second
	// Cache writes outlive the request context so a completion that
	// arrived just before cancellation is still stored.
	writeTimeout = 2 * time.Second
)

// Client is the subset of the Redis API the cache needs. *redis.Client
// satisfies it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache is the response cache middleware.
type Cache struct {
	client  Client
	ttl     time.Duration
	prefix  string
	enabled bool

	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// New builds a Cache over client. When client is nil and caching is
// enabled, a Redis client is dialed from cfg; an unreachable server disables
// the cache rather than failing startup.
func New(ctx context.Context, cfg configuration.CacheConfig, client Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cache")

	if client == nil && cfg.Enabled {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: defaultPoolSize,
		})

		pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
		defer cancel()
		if err := rc.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis connection failed, cache disabled", "addr", cfg.RedisAddr, "error", err)
			_ = rc.Close()
			cfg.Enabled = false
		} else {
			client = rc
		}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = configuration.DefaultCacheTTL
	}

	return &Cache{
		client:  client,
		ttl:     ttl,
		prefix:  cfg.KeyPrefix,
		enabled: cfg.Enabled && client != nil,
		logger:  logger,
	}
}

// Enabled reports whether lookups reach Redis.
func (c *Cache) Enabled() bool { return c.enabled }

// Middleware returns the transport middleware. Health probes bypass it.
func (c *Cache) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !c.enabled || req.Operation == transport.OpHealth {
				return next.Handle(ctx, req)
			}

			key, err := c.buildKey(req)
			if err != nil {
				c.logger.WarnContext(ctx, "cache key generation failed", "error", err)
				return next.Handle(ctx, req)
			}

			cached, err := c.get(ctx, key)
			switch {
			case err == nil:
				c.hits.Add(1)
				c.logger.DebugContext(ctx, "cache hit",
					"provider", req.Provider,
					"model", req.Model,
					"operation", req.Operation,
					"request_id", req.RequestID)
				return cached, nil
			case errors.Is(err, redis.Nil):
				c.misses.Add(1)
			default:
				c.errors.Add(1)
				c.logger.WarnContext(ctx, "cache read failed", "error", err)
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}

			if cacheable(resp) {
				if err := c.set(ctx, key, resp); err != nil { //nolint:contextcheck // detached write deadline
					c.errors.Add(1)
					c.logger.WarnContext(ctx, "cache write failed", "error", err)
				}
			}

			return resp, nil
		})
	}
}

func (c *Cache) buildKey(req *transport.Request) (string, error) {
	idem, err := transport.GenerateIdemKey(req)
	if err != nil {
		return "", err
	}
	return transport.CacheKey(c.prefix, req.Operation, idem), nil
}

// cacheable keeps truncated and filtered completions out of the cache so a
// bad answer is not replayed for a full TTL.
func cacheable(resp *transport.Response) bool {
	return resp != nil && resp.Content != "" && resp.FinishReason == transport.FinishStop
}
