// Package ratelimit throttles provider calls with in-process token buckets.
//
// Each provider/model/operation triple gets its own bucket. A call that finds
// its bucket empty is rejected immediately with a RateLimitError rather than
// waiting: the orchestrator treats the rejection as a provider failure and
// moves on to the next provider, which keeps scoring inside its latency
// budget. Buckets that sit idle are reclaimed by a background sweep.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

const (
	// CleanupInterval determines the frequency of stale limiter cleanup.
	CleanupInterval = 1 * time.Hour

	// LimiterTTL defines how long an unused limiter survives before cleanup.
	LimiterTTL = 1 * time.Hour
)

// timedLimiter pairs a token bucket with its last access time so stale
// buckets can be found without locking each one.
type timedLimiter struct {
	limiter *rate.Limiter
	// lastUsed is a Unix nanosecond timestamp.
	lastUsed atomic.Int64
}

// Limiter is a rate limiting middleware with a cleanup lifecycle.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*timedLimiter
	config   configuration.LocalRateLimitConfig
	minTTL   time.Duration

	cleanupMu     sync.Mutex
	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	cleanupDone   sync.WaitGroup

	logger *slog.Logger
}

// New validates cfg and returns a Limiter. Call Start to enable the
// background sweep and Stop to end it.
func New(cfg configuration.LocalRateLimitConfig, logger *slog.Logger) (*Limiter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	// A bucket must outlive its own refill time or cleanup would hand a
	// throttled key a fresh burst.
	minTTL := LimiterTTL
	if cfg.TokensPerSecond > 0 {
		refill := time.Duration(float64(cfg.BurstSize)/cfg.TokensPerSecond*10) * time.Second
		if refill > minTTL {
			minTTL = refill
		}
	}

	return &Limiter{
		limiters: make(map[string]*timedLimiter),
		config:   cfg,
		minTTL:   minTTL,
		logger:   logger.With("component", "ratelimit"),
	}, nil
}

// Middleware returns the transport middleware enforcing the limit.
func (l *Limiter) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if l.config.Enabled {
				if err := l.check(buildKey(req), req.Provider); err != nil {
					l.logger.DebugContext(ctx, "provider call throttled",
						"provider", req.Provider,
						"model", req.Model,
						"request_id", req.RequestID)
					return nil, err
				}
			}
			return next.Handle(ctx, req)
		})
	}
}

// buildKey scopes buckets per provider, model and operation so health probes
// cannot starve scoring calls.
func buildKey(req *transport.Request) string {
	return fmt.Sprintf("%s:%s:%s", req.Provider, req.Model, req.Operation)
}

// check takes a token or reports how long until one is available. A failed
// check does not consume capacity.
func (l *Limiter) check(key, provider string) error {
	limiter := l.getOrCreate(key)
	if limiter.Allow() {
		return nil
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()

	retryAfter := int(math.Ceil(delay.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return &llmerrors.RateLimitError{
		Provider:   provider,
		Limit:      int(l.config.TokensPerSecond),
		RetryAfter: retryAfter,
		LocalLimit: true,
	}
}

// getOrCreate uses double-checked locking so the common path holds only the
// read lock.
func (l *Limiter) getOrCreate(key string) *rate.Limiter {
	now := time.Now().UnixNano()

	l.mu.RLock()
	if tl, ok := l.limiters[key]; ok {
		// Touch under the read lock so CleanupStale cannot delete first.
		tl.lastUsed.Store(now)
		lim := tl.limiter
		l.mu.RUnlock()
		return lim
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if tl, ok := l.limiters[key]; ok {
		tl.lastUsed.Store(now)
		return tl.limiter
	}

	lim := rate.NewLimiter(rate.Limit(l.config.TokensPerSecond), l.config.BurstSize)
	tl := &timedLimiter{limiter: lim}
	tl.lastUsed.Store(now)
	l.limiters[key] = tl
	return lim
}

// CleanupStale removes limiters not used within the minimum TTL before the
// given time.
func (l *Limiter) CleanupStale(before time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := before.Add(-l.minTTL).UnixNano()
	for key, tl := range l.limiters {
		if tl.lastUsed.Load() < cutoff {
			delete(l.limiters, key)
		}
	}
}

// Stats returns a snapshot of limiter state.
func (l *Limiter) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		LocalLimiters: len(l.limiters),
		Enabled:       l.config.Enabled,
	}
}

// Start launches the cleanup goroutine. It is idempotent.
func (l *Limiter) Start() {
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	if l.cleanupTicker != nil {
		return
	}

	l.cleanupStop = make(chan struct{})
	l.cleanupTicker = time.NewTicker(CleanupInterval)
	l.cleanupDone.Add(1)
	go l.cleanupLoop(l.cleanupTicker, l.cleanupStop)

	l.logger.Debug("rate limit cleanup started", "interval", CleanupInterval)
}

// Stop ends the cleanup goroutine and waits for it. It is idempotent.
func (l *Limiter) Stop() {
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	if l.cleanupTicker == nil {
		return
	}

	close(l.cleanupStop)
	l.cleanupTicker.Stop()
	l.cleanupDone.Wait()
	l.cleanupTicker = nil

	l.logger.Debug("rate limit cleanup stopped")
}

func (l *Limiter) cleanupLoop(ticker *time.Ticker, stop <-chan struct{}) {
	defer l.cleanupDone.Done()

	for {
		select {
		case now := <-ticker.C:
			l.CleanupStale(now)
		case <-stop:
			return
		}
	}
}
