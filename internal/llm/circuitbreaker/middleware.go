package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

var (
	errThresholdInvalid   = errors.New("failure threshold must be greater than 0")
	errOpenTimeoutInvalid = errors.New("open timeout must be greater than 0")
)

// Breakers holds one breaker per provider/model pair.
type Breakers struct {
	mu       sync.Mutex
	breakers map[string]*breaker
	config   configuration.CircuitBreakerConfig
	now      func() time.Time
	logger   *slog.Logger
}

// New validates cfg and returns an empty breaker set.
func New(cfg configuration.CircuitBreakerConfig, logger *slog.Logger) (*Breakers, error) {
	if cfg.Enabled {
		if cfg.FailureThreshold <= 0 {
			return nil, fmt.Errorf("%w, got %d", errThresholdInvalid, cfg.FailureThreshold)
		}
		if cfg.OpenTimeout <= 0 {
			return nil, fmt.Errorf("%w, got %v", errOpenTimeoutInvalid, cfg.OpenTimeout)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breakers{
		breakers: make(map[string]*breaker),
		config:   cfg,
		now:      time.Now,
		logger:   logger.With("component", "circuitbreaker"),
	}, nil
}

// Middleware returns the transport middleware enforcing the breakers.
// Health probes bypass it so an operator can always see the real state of a
// provider.
func (b *Breakers) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !b.config.Enabled || req.Operation == transport.OpHealth {
				return next.Handle(ctx, req)
			}

			key := breakerKey(req)
			cb := b.get(key)
			ok, probe := cb.allow(b.now())
			if !ok {
				b.logger.DebugContext(ctx, "provider call refused by open circuit",
					"provider", req.Provider,
					"model", req.Model,
					"request_id", req.RequestID)
				return nil, fmt.Errorf("%w: %s", llmerrors.ErrCircuitOpen, key)
			}

			resp, err := next.Handle(ctx, req)
			if err != nil && !countsAsFault(err) {
				cb.release(probe)
				return resp, err
			}

			if from, to := cb.record(b.now(), err != nil); from != to {
				b.logger.InfoContext(ctx, "circuit breaker state transition",
					"provider", req.Provider,
					"model", req.Model,
					"from", from.String(),
					"to", to.String())
			}
			return resp, err
		})
	}
}

// State returns the state of the provider/model breaker. Unknown pairs are
// closed.
func (b *Breakers) State(provider, model string) State {
	b.mu.Lock()
	cb, ok := b.breakers[provider+":"+model]
	b.mu.Unlock()
	if !ok {
		return StateClosed
	}
	return cb.current()
}

// Stats counts breakers by state.
func (b *Breakers) Stats() Stats {
	b.mu.Lock()
	list := make([]*breaker, 0, len(b.breakers))
	for _, cb := range b.breakers {
		list = append(list, cb)
	}
	b.mu.Unlock()

	stats := Stats{Total: len(list), ByState: map[string]int{}}
	for _, cb := range list {
		stats.ByState[cb.current().String()]++
	}
	return stats
}

// Stats summarizes breaker states for monitoring.
type Stats struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
}

func (b *Breakers) get(key string) *breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.breakers[key]
	if !ok {
		cb = &breaker{threshold: b.config.FailureThreshold, openTimeout: b.config.OpenTimeout}
		b.breakers[key] = cb
	}
	return cb
}

func breakerKey(req *transport.Request) string {
	return req.Provider + ":" + req.Model
}

// countsAsFault reports whether err says something about provider health.
// Caller cancellations, local throttling and bad output do not: the
// provider was either never reached or answered.
func countsAsFault(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var rl *llmerrors.RateLimitError
	if errors.As(err, &rl) && rl.LocalLimit {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return llmerrors.IsRetryableError(err)
}
