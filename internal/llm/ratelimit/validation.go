package ratelimit

import (
	"fmt"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
)

// validateConfig rejects negative rates and a burst without a refill rate.
func validateConfig(cfg configuration.LocalRateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.TokensPerSecond < 0 {
		return fmt.Errorf("invalid local rate limit: TokensPerSecond cannot be negative (got %f)", cfg.TokensPerSecond)
	}
	if cfg.BurstSize < 0 {
		return fmt.Errorf("invalid local rate limit: BurstSize cannot be negative (got %d)", cfg.BurstSize)
	}
	if cfg.TokensPerSecond == 0 && cfg.BurstSize > 0 {
		return fmt.Errorf("invalid local rate limit: BurstSize must be 0 when TokensPerSecond is 0")
	}

	return nil
}
