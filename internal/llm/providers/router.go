package providers

import (
	"fmt"

	"github.com/ahrav/go-ptescore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ptescore/internal/llm/errors"
	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

// Provider identifiers served over plain HTTP. Gemini goes through its SDK
// client instead and never reaches this router.
const (
	ProviderOpenAI    = configuration.ProviderOpenAI
	ProviderAnthropic = configuration.ProviderAnthropic
)

// NewRouter creates a router with configured provider adapters. Providers
// without an HTTP adapter are skipped so a shared provider map can be passed
// through unchanged.
func NewRouter(configs map[string]configuration.ProviderConfig) transport.Router {
	adapters := make(map[string]transport.ProviderAdapter, len(configs))

	for name, cfg := range configs {
		switch name {
		case ProviderOpenAI:
			adapters[name] = NewOpenAIAdapter(cfg)
		case ProviderAnthropic:
			adapters[name] = NewAnthropicAdapter(cfg)
		}
	}

	return &router{adapters: adapters}
}

// router is a fixed registry of adapters keyed by provider name.
type router struct {
	adapters map[string]transport.ProviderAdapter
}

// Pick selects the adapter for provider. The model is carried in the
// request body, so it plays no part in selection.
func (r *router) Pick(provider, _ string) (transport.ProviderAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	return adapter, nil
}
