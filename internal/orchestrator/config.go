package orchestrator

import (
	"slices"
	"strings"
	"time"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/llm/configuration"
)

// DefaultTimeout bounds a single provider call when neither the input nor
// the configuration sets one.
const DefaultTimeout = 8000 * time.Millisecond

// Section defaults: conversational models lead for open-ended speaking and
// writing, the fast extraction model leads for reading and listening.
var (
	conversationalFirst = []string{configuration.ProviderOpenAI, configuration.ProviderAnthropic, configuration.ProviderGemini}
	extractionFirst     = []string{configuration.ProviderGemini, configuration.ProviderOpenAI, configuration.ProviderAnthropic}
)

// DefaultSectionPriority returns the built-in provider order for section.
func DefaultSectionPriority(section domain.TestSection) []string {
	switch section {
	case domain.SectionSpeaking, domain.SectionWriting:
		return slices.Clone(conversationalFirst)
	default:
		return slices.Clone(extractionFirst)
	}
}

// Config is the orchestrator's startup configuration. It is plain data;
// whoever builds it owns reading the environment.
type Config struct {
	// ProviderPriority is the default provider order for every section.
	// Empty defers to SectionPriority and then to DefaultSectionPriority.
	ProviderPriority []string

	// Timeout bounds each provider call. Zero selects DefaultTimeout.
	Timeout time.Duration

	// SectionPriority overrides the built-in order per section.
	SectionPriority map[domain.TestSection][]string

	// Weights overrides the default subscore weights per section.
	Weights map[domain.TestSection]domain.WeightMap

	// MergeEnrichmentSubscores lets a rationale provider contribute
	// subscores to a deterministic result. Deterministic keys always win.
	MergeEnrichmentSubscores bool
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout}
}

// ParsePriority splits a comma-separated provider list as found in
// environment variables.
func ParsePriority(s string) []string {
	return normalizeNames(strings.Split(s, ","))
}

// normalizeNames lower-cases and trims names, dropping blanks and repeats
// while keeping first-seen order.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// priority resolves the provider order for in: the input's own list, then
// the configured default, then the configured section order, then the
// built-in section order. The first non-empty list wins.
func (c Config) priority(in domain.OrchestratorInput) []string {
	for _, list := range [][]string{in.ProviderPriority, c.ProviderPriority, c.SectionPriority[in.Section]} {
		if names := normalizeNames(list); len(names) > 0 {
			return names
		}
	}
	return DefaultSectionPriority(in.Section)
}

func (c Config) timeout(in domain.OrchestratorInput) time.Duration {
	switch {
	case in.Timeout > 0:
		return in.Timeout
	case c.Timeout > 0:
		return c.Timeout
	default:
		return DefaultTimeout
	}
}

func (c Config) weights(section domain.TestSection) domain.WeightMap {
	if w, ok := c.Weights[section]; ok && len(w) > 0 {
		return w
	}
	return domain.DefaultWeights(section)
}
