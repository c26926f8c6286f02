package normalize

import (
	"strings"

	"github.com/ahrav/go-ptescore/internal/domain"
)

// AllProvidersFailedRationale is attached when no attempt produced a score.
const AllProvidersFailedRationale = "all providers failed to produce a score"

// MergeProviderScores folds an ordered list of attempts into one result.
//
// Subscores merge per key with the last non-empty attempt winning. Overall
// is the weighted mean of the merged subscores using the section's weights
// from weightsBySection (or the built-in table when nil). Without any
// subscores, the last attempt reporting an overall is clamped instead.
// Rationales are joined with a single space. When nothing usable was seen the
// result scores 0 and carries AllProvidersFailedRationale.
func MergeProviderScores(
	results []domain.RawProviderScore,
	section domain.TestSection,
	weightsBySection map[domain.TestSection]domain.WeightMap,
) domain.ScoringResult {
	merged := make(domain.Subscores)
	var (
		lastOverall *float64
		rationales  []string
		meta        domain.Metadata
	)

	for _, r := range results {
		if r.Meta.Provider != "" {
			meta.Providers = append(meta.Providers, r.Meta.Provider)
		}
		if r.Meta.Error != "" {
			meta.Errors = append(meta.Errors, r.Meta.Error)
		}
		for k, v := range r.Subscores {
			if finite(v) {
				merged[k] = v
			}
		}
		if r.Overall != nil && finite(*r.Overall) {
			lastOverall = r.Overall
		}
		if s := strings.TrimSpace(r.Rationale); s != "" {
			rationales = append(rationales, s)
		}
	}

	out := domain.ScoringResult{
		Subscores: merged,
		Rationale: strings.Join(rationales, " "),
		Metadata:  &meta,
	}

	switch {
	case len(merged) > 0:
		out.Overall = WeightedOverall(merged, sectionWeights(section, weightsBySection))
	case lastOverall != nil:
		out.Overall = ClampTo90(*lastOverall)
	default:
		out.Overall = 0
		out.Rationale = JoinRationale(AllProvidersFailedRationale, out.Rationale)
	}
	return out
}

func sectionWeights(section domain.TestSection, bySection map[domain.TestSection]domain.WeightMap) domain.WeightMap {
	if w, ok := bySection[section]; ok {
		return w
	}
	return domain.DefaultWeights(section)
}

// JoinRationale joins the trimmed non-empty parts with single spaces.
func JoinRationale(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
