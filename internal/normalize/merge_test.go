package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ptescore/internal/domain"
)

func raw(provider string, overall *float64, subs domain.Subscores, rationale, errMsg string) domain.RawProviderScore {
	return domain.RawProviderScore{
		Overall:   overall,
		Subscores: subs,
		Rationale: rationale,
		Meta:      domain.ProviderMeta{Provider: provider, Error: errMsg},
	}
}

func TestMergeProviderScores_LastNonEmptyWins(t *testing.T) {
	results := []domain.RawProviderScore{
		raw("openai", nil, domain.Subscores{"content": 30, "grammar": 60}, "first.", ""),
		raw("anthropic", nil, nil, "", "timeout"),
		raw("gemini", nil, domain.Subscores{"content": 90}, "third.", ""),
	}

	got := MergeProviderScores(results, domain.SectionReading, nil)

	assert.Equal(t, domain.Subscores{"content": 90, "grammar": 60}, got.Subscores)
	// reading weights: content .50, grammar .25 -> (45 + 15) / .75
	assert.Equal(t, 80, got.Overall)
	assert.Equal(t, "first. third.", got.Rationale)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, []string{"openai", "anthropic", "gemini"}, got.Metadata.Providers)
	assert.Equal(t, []string{"timeout"}, got.Metadata.Errors)
}

func TestMergeProviderScores_UsesSuppliedWeights(t *testing.T) {
	results := []domain.RawProviderScore{
		raw("p", nil, domain.Subscores{"a": 90, "b": 0}, "", ""),
	}
	weights := map[domain.TestSection]domain.WeightMap{
		domain.SectionWriting: {"a": 1, "b": 0},
	}

	got := MergeProviderScores(results, domain.SectionWriting, weights)
	assert.Equal(t, 90, got.Overall)
}

func TestMergeProviderScores_OverallOnly(t *testing.T) {
	results := []domain.RawProviderScore{
		raw("a", domain.Float(40), nil, "", ""),
		raw("b", domain.Float(math.NaN()), nil, "", ""),
		raw("c", domain.Float(77.6), nil, "ok", ""),
		raw("d", nil, nil, "", "boom"),
	}

	got := MergeProviderScores(results, domain.SectionSpeaking, nil)

	assert.Equal(t, 78, got.Overall)
	assert.Empty(t, got.Subscores)
	assert.Equal(t, "ok", got.Rationale)
}

func TestMergeProviderScores_TotalFailure(t *testing.T) {
	tests := []struct {
		name    string
		results []domain.RawProviderScore
		want    string
	}{
		{
			name:    "no_attempts",
			results: nil,
			want:    AllProvidersFailedRationale,
		},
		{
			name: "all_empty",
			results: []domain.RawProviderScore{
				raw("openai", nil, nil, "", "missing key"),
				raw("gemini", nil, domain.Subscores{}, "", "bad json"),
			},
			want: AllProvidersFailedRationale,
		},
		{
			name: "rationale_without_score_is_kept",
			results: []domain.RawProviderScore{
				raw("openai", nil, nil, "could not judge", ""),
			},
			want: AllProvidersFailedRationale + " could not judge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeProviderScores(tt.results, domain.SectionWriting, nil)
			assert.Equal(t, 0, got.Overall)
			assert.NotNil(t, got.Subscores)
			assert.Empty(t, got.Subscores)
			assert.Equal(t, tt.want, got.Rationale)
		})
	}
}

func TestMergeProviderScores_DoesNotAliasInputs(t *testing.T) {
	subs := domain.Subscores{"content": 50}
	got := MergeProviderScores([]domain.RawProviderScore{raw("p", nil, subs, "", "")}, domain.SectionReading, nil)
	got.Subscores["content"] = 1
	assert.InDelta(t, 50.0, subs["content"], 0)
}

func TestJoinRationale(t *testing.T) {
	assert.Equal(t, "a b", JoinRationale(" a ", "", "  ", "b"))
	assert.Equal(t, "", JoinRationale())
}
