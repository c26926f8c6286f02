package normalize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-ptescore/internal/domain"
)

func TestWeightedOverall(t *testing.T) {
	tests := []struct {
		name      string
		subscores domain.Subscores
		weights   domain.WeightMap
		want      int
	}{
		{
			name:      "empty_subscores",
			subscores: domain.Subscores{},
			weights:   domain.WeightMap{"a": 1},
			want:      0,
		},
		{
			name:      "nil_subscores",
			subscores: nil,
			want:      0,
		},
		{
			name:      "empty_weights_fall_back_to_mean",
			subscores: domain.Subscores{"a": 90, "b": 60, "c": 30},
			weights:   domain.WeightMap{},
			want:      60,
		},
		{
			name:      "nil_weights_fall_back_to_mean",
			subscores: domain.Subscores{"a": 90, "b": 60, "c": 30},
			want:      60,
		},
		{
			name:      "weighted",
			subscores: domain.Subscores{"a": 90, "b": 30},
			weights:   domain.WeightMap{"a": 3, "b": 1},
			want:      75,
		},
		{
			name:      "negative_weight_excluded",
			subscores: domain.Subscores{"a": 90, "b": 0},
			weights:   domain.WeightMap{"a": 1, "b": -1},
			want:      90,
		},
		{
			name:      "all_zero_weights_fall_back_to_mean",
			subscores: domain.Subscores{"a": 90, "b": 30},
			weights:   domain.WeightMap{"a": 0, "b": 0},
			want:      60,
		},
		{
			name:      "all_negative_weights_fall_back_to_mean",
			subscores: domain.Subscores{"a": 80, "b": 40},
			weights:   domain.WeightMap{"a": -1, "b": -2},
			want:      60,
		},
		{
			name:      "key_missing_from_weights_has_zero_weight",
			subscores: domain.Subscores{"a": 90, "b": 30},
			weights:   domain.WeightMap{"a": 1},
			want:      90,
		},
		{
			name:      "non_finite_weight_excluded",
			subscores: domain.Subscores{"a": 90, "b": 30},
			weights:   domain.WeightMap{"a": 1, "b": math.Inf(1)},
			want:      90,
		},
		{
			name:      "non_finite_value_counts_as_zero",
			subscores: domain.Subscores{"a": 90, "b": math.NaN()},
			weights:   domain.WeightMap{"a": 1, "b": 1},
			want:      45,
		},
		{
			name:      "result_clamped",
			subscores: domain.Subscores{"a": 400},
			want:      90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeightedOverall(tt.subscores, tt.weights))
		})
	}
}

func TestWeightedOverall_SpeakingDefaults(t *testing.T) {
	subs := domain.Subscores{
		domain.DimContent:       80,
		domain.DimPronunciation: 60,
		domain.DimFluency:       60,
		domain.DimGrammar:       90,
		domain.DimVocabulary:    90,
	}
	// .30*80 + .25*60 + .25*60 + .10*90 + .10*90
	assert.Equal(t, 72, WeightedOverall(subs, domain.DefaultWeights(domain.SectionSpeaking)))
}

func TestNormalizeSubscores(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		scalers map[string]Range
		want    domain.Subscores
	}{
		{
			name: "default_percent_scale",
			raw:  map[string]any{"a": 45.0, "b": 50.0, "c": 100.0, "d": 0.0},
			want: domain.Subscores{"a": 41, "b": 45, "c": 90, "d": 0},
		},
		{
			name: "drops_non_numbers",
			raw: map[string]any{
				"num":    50.0,
				"str":    "50",
				"nil":    nil,
				"bool":   true,
				"nested": map[string]any{"x": 1},
			},
			want: domain.Subscores{"num": 45},
		},
		{
			name: "drops_non_finite",
			raw:  map[string]any{"nan": math.NaN(), "inf": math.Inf(1), "ok": 100.0},
			want: domain.Subscores{"ok": 90},
		},
		{
			name: "integer_kinds_and_json_number",
			raw: map[string]any{
				"int":    50,
				"int64":  int64(100),
				"uint8":  uint8(10),
				"f32":    float32(50),
				"number": json.Number("100"),
				"badnum": json.Number("abc"),
			},
			want: domain.Subscores{"int": 45, "int64": 90, "uint8": 9, "f32": 45, "number": 90},
		},
		{
			name:    "per_key_scaler",
			raw:     map[string]any{"band": 9.0, "pct": 50.0},
			scalers: map[string]Range{"band": {Min: 0, Max: 9}},
			want:    domain.Subscores{"band": 90, "pct": 45},
		},
		{
			name:    "already_on_scale",
			raw:     map[string]any{"content": 72.0},
			scalers: map[string]Range{"content": {Min: 0, Max: 90}},
			want:    domain.Subscores{"content": 72},
		},
		{
			name: "empty",
			raw:  nil,
			want: domain.Subscores{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSubscores(tt.raw, tt.scalers))
		})
	}
}
