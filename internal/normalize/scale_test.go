package normalize

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

var nonFinite = []float64{math.NaN(), math.Inf(1), math.Inf(-1)}

func TestClampTo90(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"zero", 0, 0},
		{"max", 90, 90},
		{"midpoint", 45, 45},
		{"round_half_up", 44.5, 45},
		{"round_down", 44.49, 44},
		{"negative_half_rounds_toward_zero", -0.5, 0},
		{"below_range", -12, 0},
		{"above_range", 120, 90},
		{"just_above_max_rounds_back", 90.4, 90},
		{"huge", math.MaxFloat64, 90},
		{"tiny_negative", -math.MaxFloat64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampTo90(tt.in))
		})
	}
}

func TestNonFiniteInputsScoreZero(t *testing.T) {
	for _, x := range nonFinite {
		assert.Equal(t, 0, ClampTo90(x), "ClampTo90(%v)", x)
		assert.Equal(t, 0, ScaleTo90(x, 0, 100), "ScaleTo90(%v)", x)
		assert.Equal(t, 0, ScaleTo90(x, 5, 5), "ScaleTo90 degenerate(%v)", x)
		assert.Equal(t, 0, AccuracyTo90(x, false), "AccuracyTo90(%v)", x)
		assert.Equal(t, 0, AccuracyTo90(x, true), "AccuracyTo90 pct(%v)", x)
		assert.Equal(t, 0, WERTo90(x), "WERTo90(%v)", x)
	}
}

// Property: ClampTo90 always lands on an integer in [0, 90].
func TestClampTo90_Range_Property(t *testing.T) {
	f := func(x float64) bool {
		v := ClampTo90(x)
		return v >= 0 && v <= 90
	}
	if err := quick.Check(f, nil); err != nil {
		t.Errorf("ClampTo90 range property failed: %v", err)
	}
}

// Property: ClampTo90 is non-decreasing on finite inputs.
func TestClampTo90_Monotonic_Property(t *testing.T) {
	f := func(a, b float64) bool {
		if a > b {
			a, b = b, a
		}
		return ClampTo90(a) <= ClampTo90(b)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Errorf("ClampTo90 monotonic property failed: %v", err)
	}
}

// Property: a degenerate range falls back to clamping the raw value.
func TestScaleTo90_DegenerateRange_Property(t *testing.T) {
	f := func(v, k float64) bool {
		return ScaleTo90(v, k, k) == ClampTo90(v)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Errorf("ScaleTo90 degenerate range property failed: %v", err)
	}
}

func TestScaleTo90(t *testing.T) {
	tests := []struct {
		name        string
		v, min, max float64
		want        int
	}{
		{"min_maps_to_zero", 10, 10, 20, 0},
		{"max_maps_to_ninety", 20, 10, 20, 90},
		{"mid_maps_to_fortyfive", 15, 10, 20, 45},
		{"percent_scale", 50, 0, 100, 45},
		{"below_min_clamps", -5, 0, 100, 0},
		{"above_max_clamps", 150, 0, 100, 90},
		{"inverted_range", 0, 100, 0, 90},
		{"non_finite_bound_falls_back", 42, 0, math.Inf(1), 42},
		{"nan_bound_falls_back", 120, math.NaN(), 10, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaleTo90(tt.v, tt.min, tt.max))
		})
	}
}

func TestScaleTo90_Endpoints(t *testing.T) {
	ranges := [][2]float64{{0, 1}, {0, 100}, {-50, 50}, {3, 9}, {1e-3, 2e-3}}
	for _, r := range ranges {
		lo, hi := r[0], r[1]
		assert.Equal(t, 0, ScaleTo90(lo, lo, hi), "min of %v", r)
		assert.Equal(t, 90, ScaleTo90(hi, lo, hi), "max of %v", r)
		assert.Equal(t, 45, ScaleTo90((lo+hi)/2, lo, hi), "mid of %v", r)
	}
}

func TestAccuracyTo90(t *testing.T) {
	assert.Equal(t, 90, AccuracyTo90(1, false))
	assert.Equal(t, 45, AccuracyTo90(0.5, false))
	assert.Equal(t, 0, AccuracyTo90(0, false))
	assert.Equal(t, 90, AccuracyTo90(1.7, false))
	assert.Equal(t, 0, AccuracyTo90(-0.2, false))

	assert.Equal(t, 90, AccuracyTo90(100, true))
	assert.Equal(t, 45, AccuracyTo90(50, true))
	assert.Equal(t, 1, AccuracyTo90(1, true))
	assert.Equal(t, 90, AccuracyTo90(250, true))
}

func TestRatioTo90(t *testing.T) {
	tests := []struct {
		k, n int
		want int
	}{
		{7, 20, 32},
		{23, 36, 58},
		{14, 40, 32},
		{1, 3, 30},
		{0, 5, 0},
		{5, 5, 90},
		{6, 5, 90},
		{-1, 5, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RatioTo90(tt.k, tt.n), "RatioTo90(%d, %d)", tt.k, tt.n)
	}
}

func TestWERTo90(t *testing.T) {
	tests := []struct {
		name string
		wer  float64
		want int
	}{
		{"perfect", 0, 90},
		{"one_third", 1.0 / 3.0, 70},
		{"half", 0.5, 60},
		{"one", 1, 30},
		{"one_and_half", 1.5, 17},
		{"two", 2, 8},
		{"two_and_half", 2.5, 2},
		{"three", 3, 0},
		{"ten", 10, 0},
		{"negative_is_perfect", -0.7, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WERTo90(tt.wer))
		})
	}
}

func TestWERTo90_Decreasing(t *testing.T) {
	prev := WERTo90(0)
	for w := 0.01; w <= 10; w += 0.01 {
		cur := WERTo90(w)
		assert.LessOrEqual(t, cur, prev, "WERTo90 rose at %v", w)
		prev = cur
	}

	// Strict at coarser steps where rounding cannot hide the slope.
	samples := []float64{0, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2, 2.5}
	for i := 1; i < len(samples); i++ {
		assert.Less(t, WERTo90(samples[i]), WERTo90(samples[i-1]), "between %v and %v", samples[i-1], samples[i])
	}

	for w := 3.0; w <= 50; w += 0.5 {
		assert.Equal(t, 0, WERTo90(w))
	}
}
