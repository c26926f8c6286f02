package normalize

import (
	"encoding/json"
	"math"
	"reflect"

	"github.com/ahrav/go-ptescore/internal/domain"
)

// Range is an explicit raw scale for one subscore key.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultRawRange is assumed for subscores reported without a scale.
var DefaultRawRange = Range{Min: 0, Max: 100}

// WeightedOverall computes sum(v*w)/sum(w) over the keys of subscores and
// clamps the result onto the scale.
//
// With a non-empty weight map, a key the map does not mention has weight 0.
// Negative or non-finite weights drop the key from both sums. Non-finite
// subscore values count as 0. When weights is empty or the applicable weights
// sum to <= 0, the unweighted mean over every key is used instead.
func WeightedOverall(subscores domain.Subscores, weights domain.WeightMap) int {
	if len(subscores) == 0 {
		return 0
	}

	if len(weights) > 0 {
		var num, den float64
		for k, v := range subscores {
			w, ok := weights[k]
			if !ok || w < 0 || !finite(w) {
				continue
			}
			num += safeValue(v) * w
			den += w
		}
		if den > 0 {
			return ClampTo90(num / den)
		}
	}

	var sum float64
	for _, v := range subscores {
		sum += safeValue(v)
	}
	return ClampTo90(sum / float64(len(subscores)))
}

func safeValue(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}

// NormalizeSubscores scales every finite numeric value in raw onto the
// scale, using the key's entry in scalers when present and DefaultRawRange
// otherwise. Keys holding anything else are dropped, not zeroed, so an
// abstaining rater stays distinguishable from a zero grade.
func NormalizeSubscores(raw map[string]any, scalers map[string]Range) domain.Subscores {
	out := make(domain.Subscores, len(raw))
	for k, v := range raw {
		f, ok := toFloat(v)
		if !ok || !finite(f) {
			continue
		}
		r, ok := scalers[k]
		if !ok {
			r = DefaultRawRange
		}
		out[k] = float64(ScaleTo90(f, r.Min, r.Max))
	}
	return out
}

// toFloat accepts every Go numeric kind plus json.Number. Booleans and
// numeric strings are not numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	default:
		return math.NaN(), false
	}
}
