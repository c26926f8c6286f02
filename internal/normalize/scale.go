// Package normalize converts raw grading metrics into the PTE Academic 0-90
// scale. It is the only place the scale is defined and enforced.
//
// Every function is total: NaN, infinities and out-of-range inputs resolve to
// a value on the scale instead of propagating. Unknown input earns no credit,
// so non-finite values map to 0 rather than to a clamped boundary.
package normalize

import (
	"math"

	"github.com/ahrav/go-ptescore/internal/domain"
)

const (
	maxScore = float64(domain.MaxScore)

	// werLinearFloor is the score at WER 1.0, the end of the linear segment.
	werLinearFloor = 30.0
	// werZeroBound is the WER at and beyond which no credit is given.
	werZeroBound = 3.0
)

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// ClampTo90 rounds half-up to an integer and clamps into [0, 90].
// Non-finite input yields 0.
func ClampTo90(x float64) int {
	if !finite(x) {
		return 0
	}
	r := math.Floor(x + 0.5)
	switch {
	case r < 0:
		return 0
	case r > maxScore:
		return domain.MaxScore
	default:
		return int(r)
	}
}

// ScaleTo90 linearly maps value from [min, max] onto [0, 90] and clamps.
// A degenerate range (min == max, or a non-finite bound) has no valid
// mapping, so the value is clamped as-is.
func ScaleTo90(value, min, max float64) int {
	if !finite(value) {
		return 0
	}
	if !finite(min) || !finite(max) || min == max {
		return ClampTo90(value)
	}
	return ClampTo90((value - min) / (max - min) * maxScore)
}

// AccuracyTo90 treats value as a 0-1 fraction, or as 0-100 when isPercentage
// is set.
func AccuracyTo90(value float64, isPercentage bool) int {
	if isPercentage {
		return ScaleTo90(value, 0, 100)
	}
	return ScaleTo90(value, 0, 1)
}

// RatioTo90 scores k out of n. The product is taken before dividing so
// exact halves such as 7/20 round up instead of landing just below .5.
// A non-positive n earns nothing.
func RatioTo90(k, n int) int {
	if n <= 0 {
		return 0
	}
	return ClampTo90(float64(domain.MaxScore*k) / float64(n))
}

// WERTo90 maps a word error rate onto the scale. Up to WER 1.0 the score
// falls linearly from 90 to 30. Past 1.0 the remaining 30 points decay
// quadratically and reach 0 at WER 3.0, staying there for larger rates.
// Negative rates are treated as a perfect transcription.
func WERTo90(wer float64) int {
	if !finite(wer) {
		return 0
	}
	if wer < 0 {
		wer = 0
	}
	switch {
	case wer <= 1:
		return ClampTo90(maxScore - (maxScore-werLinearFloor)*wer)
	case wer < werZeroBound:
		rem := (werZeroBound - wer) / (werZeroBound - 1)
		return ClampTo90(werLinearFloor * rem * rem)
	default:
		return 0
	}
}
