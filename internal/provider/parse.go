package provider

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/normalize"
)

// Keys accepted for each envelope field, in preference order. Models drift
// from the requested shape often enough that the common synonyms are worth
// accepting.
var (
	overallKeys   = []string{"overall", "overall_score", "overallScore", "score", "total"}
	subscoreKeys  = []string{"subscores", "sub_scores", "subScores", "scores", "traits", "criteria"}
	rationaleKeys = []string{"rationale", "feedback", "explanation", "comment"}

	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	codeFence     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
)

// ExtractJSON returns the first JSON object embedded in text. It looks
// inside fenced code blocks first, then scans the raw text, and repairs
// trailing commas. ok is false when no object can be recovered.
func ExtractJSON(text string) (string, bool) {
	for _, m := range codeFence.FindAllStringSubmatch(text, -1) {
		if obj, ok := scanObject(m[1]); ok {
			return obj, true
		}
	}
	return scanObject(text)
}

// scanObject tries every '{' in s as the start of an object.
func scanObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
			if repaired := trailingComma.ReplaceAllString(candidate, "$1"); json.Valid([]byte(repaired)) {
				return repaired, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at open, skipping
// braces inside string literals, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseRawScore turns provider text into a RawProviderScore scaled to 0-90.
// It never fails: when no score can be recovered it returns an empty score
// with Meta.Error describing why. The envelope may carry "scale", either the
// maximum of the raw range or {"min": .., "max": ..}; without it values are
// read as 0-100.
func ParseRawScore(text string) (out domain.RawProviderScore) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.RawProviderScore{Meta: domain.ProviderMeta{Error: fmt.Sprintf("parse provider response: %v", r)}}
		}
	}()

	obj, ok := ExtractJSON(text)
	if !ok {
		out.Meta.Error = "no JSON object in provider response"
		return out
	}

	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	var env map[string]any
	if err := dec.Decode(&env); err != nil {
		out.Meta.Error = "malformed JSON in provider response: " + err.Error()
		return out
	}

	scale := readScale(env["scale"])

	if v, ok := firstNumber(env, overallKeys); ok {
		out.Overall = domain.Float(float64(normalize.ScaleTo90(v, scale.Min, scale.Max)))
	}

	for _, k := range subscoreKeys {
		raw, ok := env[k].(map[string]any)
		if !ok {
			continue
		}
		numeric := make(map[string]any, len(raw))
		scalers := make(map[string]normalize.Range, len(raw))
		for name, v := range raw {
			if f, ok := number(v); ok {
				numeric[name] = f
				scalers[name] = scale
			}
		}
		if subs := normalize.NormalizeSubscores(numeric, scalers); len(subs) > 0 {
			out.Subscores = subs
		}
		break
	}

	for _, k := range rationaleKeys {
		if s, ok := env[k].(string); ok && strings.TrimSpace(s) != "" {
			out.Rationale = strings.TrimSpace(s)
			break
		}
	}

	if !out.Usable() {
		out.Meta.Error = "provider response carried no score"
	}
	return out
}

func readScale(v any) normalize.Range {
	switch s := v.(type) {
	case map[string]any:
		lo, okLo := number(s["min"])
		hi, okHi := number(s["max"])
		if okLo && okHi && hi > lo {
			return normalize.Range{Min: lo, Max: hi}
		}
	default:
		if hi, ok := number(v); ok && hi > 0 {
			return normalize.Range{Min: 0, Max: hi}
		}
	}
	return normalize.DefaultRawRange
}

func firstNumber(env map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		if f, ok := number(env[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// number reads JSON numbers and numeric strings such as "72" or "72/90".
// Only finite values are returned.
func number(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case string:
		s := strings.TrimSpace(n)
		if i := strings.IndexByte(s, '/'); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		f, err = strconv.ParseFloat(s, 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
