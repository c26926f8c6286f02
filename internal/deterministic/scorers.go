// Package deterministic grades objectively checkable PTE items exactly.
//
// Every scorer is a pure function of its payload: no I/O, no clock, no
// shared state. Results carry an empty subscore map because an exact grade
// has no dimensions to break down.
package deterministic

import (
	"slices"
	"strings"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/normalize"
)

func result(overall int) domain.ScoringResult {
	return domain.ScoringResult{Overall: overall, Subscores: domain.Subscores{}}
}

// ScoreMCQSingle awards full marks for an exact, case-sensitive match on the
// option identifier.
func ScoreMCQSingle(p domain.MCQSinglePayload) domain.ScoringResult {
	if p.SelectedOption == p.CorrectOption {
		return result(domain.MaxScore)
	}
	return result(0)
}

// ScoreMCQMultiple credits each correct selection and debits each incorrect
// one. Net credit is floored at zero and scaled by the number of correct
// options, so over-selecting can never match an exact answer.
// Duplicate identifiers count once.
func ScoreMCQMultiple(p domain.MCQMultiplePayload) domain.ScoringResult {
	correct := toSet(p.CorrectOptions)
	if len(correct) == 0 {
		return result(0)
	}

	var hits, misses int
	for s := range toSet(p.SelectedOptions) {
		if _, ok := correct[s]; ok {
			hits++
		} else {
			misses++
		}
	}

	credit := max(hits-misses, 0)
	return result(normalize.RatioTo90(credit, len(correct)))
}

// ScoreFillInBlanks compares each blank position-wise, ignoring case and
// surrounding whitespace. Missing answers count as wrong.
func ScoreFillInBlanks(p domain.FillInBlanksPayload) domain.ScoringResult {
	if len(p.Correct) == 0 {
		return result(0)
	}

	var matched int
	for i, want := range p.Correct {
		if i >= len(p.Answers) {
			break
		}
		if strings.EqualFold(strings.TrimSpace(p.Answers[i]), strings.TrimSpace(want)) {
			matched++
		}
	}
	return result(normalize.RatioTo90(matched, len(p.Correct)))
}

// ScoreReorderParagraphs counts the adjacent pairs of the correct order that
// also appear adjacent, in the same direction, in the user's order. A single
// transposition therefore costs only the pairs it breaks.
func ScoreReorderParagraphs(p domain.ReorderPayload) domain.ScoringResult {
	if len(p.CorrectOrder) < 2 {
		if slices.Equal(p.UserOrder, p.CorrectOrder) {
			return result(domain.MaxScore)
		}
		return result(0)
	}

	type pair struct{ a, b string }
	userPairs := make(map[pair]struct{}, len(p.UserOrder))
	for i := 0; i+1 < len(p.UserOrder); i++ {
		userPairs[pair{p.UserOrder[i], p.UserOrder[i+1]}] = struct{}{}
	}

	total := len(p.CorrectOrder) - 1
	var kept int
	for i := range total {
		if _, ok := userPairs[pair{p.CorrectOrder[i], p.CorrectOrder[i+1]}]; ok {
			kept++
		}
	}
	return result(normalize.RatioTo90(kept, total))
}

// ScoreWriteFromDictation computes the word error rate of the user's text
// against the target and maps it through normalize.WERTo90.
func ScoreWriteFromDictation(p domain.DictationPayload) domain.ScoringResult {
	target := Tokenize(p.TargetText)
	user := Tokenize(p.UserText)
	if len(target) == 0 {
		if len(user) == 0 {
			return result(domain.MaxScore)
		}
		return result(0)
	}
	return result(normalize.WERTo90(WordErrorRate(target, user)))
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}
