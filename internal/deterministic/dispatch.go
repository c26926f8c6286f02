package deterministic

import (
	"github.com/ahrav/go-ptescore/internal/domain"
)

// Scorer grades one payload. ok is false when the payload is not the
// variant the scorer expects.
type Scorer func(p domain.Payload) (res domain.ScoringResult, ok bool)

type route struct {
	section domain.TestSection
	qt      domain.QuestionType
}

// routes lists every objective (section, question type) pair. Items sharing
// a grading rule share a scorer.
var routes = map[route]Scorer{
	{domain.SectionReading, domain.QTMultipleChoiceSingle}:     typed(ScoreMCQSingle),
	{domain.SectionReading, domain.QTMultipleChoiceMultiple}:   typed(ScoreMCQMultiple),
	{domain.SectionReading, domain.QTFillInBlanks}:             typed(ScoreFillInBlanks),
	{domain.SectionReading, domain.QTReadingWritingFillBlanks}: typed(ScoreFillInBlanks),
	{domain.SectionReading, domain.QTReorderParagraphs}:        typed(ScoreReorderParagraphs),

	{domain.SectionListening, domain.QTMultipleChoiceSingle}:    typed(ScoreMCQSingle),
	{domain.SectionListening, domain.QTHighlightCorrectSummary}: typed(ScoreMCQSingle),
	{domain.SectionListening, domain.QTSelectMissingWord}:       typed(ScoreMCQSingle),
	{domain.SectionListening, domain.QTMultipleChoiceMultiple}:  typed(ScoreMCQMultiple),
	{domain.SectionListening, domain.QTHighlightIncorrectWords}: typed(ScoreMCQMultiple),
	{domain.SectionListening, domain.QTFillInBlanks}:            typed(ScoreFillInBlanks),
	{domain.SectionListening, domain.QTWriteFromDictation}:      typed(ScoreWriteFromDictation),
}

// typed adapts a variant-specific scorer to Scorer. Pointer payloads are
// dereferenced by Score before they get here.
func typed[T domain.Payload](fn func(T) domain.ScoringResult) Scorer {
	return func(p domain.Payload) (domain.ScoringResult, bool) {
		v, ok := p.(T)
		if !ok {
			return domain.ScoringResult{}, false
		}
		return fn(v), true
	}
}

// Lookup returns the scorer registered for (section, qt).
func Lookup(section domain.TestSection, qt domain.QuestionType) (Scorer, bool) {
	s, ok := routes[route{section, qt}]
	return s, ok
}

// IsObjective reports whether (section, qt) has a deterministic scorer.
func IsObjective(section domain.TestSection, qt domain.QuestionType) bool {
	_, ok := Lookup(section, qt)
	return ok
}

// Score grades in when its (section, question type) is objective and its
// payload is the matching variant with every required field present.
// Otherwise ok is false and the caller should fall through to providers.
func Score(in domain.OrchestratorInput) (res domain.ScoringResult, ok bool) {
	scorer, found := Lookup(in.Section, in.QuestionType)
	if !found {
		return domain.ScoringResult{}, false
	}
	p := domain.Deref(in.Payload)
	if p == nil {
		return domain.ScoringResult{}, false
	}
	if err := domain.ValidatePayload(p); err != nil {
		return domain.ScoringResult{}, false
	}
	return scorer(p)
}
