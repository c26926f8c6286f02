package domain

import "maps"

// WeightMap assigns a non-negative weight to each subscore dimension.
type WeightMap map[string]float64

// Dimension names used by the default weight tables and provider prompts.
const (
	DimContent       = "content"
	DimPronunciation = "pronunciation"
	DimFluency       = "fluency"
	DimGrammar       = "grammar"
	DimVocabulary    = "vocabulary"
	DimSpelling      = "spelling"
	DimForm          = "form"
	DimDevelopment   = "development"
)

// Section weight tables. They are never mutated; accessors hand out copies.
var defaultWeights = map[TestSection]WeightMap{
	SectionSpeaking: {
		DimContent:       0.30,
		DimPronunciation: 0.25,
		DimFluency:       0.25,
		DimGrammar:       0.10,
		DimVocabulary:    0.10,
	},
	SectionWriting: {
		DimContent:     0.30,
		DimGrammar:     0.20,
		DimVocabulary:  0.20,
		DimSpelling:    0.10,
		DimForm:        0.10,
		DimDevelopment: 0.10,
	},
	SectionReading: {
		DimContent:    0.50,
		DimVocabulary: 0.25,
		DimGrammar:    0.25,
	},
	SectionListening: {
		DimContent:    0.50,
		DimVocabulary: 0.25,
		DimSpelling:   0.25,
	},
}

// DefaultWeights returns a fresh copy of the weight table for section.
// Unknown sections get an empty map, which makes WeightedOverall fall back
// to an unweighted mean.
func DefaultWeights(section TestSection) WeightMap {
	out := make(WeightMap, len(defaultWeights[section]))
	maps.Copy(out, defaultWeights[section])
	return out
}

// DefaultWeightsBySection returns copies of every section's weight table.
func DefaultWeightsBySection() map[TestSection]WeightMap {
	out := make(map[TestSection]WeightMap, len(defaultWeights))
	for _, s := range Sections() {
		out[s] = DefaultWeights(s)
	}
	return out
}

// Dimensions returns the dimension names scored for a section, in a stable
// order used when building provider prompts.
func Dimensions(section TestSection) []string {
	switch section {
	case SectionSpeaking:
		return []string{DimContent, DimPronunciation, DimFluency, DimGrammar, DimVocabulary}
	case SectionWriting:
		return []string{DimContent, DimGrammar, DimVocabulary, DimSpelling, DimForm, DimDevelopment}
	case SectionListening:
		return []string{DimContent, DimVocabulary, DimSpelling}
	default:
		return []string{DimContent, DimVocabulary, DimGrammar}
	}
}
