package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTestSection(t *testing.T) {
	tests := []struct {
		label string
		want  TestSection
	}{
		{"SPEAKING", SectionSpeaking},
		{"speaking", SectionSpeaking},
		{"  Speak ", SectionSpeaking},
		{"s", SectionSpeaking},
		{"WRITING", SectionWriting},
		{"writ", SectionWriting},
		{"Write", SectionWriting},
		{"W", SectionWriting},
		{"reading", SectionReading},
		{"Read", SectionReading},
		{"r", SectionReading},
		{"LISTENING", SectionListening},
		{"listen", SectionListening},
		{"l", SectionListening},
		{"", SectionReading},
		{"   ", SectionReading},
		{"maths", SectionReading},
		{"lis", SectionReading},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTestSection(tt.label))
		})
	}
}

func TestSections(t *testing.T) {
	assert.Equal(t, []TestSection{SectionSpeaking, SectionWriting, SectionReading, SectionListening}, Sections())
	for _, s := range Sections() {
		assert.True(t, s.Valid(), s)
		assert.NotEmpty(t, DefaultWeights(s), s)
	}
	assert.False(t, TestSection("speaking").Valid())
	assert.False(t, TestSection("").Valid())
	assert.Len(t, DefaultWeightsBySection(), len(Sections()))
}

func TestTestSection_UnmarshalJSON(t *testing.T) {
	var s TestSection
	require.NoError(t, json.Unmarshal([]byte(`"listening"`), &s))
	assert.Equal(t, SectionListening, s)

	require.NoError(t, json.Unmarshal([]byte(`"unknown"`), &s))
	assert.Equal(t, SectionReading, s)

	assert.Error(t, json.Unmarshal([]byte(`42`), &s))
}

func TestNormalizeQuestionType(t *testing.T) {
	assert.Equal(t, QTMultipleChoiceSingle, NormalizeQuestionType("Multiple-Choice Single"))
	assert.Equal(t, QTWriteFromDictation, NormalizeQuestionType(" write_from_dictation "))
	assert.Equal(t, QuestionType(""), NormalizeQuestionType("   "))
}

func TestDefaultWeights_ReturnsCopy(t *testing.T) {
	w := DefaultWeights(SectionSpeaking)
	w[DimContent] = 100

	assert.InDelta(t, 0.30, DefaultWeights(SectionSpeaking)[DimContent], 1e-9)
	assert.Empty(t, DefaultWeights(TestSection("OTHER")))
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	for s, w := range DefaultWeightsBySection() {
		var sum float64
		for _, v := range w {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "section %s", s)
		assert.ElementsMatch(t, Dimensions(s), keys(w), "section %s", s)
	}
}

func keys(w WeightMap) []string {
	out := make([]string, 0, len(w))
	for k := range w {
		out = append(out, k)
	}
	return out
}
