package deterministic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ptescore/internal/domain"
)

func TestScore_Routes(t *testing.T) {
	tests := []struct {
		name    string
		in      domain.OrchestratorInput
		wantOK  bool
		overall int
	}{
		{
			name: "reading_mcq_single",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTMultipleChoiceSingle,
				Payload:      domain.MCQSinglePayload{SelectedOption: "B", CorrectOption: "B"},
			},
			wantOK:  true,
			overall: 90,
		},
		{
			name: "pointer_payload_correct",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTMultipleChoiceSingle,
				Payload:      &domain.MCQSinglePayload{SelectedOption: "B", CorrectOption: "B"},
			},
			wantOK:  true,
			overall: 90,
		},
		{
			name: "pointer_payload",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTMultipleChoiceSingle,
				Payload:      &domain.MCQSinglePayload{SelectedOption: "A", CorrectOption: "B"},
			},
			wantOK:  true,
			overall: 0,
		},
		{
			name: "listening_dictation",
			in: domain.OrchestratorInput{
				Section:      domain.SectionListening,
				QuestionType: domain.QTWriteFromDictation,
				Payload:      domain.DictationPayload{TargetText: "the cat sat", UserText: "the cat sit"},
			},
			wantOK:  true,
			overall: 70,
		},
		{
			name: "listening_highlight_incorrect_words",
			in: domain.OrchestratorInput{
				Section:      domain.SectionListening,
				QuestionType: domain.QTHighlightIncorrectWords,
				Payload:      domain.MCQMultiplePayload{SelectedOptions: []string{"w3", "w9"}, CorrectOptions: []string{"w3", "w7"}},
			},
			wantOK:  true,
			overall: 0,
		},
		{
			name: "listening_select_missing_word",
			in: domain.OrchestratorInput{
				Section:      domain.SectionListening,
				QuestionType: domain.QTSelectMissingWord,
				Payload:      domain.MCQSinglePayload{SelectedOption: "C", CorrectOption: "C"},
			},
			wantOK:  true,
			overall: 90,
		},
		{
			name: "reading_writing_fill_blanks",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTReadingWritingFillBlanks,
				Payload:      domain.FillInBlanksPayload{Answers: []string{"x", "y"}, Correct: []string{"x", "z"}},
			},
			wantOK:  true,
			overall: 45,
		},
		{
			name: "missing_required_field",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTMultipleChoiceSingle,
				Payload:      domain.MCQSinglePayload{SelectedOption: "B"},
			},
			wantOK: false,
		},
		{
			name: "wrong_variant",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTMultipleChoiceSingle,
				Payload:      domain.ResponsePayload{Text: "B"},
			},
			wantOK: false,
		},
		{
			name: "nil_payload",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTMultipleChoiceSingle,
			},
			wantOK: false,
		},
		{
			name: "typed_nil_pointer_payload",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTMultipleChoiceSingle,
				Payload:      (*domain.MCQSinglePayload)(nil),
			},
			wantOK: false,
		},
		{
			name: "subjective_writing",
			in: domain.OrchestratorInput{
				Section:      domain.SectionWriting,
				QuestionType: domain.QTWriteEssay,
				Payload:      domain.WritingPayload{Text: "essay"},
			},
			wantOK: false,
		},
		{
			name: "dictation_is_listening_only",
			in: domain.OrchestratorInput{
				Section:      domain.SectionReading,
				QuestionType: domain.QTWriteFromDictation,
				Payload:      domain.DictationPayload{TargetText: "a", UserText: "a"},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Score(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.overall, got.Overall)
			}
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	in := domain.OrchestratorInput{
		Section:      domain.SectionReading,
		QuestionType: domain.QTReorderParagraphs,
		Payload: domain.ReorderPayload{
			UserOrder:    []string{"b", "a", "c", "d"},
			CorrectOrder: []string{"a", "b", "c", "d"},
		},
	}

	first, ok := Score(in)
	require.True(t, ok)
	second, ok := Score(in)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestIsObjective(t *testing.T) {
	assert.True(t, IsObjective(domain.SectionReading, domain.QTFillInBlanks))
	assert.True(t, IsObjective(domain.SectionListening, domain.QTFillInBlanks))
	assert.False(t, IsObjective(domain.SectionListening, domain.QTSummarizeSpokenText))
	assert.False(t, IsObjective(domain.SectionSpeaking, domain.QTReadAloud))
}

// Every routed question type must decode to the variant its scorer expects,
// otherwise JSON callers could never reach the deterministic path.
func TestRoutesAgreeWithPayloadKinds(t *testing.T) {
	for r := range routes {
		p, err := domain.DecodePayload(r.section, r.qt, nil)
		require.NoError(t, err)
		_, ok := routes[r](p)
		assert.True(t, ok, "%s/%s decodes to %s", r.section, r.qt, p.Kind())
	}
}
