package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ptescore/internal/domain"
)

func TestDecode_Valid(t *testing.T) {
	req, err := Decode([]byte(`{
		"section": "listening",
		"questionType": "write_from_dictation",
		"payload": {"targetText": "the cat sat", "userText": "the cat sit"},
		"providerPriority": ["gemini"],
		"timeoutMs": 1500
	}`))
	require.NoError(t, err)

	assert.Equal(t, domain.SectionListening, req.Section)
	assert.Equal(t, "write_from_dictation", req.QuestionType)
	assert.Equal(t, []string{"gemini"}, req.ProviderPriority)
	assert.Equal(t, int64(1500), req.TimeoutMs)

	in, err := req.Input()
	require.NoError(t, err)
	assert.IsType(t, domain.DictationPayload{}, in.Payload)
}

func TestDecode_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{"missing_payload", `{"questionType":"essay"}`, []string{"payload"}},
		{"missing_question_type", `{"payload":{}}`, []string{"questionType"}},
		{"empty_question_type", `{"questionType":"","payload":{}}`, []string{"/questionType"}},
		{"negative_timeout", `{"questionType":"x","payload":{},"timeoutMs":-5}`, []string{"/timeoutMs"}},
		{"payload_not_object", `{"questionType":"x","payload":[1,2]}`, []string{"/payload"}},
		{"priority_not_strings", `{"questionType":"x","payload":{},"providerPriority":[1]}`, []string{"/providerPriority/0"}},
		{"two_problems", `{"questionType":"x","payload":"p","timeoutMs":1.5}`, []string{"/payload", "/timeoutMs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.ErrorIs(t, err, ErrInvalidDocument)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestDecode_NotJSON(t *testing.T) {
	_, err := Decode([]byte(`{"questionType":`))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Decode([]byte(`[]`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestRead(t *testing.T) {
	req, err := Read(strings.NewReader(`{"section":"READING","questionType":"multiple_choice_single","payload":{"selectedOption":"B","correctOption":"B"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.SectionReading, req.Section)
}

func TestValidate_Nil(t *testing.T) {
	assert.Nil(t, Validate(map[string]any{"questionType": "x", "payload": map[string]any{}}))
}
