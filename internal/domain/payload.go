package domain

import (
	"encoding/json"
	"fmt"
)

// PayloadKind tags each payload variant.
type PayloadKind string

const (
	KindMCQSingle    PayloadKind = "mcq_single"
	KindMCQMultiple  PayloadKind = "mcq_multiple"
	KindFillInBlanks PayloadKind = "fill_in_blanks"
	KindReorder      PayloadKind = "reorder"
	KindDictation    PayloadKind = "dictation"
	KindSpeaking     PayloadKind = "speaking"
	KindWriting      PayloadKind = "writing"
	KindResponse     PayloadKind = "response"
)

// Payload is the task-specific part of a scoring request. The set of
// variants is closed; each declares its required fields through validate tags.
type Payload interface {
	Kind() PayloadKind
}

// MCQSinglePayload is a single-answer selection item.
type MCQSinglePayload struct {
	Prompt         string   `json:"prompt,omitempty"`
	Options        []string `json:"options,omitempty"`
	SelectedOption string   `json:"selectedOption"`
	CorrectOption  string   `json:"correctOption" validate:"required"`
}

// MCQMultiplePayload is a multi-answer selection item. Highlight-incorrect-words
// items reuse it with word identifiers as options.
type MCQMultiplePayload struct {
	Prompt          string   `json:"prompt,omitempty"`
	Options         []string `json:"options,omitempty"`
	SelectedOptions []string `json:"selectedOptions"`
	CorrectOptions  []string `json:"correctOptions" validate:"required,min=1"`
}

// FillInBlanksPayload holds one answer per blank, position-aligned with Correct.
type FillInBlanksPayload struct {
	Passage string   `json:"passage,omitempty"`
	Answers []string `json:"answers"`
	Correct []string `json:"correct" validate:"required,min=1"`
}

// ReorderPayload holds paragraph identifiers in user and reference order.
type ReorderPayload struct {
	Paragraphs   []string `json:"paragraphs,omitempty"`
	UserOrder    []string `json:"userOrder"`
	CorrectOrder []string `json:"correctOrder" validate:"required,min=1"`
}

// DictationPayload is a write-from-dictation response.
type DictationPayload struct {
	TargetText string `json:"targetText" validate:"required"`
	UserText   string `json:"userText"`
}

// SpeakingPayload carries a transcribed spoken response. AudioRef is an
// opaque reference; audio handling happens before the scorer is called.
type SpeakingPayload struct {
	Prompt        string `json:"prompt,omitempty"`
	ReferenceText string `json:"referenceText,omitempty"`
	Transcript    string `json:"transcript" validate:"required"`
	AudioRef      string `json:"audioRef,omitempty"`
}

// WritingPayload carries a written response.
type WritingPayload struct {
	Prompt   string `json:"prompt,omitempty"`
	Text     string `json:"text" validate:"required"`
	MinWords int    `json:"minWords,omitempty" validate:"min=0"`
	MaxWords int    `json:"maxWords,omitempty" validate:"min=0"`
}

// ResponsePayload is a free-form reading or listening response judged by a
// provider, e.g. summarize spoken text.
type ResponsePayload struct {
	Prompt     string   `json:"prompt,omitempty"`
	Passage    string   `json:"passage,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
	Options    []string `json:"options,omitempty"`
	Text       string   `json:"text" validate:"required"`
}

func (MCQSinglePayload) Kind() PayloadKind    { return KindMCQSingle }
func (MCQMultiplePayload) Kind() PayloadKind  { return KindMCQMultiple }
func (FillInBlanksPayload) Kind() PayloadKind { return KindFillInBlanks }
func (ReorderPayload) Kind() PayloadKind      { return KindReorder }
func (DictationPayload) Kind() PayloadKind    { return KindDictation }
func (SpeakingPayload) Kind() PayloadKind     { return KindSpeaking }
func (WritingPayload) Kind() PayloadKind      { return KindWriting }
func (ResponsePayload) Kind() PayloadKind     { return KindResponse }

// objectiveKinds maps objectively gradable question types to the payload
// variant that carries their answer key. Both reading and listening share
// these keys.
var objectiveKinds = map[QuestionType]PayloadKind{
	QTMultipleChoiceSingle:     KindMCQSingle,
	QTHighlightCorrectSummary:  KindMCQSingle,
	QTSelectMissingWord:        KindMCQSingle,
	QTMultipleChoiceMultiple:   KindMCQMultiple,
	QTHighlightIncorrectWords:  KindMCQMultiple,
	QTFillInBlanks:             KindFillInBlanks,
	QTReadingWritingFillBlanks: KindFillInBlanks,
	QTReorderParagraphs:        KindReorder,
	QTWriteFromDictation:       KindDictation,
}

// PayloadKindFor returns the payload variant expected for a section and
// question type.
func PayloadKindFor(section TestSection, qt QuestionType) PayloadKind {
	switch section {
	case SectionSpeaking:
		return KindSpeaking
	case SectionWriting:
		return KindWriting
	}
	if k, ok := objectiveKinds[qt]; ok {
		return k
	}
	return KindResponse
}

// DecodePayload builds the payload variant for (section, qt) from raw JSON.
// It does not validate required fields; see ValidatePayload.
func DecodePayload(section TestSection, qt QuestionType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	var (
		p   Payload
		err error
	)
	switch PayloadKindFor(section, qt) {
	case KindMCQSingle:
		p, err = decodeInto[MCQSinglePayload](raw)
	case KindMCQMultiple:
		p, err = decodeInto[MCQMultiplePayload](raw)
	case KindFillInBlanks:
		p, err = decodeInto[FillInBlanksPayload](raw)
	case KindReorder:
		p, err = decodeInto[ReorderPayload](raw)
	case KindDictation:
		p, err = decodeInto[DictationPayload](raw)
	case KindSpeaking:
		p, err = decodeInto[SpeakingPayload](raw)
	case KindWriting:
		p, err = decodeInto[WritingPayload](raw)
	default:
		p, err = decodeInto[ResponsePayload](raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrInvalidPayload, section, qt, err)
	}
	return p, nil
}

func decodeInto[T Payload](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// ValidatePayload checks the variant's required fields. Pointer variants
// are checked through Deref.
func ValidatePayload(p Payload) error {
	p = Deref(p)
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, p.Kind(), err)
	}
	return nil
}

// Deref returns the variant held by p by value, so callers may hand in
// pointer payloads. A nil pointer yields nil.
func Deref(p Payload) Payload {
	switch v := p.(type) {
	case *MCQSinglePayload:
		if v != nil {
			return *v
		}
	case *MCQMultiplePayload:
		if v != nil {
			return *v
		}
	case *FillInBlanksPayload:
		if v != nil {
			return *v
		}
	case *ReorderPayload:
		if v != nil {
			return *v
		}
	case *DictationPayload:
		if v != nil {
			return *v
		}
	case *SpeakingPayload:
		if v != nil {
			return *v
		}
	case *WritingPayload:
		if v != nil {
			return *v
		}
	case *ResponsePayload:
		if v != nil {
			return *v
		}
	default:
		return p
	}
	return nil
}
