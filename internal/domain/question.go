package domain

import "strings"

// QuestionType selects sub-behavior within a section. Values follow the PTE
// Academic item catalogue in snake_case.
type QuestionType string

// Speaking item types.
const (
	QTReadAloud                QuestionType = "read_aloud"
	QTRepeatSentence           QuestionType = "repeat_sentence"
	QTDescribeImage            QuestionType = "describe_image"
	QTRetellLecture            QuestionType = "retell_lecture"
	QTAnswerShortQuestion      QuestionType = "answer_short_question"
	QTSummarizeGroupDiscussion QuestionType = "summarize_group_discussion"
	QTRespondToSituation       QuestionType = "respond_to_situation"
)

// Writing item types.
const (
	QTSummarizeWrittenText QuestionType = "summarize_written_text"
	QTWriteEssay           QuestionType = "write_essay"
)

// Reading and listening item types. Several keys are shared by both sections.
const (
	QTReadingWritingFillBlanks QuestionType = "reading_writing_fill_blanks"
	QTMultipleChoiceMultiple   QuestionType = "multiple_choice_multiple"
	QTReorderParagraphs        QuestionType = "reorder_paragraphs"
	QTFillInBlanks             QuestionType = "fill_in_blanks"
	QTMultipleChoiceSingle     QuestionType = "multiple_choice_single"
	QTSummarizeSpokenText      QuestionType = "summarize_spoken_text"
	QTHighlightCorrectSummary  QuestionType = "highlight_correct_summary"
	QTSelectMissingWord        QuestionType = "select_missing_word"
	QTHighlightIncorrectWords  QuestionType = "highlight_incorrect_words"
	QTWriteFromDictation       QuestionType = "write_from_dictation"
)

// NormalizeQuestionType lower-cases the key and folds spaces and dashes into
// underscores so "Multiple-Choice Single" and "multiple_choice_single" agree.
func NormalizeQuestionType(s string) QuestionType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return QuestionType(s)
}

// String returns the raw key.
func (q QuestionType) String() string { return string(q) }
