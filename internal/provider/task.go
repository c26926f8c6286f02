package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahrav/go-ptescore/internal/domain"
)

// Task is one scoring request translated into the section input a Provider
// expects. It is built once per orchestration and run against each provider
// in turn.
type Task struct {
	Section   domain.TestSection
	timeout   time.Duration
	speaking  SpeakingInput
	writing   WritingInput
	reading   ReadingInput
	listening ListeningInput
}

// NewTask converts in into a Task. Speaking and writing accept only
// payloads that carry response text; reading and listening accept every
// variant, rendering answer keys as Expected so a provider can explain an
// objectively graded item.
func NewTask(in domain.OrchestratorInput, timeout time.Duration) (Task, error) {
	common := Common{
		QuestionType:     in.QuestionType,
		Timeout:          timeout,
		IncludeRationale: in.IncludeRationale,
	}
	t := Task{Section: in.Section, timeout: timeout}

	switch in.Section {
	case domain.SectionSpeaking:
		switch p := domain.Deref(in.Payload).(type) {
		case domain.SpeakingPayload:
			t.speaking = SpeakingInput{Common: common, Prompt: p.Prompt, ReferenceText: p.ReferenceText, Transcript: p.Transcript}
		case domain.ResponsePayload:
			t.speaking = SpeakingInput{Common: common, Prompt: p.Prompt, Transcript: p.Text}
		default:
			return Task{}, mismatch(in)
		}
	case domain.SectionWriting:
		switch p := domain.Deref(in.Payload).(type) {
		case domain.WritingPayload:
			t.writing = WritingInput{Common: common, Prompt: p.Prompt, Text: p.Text, MinWords: p.MinWords, MaxWords: p.MaxWords}
		case domain.ResponsePayload:
			t.writing = WritingInput{Common: common, Prompt: p.Prompt, Text: p.Text}
		default:
			return Task{}, mismatch(in)
		}
	case domain.SectionReading:
		item, err := describeItem(in)
		if err != nil {
			return Task{}, err
		}
		t.reading = ReadingInput{
			Common:   common,
			Prompt:   item.prompt,
			Passage:  item.context,
			Options:  item.options,
			Response: item.response,
			Expected: item.expected,
		}
	case domain.SectionListening:
		item, err := describeItem(in)
		if err != nil {
			return Task{}, err
		}
		t.listening = ListeningInput{
			Common:     common,
			Prompt:     item.prompt,
			Transcript: item.context,
			Options:    item.options,
			Response:   item.response,
			Expected:   item.expected,
		}
	default:
		return Task{}, fmt.Errorf("%w: unknown section %q", domain.ErrInvalidInput, in.Section)
	}
	return t, nil
}

// Timeout is the per-call bound the task was built with.
func (t Task) Timeout() time.Duration { return t.timeout }

// Run invokes the section method of p.
func (t Task) Run(ctx context.Context, p Provider) (domain.RawProviderScore, error) {
	switch t.Section {
	case domain.SectionSpeaking:
		return p.ScoreSpeaking(ctx, t.speaking)
	case domain.SectionWriting:
		return p.ScoreWriting(ctx, t.writing)
	case domain.SectionListening:
		return p.ScoreListening(ctx, t.listening)
	default:
		return p.ScoreReading(ctx, t.reading)
	}
}

// item is the section-neutral rendering of a reading or listening payload.
type item struct {
	prompt   string
	context  string
	options  []string
	response string
	expected string
}

func describeItem(in domain.OrchestratorInput) (item, error) {
	switch p := domain.Deref(in.Payload).(type) {
	case domain.MCQSinglePayload:
		return item{prompt: p.Prompt, options: p.Options, response: p.SelectedOption, expected: p.CorrectOption}, nil
	case domain.MCQMultiplePayload:
		return item{
			prompt:   p.Prompt,
			options:  p.Options,
			response: strings.Join(p.SelectedOptions, ", "),
			expected: strings.Join(p.CorrectOptions, ", "),
		}, nil
	case domain.FillInBlanksPayload:
		return item{
			context:  p.Passage,
			response: strings.Join(p.Answers, " | "),
			expected: strings.Join(p.Correct, " | "),
		}, nil
	case domain.ReorderPayload:
		return item{
			options:  p.Paragraphs,
			response: strings.Join(p.UserOrder, " > "),
			expected: strings.Join(p.CorrectOrder, " > "),
		}, nil
	case domain.DictationPayload:
		return item{response: p.UserText, expected: p.TargetText}, nil
	case domain.ResponsePayload:
		ctxText := p.Passage
		if ctxText == "" {
			ctxText = p.Transcript
		}
		return item{prompt: p.Prompt, context: ctxText, options: p.Options, response: p.Text}, nil
	case domain.WritingPayload:
		return item{prompt: p.Prompt, response: p.Text}, nil
	case domain.SpeakingPayload:
		return item{prompt: p.Prompt, context: p.ReferenceText, response: p.Transcript}, nil
	default:
		return item{}, mismatch(in)
	}
}

func mismatch(in domain.OrchestratorInput) error {
	kind := "nil"
	if p := domain.Deref(in.Payload); p != nil {
		kind = string(p.Kind())
	}
	return fmt.Errorf("%w: %s payload cannot be scored as %s", domain.ErrInvalidPayload, kind, in.Section)
}
