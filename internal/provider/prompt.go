package provider

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ahrav/go-ptescore/internal/domain"
)

// Prompt templates are parsed once and only ever executed.
var (
	systemTemplate = template.Must(template.New("system").Parse(
		`You are a certified PTE Academic examiner scoring a {{.Section}} item ({{.QuestionType}}).
Score the candidate on the PTE Academic scale from 0 to 90 using the official
scoring criteria for this item type. Be strict and consistent: identical
responses must receive identical scores.
Reply with one JSON object and nothing else, in exactly this shape:
{"overall": <integer 0-90>, "subscores": { {{- range $i, $d := .Dimensions}}{{if $i}}, {{end}}"{{$d}}": <integer 0-90>{{end}} }, "scale": 90, "rationale": {{if .IncludeRationale}}"<two or three sentences of feedback addressed to the candidate>"{{else}}""{{end}}}`))

	speakingTemplate = template.Must(template.New("speaking").Parse(
		`{{with .Prompt}}Prompt shown to the candidate:
{{.}}

{{end}}{{with .ReferenceText}}Reference text:
{{.}}

{{end}}Transcript of the candidate's spoken response:
{{.Transcript}}

Judge pronunciation and fluency from transcription cues such as hesitations,
repetitions and self-corrections.`))

	writingTemplate = template.Must(template.New("writing").Parse(
		`{{with .Prompt}}Prompt shown to the candidate:
{{.}}

{{end}}Candidate response ({{.WordCount}} words{{if .Limits}}, required {{.Limits}}{{end}}):
{{.Text}}`))

	itemTemplate = template.Must(template.New("item").
			Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
			Parse(
		`{{with .Prompt}}Prompt shown to the candidate:
{{.}}

{{end}}{{with .Context}}{{$.ContextLabel}}:
{{.}}

{{end}}{{with .Options}}Options:
{{range $i, $o := .}}{{$i | inc}}. {{$o}}
{{end}}
{{end}}Candidate response:
{{.Response}}
{{with .Expected}}
Answer key:
{{.}}
{{end}}`))
)

type systemData struct {
	Section          domain.TestSection
	QuestionType     domain.QuestionType
	Dimensions       []string
	IncludeRationale bool
}

type writingData struct {
	WritingInput
	WordCount int
	Limits    string
}

type itemData struct {
	Prompt       string
	ContextLabel string
	Context      string
	Options      []string
	Response     string
	Expected     string
}

// Prompt is a rendered system and user message pair.
type Prompt struct {
	System string
	User   string
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func systemPrompt(section domain.TestSection, c Common) (string, error) {
	return render(systemTemplate, systemData{
		Section:          section,
		QuestionType:     c.QuestionType,
		Dimensions:       domain.Dimensions(section),
		IncludeRationale: c.IncludeRationale,
	})
}

// SpeakingPrompt renders the prompt pair for a speaking item.
func SpeakingPrompt(in SpeakingInput) (Prompt, error) {
	return buildPrompt(domain.SectionSpeaking, in.Common, speakingTemplate, in)
}

// WritingPrompt renders the prompt pair for a writing item.
func WritingPrompt(in WritingInput) (Prompt, error) {
	data := writingData{WritingInput: in, WordCount: len(strings.Fields(in.Text))}
	switch {
	case in.MinWords > 0 && in.MaxWords > 0:
		data.Limits = fmt.Sprintf("%d-%d words", in.MinWords, in.MaxWords)
	case in.MaxWords > 0:
		data.Limits = fmt.Sprintf("at most %d words", in.MaxWords)
	case in.MinWords > 0:
		data.Limits = fmt.Sprintf("at least %d words", in.MinWords)
	}
	return buildPrompt(domain.SectionWriting, in.Common, writingTemplate, data)
}

// ReadingPrompt renders the prompt pair for a reading item.
func ReadingPrompt(in ReadingInput) (Prompt, error) {
	return buildPrompt(domain.SectionReading, in.Common, itemTemplate, itemData{
		Prompt:       in.Prompt,
		ContextLabel: "Passage",
		Context:      in.Passage,
		Options:      in.Options,
		Response:     in.Response,
		Expected:     in.Expected,
	})
}

// ListeningPrompt renders the prompt pair for a listening item.
func ListeningPrompt(in ListeningInput) (Prompt, error) {
	return buildPrompt(domain.SectionListening, in.Common, itemTemplate, itemData{
		Prompt:       in.Prompt,
		ContextLabel: "Audio transcript",
		Context:      in.Transcript,
		Options:      in.Options,
		Response:     in.Response,
		Expected:     in.Expected,
	})
}

func buildPrompt(section domain.TestSection, c Common, t *template.Template, data any) (Prompt, error) {
	sys, err := systemPrompt(section, c)
	if err != nil {
		return Prompt{}, err
	}
	user, err := render(t, data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: sys, User: user}, nil
}
