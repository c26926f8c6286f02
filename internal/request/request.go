// Package request reads score requests supplied as JSON documents, checking
// their shape against an embedded JSON Schema before decoding them.
package request

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ahrav/go-ptescore/internal/domain"
)

const schemaName = "score_request.schema.json"

//go:embed score_request.schema.json
var schemaJSON []byte

// printer renders schema violations.
var printer = message.NewPrinter(language.English)

var scoreRequestSchema = mustCompile(schemaJSON, schemaName)

func mustCompile(raw []byte, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ErrInvalidDocument wraps every shape violation found in a request.
var ErrInvalidDocument = errors.New("invalid score request document")

// Read decodes one score request from r. Shape violations are reported
// together, one per line, before any field is interpreted.
func Read(r io.Reader) (domain.ScoreRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.ScoreRequest{}, fmt.Errorf("reading request: %w", err)
	}
	return Decode(data)
}

// Decode validates data against the score request schema and decodes it.
func Decode(data []byte) (domain.ScoreRequest, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ScoreRequest{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if problems := Validate(doc); len(problems) > 0 {
		return domain.ScoreRequest{}, fmt.Errorf("%w:\n  %s", ErrInvalidDocument, strings.Join(problems, "\n  "))
	}

	var req domain.ScoreRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&req); err != nil {
		return domain.ScoreRequest{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return req, nil
}

// Validate returns one "location: problem" line per schema violation in
// doc, or nil when doc is a well-formed request.
func Validate(doc any) []string {
	err := scoreRequestSchema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var out []string
	collect(ve, &out)
	return out
}

func collect(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collect(c, out)
	}
}
