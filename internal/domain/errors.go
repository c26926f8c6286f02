package domain

import "errors"

// ErrInvalidInput indicates an OrchestratorInput or ScoreRequest failed
// validation.
var ErrInvalidInput = errors.New("invalid scoring input")

// ErrInvalidPayload indicates a payload could not be decoded for its
// section and question type, or is missing a required field.
var ErrInvalidPayload = errors.New("invalid payload")
