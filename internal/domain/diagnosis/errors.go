package diagnosis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDisease is returned when a disease key has no schema.
var ErrUnknownDisease = errors.New("unknown disease")

// Field failure reasons.
const (
	ReasonMissing    = "missing"
	ReasonInvalid    = "invalid"
	ReasonOutOfRange = "out_of_range"
)

// FieldError names one offending field.
type FieldError struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// ValidationError lists every missing or bad field of a submission, in form
// order.
type ValidationError struct {
	Disease string       `json:"disease"`
	Fields  []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid or missing fields: %s", e.Disease, strings.Join(e.Labels(), ", "))
}

// Labels returns the display labels of the offending fields.
func (e *ValidationError) Labels() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Label
	}
	return out
}

// Names returns the input keys of the offending fields.
func (e *ValidationError) Names() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Name
	}
	return out
}

// ModelUnavailableError means the registry has no model for the disease.
type ModelUnavailableError struct {
	Disease string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model for %s is unavailable, please try again later", e.Disease)
}

// PredictionError wraps a failed or malformed model call. When an override
// rule matched the submission, Override holds the rule-only result so the
// caller can still surface its guidance; it never carries a model verdict.
type PredictionError struct {
	Disease  string
	Err      error
	Override *Result
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed for %s: %v", e.Disease, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

var (
	errPredictTimeout = errors.New("model call timed out")
	errPredictArity   = errors.New("model returned wrong number of values")
	errPredictValue   = errors.New("model returned a non-binary verdict")
)
