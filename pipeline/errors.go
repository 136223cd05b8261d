package pipeline

import (
	"errors"
	"fmt"
)

// Category classifies pipeline failures for callers.
type Category string

const (
	CategoryPlanning      Category = "planning"
	CategoryRetrieval     Category = "retrieval"
	CategorySanitization  Category = "sanitization"
	CategorySynthesis     Category = "synthesis"
	CategoryConfiguration Category = "configuration"
)

// Error is the structured failure a pipeline run surfaces: category,
// message, and the partial trace accumulated before the failure. It is never
// an opaque panic propagated to the presentation layer.
type Error struct {
	Category Category
	Stage    Stage
	Trace    *Trace
	cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Category, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewSynthesisError wraps a failed synthesis call together with the trace of
// the stages completed before it.
func NewSynthesisError(cause error, trace *Trace) *Error {
	return &Error{Category: CategorySynthesis, Stage: StageSynthesize, Trace: trace, cause: cause}
}

// IsCategory reports whether err is a pipeline error of the given category.
func IsCategory(err error, cat Category) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Category == cat
}

// TraceOf extracts the partial trace from a pipeline error, or nil.
func TraceOf(err error) *Trace {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Trace
	}
	return nil
}
