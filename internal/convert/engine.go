// Package convert defines the conversion capability the worker depends on
// and its production implementation on Vertex AI.
package convert

import "context"

// Engine turns a local document file into Markdown text.
type Engine interface {
	Convert(ctx context.Context, path string) (string, error)
}

// ConversionError is a failure of the engine itself, as opposed to the
// transport around it. Reason is the human-readable diagnostic that ends up
// in the job's error artifact.
type ConversionError struct {
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ConversionError) Unwrap() error { return e.Err }
