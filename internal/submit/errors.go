package submit

import (
	"fmt"
	"time"
)

// ValidationError is a local pre-flight failure: the job never touched the
// network. Never retried.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// TimeoutError means the deadline elapsed with neither output artifact
// present. It is a submitter-local judgment: the worker may still complete
// later, leaving a harmless orphaned artifact.
type TimeoutError struct {
	SuccessKey string
	ErrorKey   string
	Timeout    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s (or %s)", e.Timeout, e.SuccessKey, e.ErrorKey)
}

// ConversionFailedError carries the error artifact's exact text. LocalPath
// points at the downloaded copy kept for inspection, when that download
// succeeded.
type ConversionFailedError struct {
	Message   string
	LocalPath string
}

func (e *ConversionFailedError) Error() string {
	if e.LocalPath == "" {
		return "conversion failed: " + e.Message
	}
	return fmt.Sprintf("conversion failed (error file downloaded: %s): %s", e.LocalPath, e.Message)
}
