// Package keys maps a job identifier to the three storage keys that make a
// bucket behave like a mailbox: the input object the submitter writes, and
// the success/error objects whose presence signals the outcome.
package keys

import (
	"path/filepath"
	"strings"
)

const (
	DefaultInputPrefix  = "input/"
	DefaultOutputPrefix = "output/"
)

var supportedExts = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// Supported reports whether the identifier's extension is convertible.
// The check is case-insensitive.
func Supported(identifier string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(identifier))]
}

// ContentType returns the MIME type for a supported identifier.
func ContentType(identifier string) string {
	switch strings.ToLower(filepath.Ext(identifier)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// Scheme fixes the prefixes under which inputs and outputs live.
type Scheme struct {
	InputPrefix  string
	OutputPrefix string
}

// Default returns the scheme both sides assume unless overridden:
// inputs under input/, outputs under output/.
func Default() Scheme {
	return Scheme{InputPrefix: DefaultInputPrefix, OutputPrefix: DefaultOutputPrefix}
}

// Set holds the three derived keys for one job. They are pairwise distinct
// for any identifier because the success and error keys carry fixed,
// different suffixes under the output prefix.
type Set struct {
	Input   string
	Success string
	Error   string
}

// SafeBase strips any path-like prefix from the identifier and rewrites
// separator characters left in the base name, so an attacker-influenced
// identifier cannot smuggle nested keys into the bucket layout.
func SafeBase(identifier string) string {
	name := identifier
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}

// Derive computes the key set for an identifier. It is a pure function:
// submitter and worker call it independently and must agree byte for byte.
//
// Two distinct identifiers with the same stem (a/report.pdf, b/report.pdf)
// share output keys; the last writer wins. That collision is part of the
// published key layout, not something to silently disambiguate.
func (s Scheme) Derive(identifier string) Set {
	base := SafeBase(identifier)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return Set{
		Input:   s.InputPrefix + base,
		Success: s.OutputPrefix + stem + ".md",
		Error:   s.OutputPrefix + stem + ".error.txt",
	}
}

// InInput reports whether a key lies under the scheme's input prefix.
func (s Scheme) InInput(key string) bool {
	return strings.HasPrefix(key, s.InputPrefix)
}
