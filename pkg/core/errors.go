package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	ErrNotFound          = errors.New("document not found")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDuplicateCategory = errors.New("category listed more than once")
	ErrEmptyCategory     = errors.New("no documents resolved for category")
	ErrUnclassified      = errors.New("include file matches no category in order")
	ErrAmbiguous         = errors.New("include file matches more than one category")
	ErrMissingField      = errors.New("required field missing")
	ErrDuplicateRule     = errors.New("duplicate rule name")
	ErrDuplicateOutput   = errors.New("output path claimed by more than one rule")
	ErrUnknownRule       = errors.New("no such rule")
	ErrStale             = errors.New("output is stale")
)

// Error kinds reported in build summaries.
const (
	KindManifest           = "ManifestError"
	KindCategoryResolution = "CategoryResolutionError"
	KindMissingDocument    = "MissingDocumentError"
	KindWrite              = "WriteError"
	KindStale              = "StaleOutput"
	KindCancelled          = "Cancelled"
	KindUnknown            = "Error"
)

// ManifestError reports a malformed or inconsistent manifest.
// It aborts a build before any rule runs.
type ManifestError struct {
	Source string
	Rule   string
	Field  string
	Err    error
}

func (e *ManifestError) Error() string {
	var sb strings.Builder
	sb.WriteString("manifest")
	if e.Source != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Source)
	}
	if e.Rule != "" {
		fmt.Fprintf(&sb, ": rule %q", e.Rule)
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, ": field %s", e.Field)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	return sb.String()
}

func (e *ManifestError) Unwrap() error { return e.Err }

// Kind returns the error kind.
func (e *ManifestError) Kind() string { return KindManifest }

// CategoryResolutionError reports that a rule's order cannot be satisfied.
type CategoryResolutionError struct {
	Rule     string
	Category Category
	Path     string
	Err      error
}

func (e *CategoryResolutionError) Error() string {
	msg := fmt.Sprintf("rule %q", e.Rule)
	if e.Category != "" {
		msg += fmt.Sprintf(": category %s", e.Category)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(": path %s", e.Path)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *CategoryResolutionError) Unwrap() error { return e.Err }

// Kind returns the error kind.
func (e *CategoryResolutionError) Kind() string { return KindCategoryResolution }

// MissingDocumentError reports a referenced document that does not exist or
// cannot be read.
type MissingDocumentError struct {
	Rule string
	Path string
	Err  error
}

func (e *MissingDocumentError) Error() string {
	return fmt.Sprintf("rule %q: path %s: %v", e.Rule, e.Path, e.Err)
}

func (e *MissingDocumentError) Unwrap() error { return e.Err }

// Kind returns the error kind.
func (e *MissingDocumentError) Kind() string { return KindMissingDocument }

// WriteError reports an output that could not be written.
type WriteError struct {
	Rule string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("rule %q: output %s: %v", e.Rule, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Kind returns the error kind.
func (e *WriteError) Kind() string { return KindWrite }

// ErrorKind classifies err for user-facing summaries.
func ErrorKind(err error) string {
	var k interface{ Kind() string }
	switch {
	case err == nil:
		return ""
	case errors.As(err, &k):
		return k.Kind()
	case errors.Is(err, ErrStale):
		return KindStale
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	}
	return KindUnknown
}
