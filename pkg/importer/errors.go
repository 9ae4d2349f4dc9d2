package importer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies import failures so the runner can tell abort-worthy
// conditions apart from per-record skips.
type ErrorKind string

const (
	// KindAuthentication covers token endpoint failures. Fatal for the run.
	KindAuthentication ErrorKind = "authentication"
	// KindFetch covers inventory endpoint and decode failures. Fatal for the run.
	KindFetch ErrorKind = "fetch"
	// KindMapping covers per-record canonicalization failures. Skips the record.
	KindMapping ErrorKind = "mapping"
	// KindValidation covers per-record constraint violations. Skips the record.
	KindValidation ErrorKind = "validation"
	// KindSink covers per-record persistence failures. Skips the record.
	KindSink ErrorKind = "sink"
)

// ImportError carries the failure kind plus whatever identity the record had.
type ImportError struct {
	Kind      ErrorKind
	Reference string
	Message   string
	cause     error
}

func NewImportError(kind ErrorKind, msg string) *ImportError {
	return &ImportError{Kind: kind, Message: msg}
}

func NewImportErrorf(kind ErrorKind, format string, args ...any) *ImportError {
	return &ImportError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapImportError attaches a kind to an arbitrary error, preserving an
// existing ImportError as-is.
func WrapImportError(kind ErrorKind, err error) *ImportError {
	if err == nil {
		return nil
	}

	var ie *ImportError
	if errors.As(err, &ie) {
		return ie
	}

	return &ImportError{Kind: kind, Message: err.Error(), cause: err}
}

func (e *ImportError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("%s: record '%s': %s", e.Kind, e.Reference, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.cause
}

// AddReference tags the error with the record's identity.
func (e *ImportError) AddReference(ref string) *ImportError {
	e.Reference = ref
	return e
}

// IsFatal reports whether the error aborts the whole run. Network and
// transport errors never reach per-record handling.
func (e *ImportError) IsFatal() bool {
	return e.Kind == KindAuthentication || e.Kind == KindFetch
}

// KindOf extracts the error kind, defaulting to KindMapping for untyped
// per-record errors.
func KindOf(err error) ErrorKind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindMapping
}
