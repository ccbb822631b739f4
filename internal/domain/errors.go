package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindUnsupportedEventType ErrorKind = "unsupported_event_type"
	KindMissingIdentifier    ErrorKind = "missing_identifier"
	KindMalformedContent     ErrorKind = "malformed_content"
	KindDuplicateIdentifier  ErrorKind = "duplicate_identifier"
	KindPersistenceRead      ErrorKind = "persistence_read"
	KindPersistenceWrite     ErrorKind = "persistence_write"
	KindArtifactWrite        ErrorKind = "artifact_write"
	KindTemplateRender       ErrorKind = "template_render"
	KindNotificationDispatch ErrorKind = "notification_dispatch"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrUnsupportedEventType = &Error{Kind: KindUnsupportedEventType}
	ErrMissingIdentifier    = &Error{Kind: KindMissingIdentifier}
	ErrMalformedContent     = &Error{Kind: KindMalformedContent}
	ErrDuplicateIdentifier  = &Error{Kind: KindDuplicateIdentifier}
	ErrPersistenceRead      = &Error{Kind: KindPersistenceRead}
	ErrPersistenceWrite     = &Error{Kind: KindPersistenceWrite}
	ErrArtifactWrite        = &Error{Kind: KindArtifactWrite}
	ErrTemplateRender       = &Error{Kind: KindTemplateRender}
	ErrNotificationDispatch = &Error{Kind: KindNotificationDispatch}
)

// Error is the typed failure carried through the pipeline.
type Error struct {
	Kind   ErrorKind
	Field  string
	Path   string
	Detail string
	Err    error
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" [%s]", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the kind of a pipeline error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
