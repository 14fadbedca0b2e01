// Package apperr defines the error taxonomy shared by the domain services,
// the storage gateways and the HTTP layer.
package apperr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

// Kind classifies an error for callers. It is stable and exposed on the wire.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindReference         Kind = "reference_error"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindStorage           Kind = "storage_error"
	KindInitialization    Kind = "initialization_error"
	KindInternal          Kind = "internal_error"
)

// Error is the single error type carrying a Kind. Op names the operation that
// failed, Fields holds per-field validation messages.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", k, e.Fields[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so sentinel-style checks such as
// errors.Is(err, apperr.ErrValidation) work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

// Kind sentinels for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrReference         = &Error{Kind: KindReference}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrStorage           = &Error{Kind: KindStorage}
	ErrInitialization    = &Error{Kind: KindInitialization}
)

// Validation reports malformed caller input.
func Validation(op, msg string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Op: op, Message: msg, Fields: fields}
}

// Reference reports a dangling foreign key.
func Reference(op, msg string, err error) error {
	return &Error{Kind: KindReference, Op: op, Message: msg, Err: err}
}

// InvalidTransition reports an illegal status change.
func InvalidTransition(op string, from, to fmt.Stringer) error {
	return &Error{
		Kind:    KindInvalidTransition,
		Op:      op,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NotFound reports a missing entity addressed by id.
func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: msg}
}

// Unauthorized reports failed authentication.
func Unauthorized(op, msg string) error {
	return &Error{Kind: KindUnauthorized, Op: op, Message: msg}
}

// Storage wraps a gateway or store failure. Already classified errors pass
// through untouched.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorage, Op: op, Message: "store unavailable", Err: err}
}

// Initialization reports missing or invalid configuration at startup.
func Initialization(msg string, err error) error {
	return &Error{Kind: KindInitialization, Message: msg, Err: err}
}

// KindOf extracts the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldsOf returns the per-field messages attached to err, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// MessageOf returns a caller-safe message. Wrapped causes of storage and
// internal errors are not exposed.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindStorage:
		return "store unavailable"
	case KindInternal:
		return "internal error"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}
