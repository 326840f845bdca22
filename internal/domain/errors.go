package domain

import (
	"errors"
	"strings"
)

// ErrInvalidFormat is returned when input is malformed or degenerate
// (e.g. a CEP that is not 8 digits). It is detected before any I/O happens.
// Handlers should map this to HTTP 400/422.
var ErrInvalidFormat = errors.New("invalid format")

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist, locally or upstream.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrTransport is returned when the external address lookup is unreachable,
// times out, or answers with something that is not a definitive result.
// Callers may retry with backoff. Handlers should map this to HTTP 502.
var ErrTransport = errors.New("transport failure")

// ErrStorage is returned when the local persistent store fails on a read or write.
var ErrStorage = errors.New("storage failure")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing product name).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write violates a uniqueness constraint.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// kinds lists every sentinel KindOf recognises, most specific first.
var kinds = []error{
	ErrInvalidFormat,
	ErrValidation,
	ErrNotFound,
	ErrConflict,
	ErrTransport,
	ErrStorage,
}

// Error is a kind-tagged error. Kind is one of the sentinels above, Op names
// the operation that failed ("service.Resolver.Resolve") and Detail carries the
// human-readable reason.
//
// errors.Is(err, domain.ErrTransport) matches on Kind, and the wrapped Err
// stays reachable for errors.As.
type Error struct {
	Kind   error
	Op     string
	Detail string
	Err    error
}

// NewError builds an *Error. err may be nil.
func NewError(kind error, op, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the sentinel kind carried by err, or nil when err is nil or
// carries no known kind.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) && de.Kind != nil {
		return de.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Detail returns the human-readable detail of a kind-tagged error, falling
// back to err.Error() for plain errors.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	return err.Error()
}
