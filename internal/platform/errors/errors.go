// Package errors is the coded error type every layer returns
// import it as perr so it never shadows the std package
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error for status mapping and the JSON envelope
// the numeric values appear on the wire, so new codes go at the end
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable
	ErrorCodeTooManyRequests
	ErrorCodeConflict
	ErrorCodeUnauthorized
	ErrorCodeForbidden
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB
	ErrorCodeUnsupportedMediaType
	ErrorCodePreconditionFailed // checksum mismatch, refused mediation
	ErrorCodeTooLarge
)

var codeInfo = [...]struct {
	name   string
	status int
}{
	ErrorCodeUnknown:              {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:                {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:          {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeTooManyRequests:      {"too_many_requests", http.StatusTooManyRequests},
	ErrorCodeConflict:             {"conflict", http.StatusConflict},
	ErrorCodeUnauthorized:         {"unauthorized", http.StatusUnauthorized},
	ErrorCodeForbidden:            {"forbidden", http.StatusForbidden},
	ErrorCodeInvalidArgument:      {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:           {"validation", http.StatusBadRequest},
	ErrorCodeNotFound:             {"not_found", http.StatusNotFound},
	ErrorCodeDuplicateKey:         {"duplicate_key", http.StatusConflict},
	ErrorCodeDB:                   {"db", http.StatusInternalServerError},
	ErrorCodeUnsupportedMediaType: {"unsupported_media_type", http.StatusUnsupportedMediaType},
	ErrorCodePreconditionFailed:   {"precondition_failed", http.StatusPreconditionFailed},
	ErrorCodeTooLarge:             {"too_large", http.StatusRequestEntityTooLarge},
}

// String is the code's log name
func (c ErrorCode) String() string {
	if int(c) < len(codeInfo) {
		return codeInfo[c].name
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// HTTPStatusCode maps a code to its status; unknown codes are 500
func HTTPStatusCode(c ErrorCode) int {
	if int(c) < len(codeInfo) {
		return codeInfo[c].status
	}
	return http.StatusInternalServerError
}

// ErrNotFound is returned by lookups that found nothing to name
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error carries a code, a message safe to show callers, an optional
// offending field and the cause it wraps
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

// Wire is the error half of the JSON envelope
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.orig == nil:
		return e.msg
	default:
		return e.msg + ": " + e.orig.Error()
	}
}

func (e *Error) Unwrap() error { return e.orig }

// Code is the classification
func (e *Error) Code() ErrorCode { return e.code }

// Field names the input the error is about, blank when none
func (e *Error) Field() string { return e.field }

// ToWire drops the cause; only msg reaches the caller
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom renders any error; foreign errors keep their text under ErrorCodeUnknown
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// As finds the outermost *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf is ErrorCodeUnknown for errors without an *Error in the chain
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err classifies as code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus is the status err should be answered with
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// WithField returns a copy of err naming field; foreign errors come back as is
func WithField(err error, field string) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	c.field = field
	return &c
}

func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

func Newf(code ErrorCode, format string, a ...any) error {
	return New(code, fmt.Sprintf(format, a...))
}

// Wrap classifies orig; orig stays reachable through errors.Is and errors.As
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return Wrap(orig, code, fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) error     { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error   { return Newf(ErrorCodeInvalidArgument, format, a...) }
func DuplicateKeyf(format string, a ...any) error { return Newf(ErrorCodeDuplicateKey, format, a...) }
func PanicErrf(format string, a ...any) error     { return Newf(ErrorCodePanic, format, a...) }
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }
func Forbiddenf(format string, a ...any) error    { return Newf(ErrorCodeForbidden, format, a...) }
func Conflictf(format string, a ...any) error     { return Newf(ErrorCodeConflict, format, a...) }
func Internalf(format string, a ...any) error     { return Newf(ErrorCodeUnknown, format, a...) }
