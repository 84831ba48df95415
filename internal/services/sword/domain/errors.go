package domain

import (
	stderrs "errors"
	"fmt"

	perr "sword/internal/platform/errors"
)

// SWORD protocol error URIs
const (
	swordErrorBase = "http://purl.org/net/sword/error/"

	ErrorContent          = swordErrorBase + "ErrorContent"
	ErrorChecksumMismatch = swordErrorBase + "ErrorChecksumMismatch"
	ErrorBadRequest       = swordErrorBase + "ErrorBadRequest"
	TargetOwnerUnknown    = swordErrorBase + "TargetOwnerUnknown"
	MediationNotAllowed   = swordErrorBase + "MediationNotAllowed"
	MaxUploadSizeExceeded = swordErrorBase + "MAX_UPLOAD_SIZE_EXCEEDED"
)

// Repository specific error URIs
const (
	dspaceErrorBase = "http://www.dspace.org/ns/sword/1.3.1/errors/"

	BadURL                 = dspaceErrorBase + "BadUrl"
	MediaUnavailable       = dspaceErrorBase + "MediaUnavailable"
	PackageError           = dspaceErrorBase + "PackageError"
	PackageValidationError = dspaceErrorBase + "PackageValidationError"
	RepositoryError        = dspaceErrorBase + "RepositoryError"
	UnpackageFail          = dspaceErrorBase + "UnpackageFail"
)

// codes maps each URI onto the platform error code that carries its HTTP status
var codes = map[string]perr.ErrorCode{
	ErrorContent:           perr.ErrorCodeUnsupportedMediaType,
	ErrorChecksumMismatch:  perr.ErrorCodePreconditionFailed,
	ErrorBadRequest:        perr.ErrorCodeValidation,
	TargetOwnerUnknown:     perr.ErrorCodeUnauthorized,
	MediationNotAllowed:    perr.ErrorCodePreconditionFailed,
	MaxUploadSizeExceeded:  perr.ErrorCodeTooLarge,
	BadURL:                 perr.ErrorCodeValidation,
	MediaUnavailable:       perr.ErrorCodeNotFound,
	PackageError:           perr.ErrorCodeValidation,
	PackageValidationError: perr.ErrorCodeValidation,
	RepositoryError:        perr.ErrorCodeUnknown,
	UnpackageFail:          perr.ErrorCodeValidation,
}

// ProtocolError is a failure reported to the client as a SWORD error document
// the wrapped *perr.Error carries the status code
type ProtocolError struct {
	URI         string
	Description string
	cause       error
}

// Fail builds a ProtocolError for uri
func Fail(uri, format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return &ProtocolError{URI: uri, Description: msg, cause: perr.New(codeOf(uri), msg)}
}

// FailWrap builds a ProtocolError for uri that keeps orig in the chain
func FailWrap(orig error, uri, format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return &ProtocolError{URI: uri, Description: msg, cause: perr.Wrap(orig, codeOf(uri), msg)}
}

func codeOf(uri string) perr.ErrorCode {
	if c, ok := codes[uri]; ok {
		return c
	}
	return perr.ErrorCodeUnknown
}

func (e *ProtocolError) Error() string { return e.cause.Error() }

// Unwrap exposes the platform error so perr.CodeOf and perr.HTTPStatus see it
func (e *ProtocolError) Unwrap() error { return e.cause }

// Status is the HTTP status the error is reported with
func (e *ProtocolError) Status() int { return perr.HTTPStatus(e.cause) }

// AsProtocol unwraps err to a *ProtocolError
func AsProtocol(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if stderrs.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsProtocol reports whether err is a ProtocolError with the given uri
func IsProtocol(err error, uri string) bool {
	pe, ok := AsProtocol(err)
	return ok && pe.URI == uri
}

// AuthenticationError is an authentication or authorization refusal (HTTP 401)
type AuthenticationError struct {
	cause error
}

// AuthFailed builds an AuthenticationError
func AuthFailed(format string, a ...any) error {
	return &AuthenticationError{cause: perr.Unauthorizedf(format, a...)}
}

func (e *AuthenticationError) Error() string { return e.cause.Error() }
func (e *AuthenticationError) Unwrap() error { return e.cause }

// IsAuthFailure reports whether err is an AuthenticationError
func IsAuthFailure(err error) bool {
	var ae *AuthenticationError
	return stderrs.As(err, &ae)
}
