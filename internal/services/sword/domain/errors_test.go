package domain

import (
	"errors"
	"net/http"
	"testing"

	perr "sword/internal/platform/errors"
)

func TestProtocolError_StatusPerURI(t *testing.T) {
	cases := []struct {
		uri  string
		want int
	}{
		{ErrorContent, http.StatusUnsupportedMediaType},
		{ErrorChecksumMismatch, http.StatusPreconditionFailed},
		{ErrorBadRequest, http.StatusBadRequest},
		{TargetOwnerUnknown, http.StatusUnauthorized},
		{MediationNotAllowed, http.StatusPreconditionFailed},
		{MaxUploadSizeExceeded, http.StatusRequestEntityTooLarge},
		{BadURL, http.StatusBadRequest},
		{MediaUnavailable, http.StatusNotFound},
		{PackageError, http.StatusBadRequest},
		{PackageValidationError, http.StatusBadRequest},
		{UnpackageFail, http.StatusBadRequest},
		{RepositoryError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := Fail(tc.uri, "boom %d", 1)
		pe, ok := AsProtocol(err)
		if !ok {
			t.Fatalf("%s: not a protocol error", tc.uri)
		}
		if pe.Status() != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.uri, pe.Status(), tc.want)
		}
		if perr.HTTPStatus(err) != tc.want {
			t.Fatalf("%s: perr status %d, want %d", tc.uri, perr.HTTPStatus(err), tc.want)
		}
		if pe.Description != "boom 1" {
			t.Fatalf("description = %q", pe.Description)
		}
	}
}

func TestFailWrap_KeepsCause(t *testing.T) {
	root := errors.New("zip: not a valid zip file")
	err := FailWrap(root, UnpackageFail, "cannot read package")
	if !errors.Is(err, root) {
		t.Fatalf("cause lost")
	}
	if !IsProtocol(err, UnpackageFail) || IsProtocol(err, BadURL) {
		t.Fatalf("IsProtocol mismatch")
	}
}

func TestAuthFailed(t *testing.T) {
	err := AuthFailed("Cannot submit to the given collection with this context")
	if !IsAuthFailure(err) {
		t.Fatalf("expected auth failure")
	}
	if perr.HTTPStatus(err) != http.StatusUnauthorized {
		t.Fatalf("status = %d", perr.HTTPStatus(err))
	}
	if IsAuthFailure(Fail(BadURL, "x")) {
		t.Fatalf("protocol error is not an auth failure")
	}
}
