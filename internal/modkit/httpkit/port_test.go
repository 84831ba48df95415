package httpkit

import (
	"errors"
	"net/http"
	"testing"

	perrs "sword/internal/platform/errors"
)

func TestPort_Parse_MissingHeader(t *testing.T) {
	t.Parallel()

	p := NewPortFunc(func(string, string) error {
		t.Fatalf("checker should not be called when header is missing")
		return nil
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	who, obo, err := p.Parse(req)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if who != "" || obo != "" {
		t.Fatalf("expected empty ids, got %q %q", who, obo)
	}

	var pe *perrs.Error
	if !errors.As(err, &pe) || pe.Code() != perrs.ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized perrs error, got %#v", err)
	}
}

func TestPort_Parse_WrongScheme(t *testing.T) {
	t.Parallel()

	p := NewPortFunc(nil)
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	if _, _, err := p.Parse(req); err == nil {
		t.Fatalf("expected error for wrong scheme")
	}
}

func TestPort_Parse_RejectedCredentials(t *testing.T) {
	t.Parallel()

	calls := 0
	p := NewPortFunc(func(user, pass string) error {
		calls++
		if user != "depositor" || pass != "wrong" {
			t.Fatalf("unexpected pair %q %q", user, pass)
		}
		return errors.New("nope")
	})

	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	req.SetBasicAuth("depositor", "wrong")
	if _, _, err := p.Parse(req); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if calls != 1 {
		t.Fatalf("expected checker called once, got %d", calls)
	}
}

func TestPort_Parse_ValidWithOnBehalfOf(t *testing.T) {
	t.Parallel()

	p := NewPortFunc(nil)
	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	req.SetBasicAuth("depositor", "secret")
	req.Header.Set(HeaderOnBehalfOf, "  student@example.org ")

	who, obo, err := p.Parse(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if who != "depositor" || obo != "student@example.org" {
		t.Fatalf("unexpected ids, got %q %q", who, obo)
	}
}

func TestPort_Parse_NilPort(t *testing.T) {
	t.Parallel()

	var p *Port
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("u", "p")
	if who, _, err := p.Parse(req); err != nil || who != "u" {
		t.Fatalf("nil port should only parse the header, got %q %v", who, err)
	}
}
