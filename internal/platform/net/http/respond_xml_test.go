package http

import (
	"encoding/xml"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type xmlDoc struct {
	XMLName xml.Name `xml:"doc"`
	Title   string   `xml:"title"`
}

func TestXML_WritesHeaderAndBody(t *testing.T) {
	rr := httptest.NewRecorder()
	if err := XML(rr, stdhttp.StatusCreated, "application/atom+xml; charset=UTF-8", xmlDoc{Title: "a & b"}); err != nil {
		t.Fatalf("XML: %v", err)
	}
	if rr.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/atom+xml; charset=UTF-8" {
		t.Fatalf("content type = %q", ct)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "<?xml") || !strings.Contains(body, "<title>a &amp; b</title>") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestXML_DefaultContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	_ = XML(rr, stdhttp.StatusOK, "", xmlDoc{})
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("content type = %q", ct)
	}
}
