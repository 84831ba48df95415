package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseProperties_FlattensNestedAndDotted(t *testing.T) {
	src := []byte(`
max-upload-size: 4096
on-behalf-of:
  enable: true
accepts: [application/zip, text/xml]
accept-packaging:
  METSDSpaceSIP:
    identifier: http://purl.org/net/sword-types/METSDSpaceSIP
    q: 1.0
accept-packaging.123456789/2.METSDSpaceSIP.q: 0.5
`)
	got, err := ParseProperties(src)
	if err != nil {
		t.Fatalf("ParseProperties: %v", err)
	}
	want := Properties{
		"max-upload-size":     "4096",
		"on-behalf-of.enable": "true",
		"accepts":             "application/zip,text/xml",
		"accept-packaging.METSDSpaceSIP.identifier":    "http://purl.org/net/sword-types/METSDSpaceSIP",
		"accept-packaging.METSDSpaceSIP.q":             "1",
		"accept-packaging.123456789/2.METSDSpaceSIP.q": "0.5",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestProperties_Accessors(t *testing.T) {
	p := Properties{"a": " x ", "b": "true", "c": "nope", "n": "12", "accept.x": "1", "accept.y": "2"}
	if p.Get("a", "d") != "x" || p.Get("missing", "d") != "d" {
		t.Fatalf("Get mismatch")
	}
	if !p.Bool("b", false) || !p.Bool("c", true) || p.Bool("missing", false) {
		t.Fatalf("Bool mismatch")
	}
	if p.Int("n", 0) != 12 || p.Int("c", 7) != 7 {
		t.Fatalf("Int mismatch")
	}
	if diff := cmp.Diff([]string{"accept.x", "accept.y"}, p.WithPrefix("accept.")); diff != "" {
		t.Fatalf("WithPrefix (-want +got):\n%s", diff)
	}
}

func TestLoadProperties(t *testing.T) {
	got, err := LoadProperties("")
	if err != nil || len(got) != 0 {
		t.Fatalf("empty path: %v %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sword.yaml")
	if err := os.WriteFile(path, []byte("keep-original-package: false\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = LoadProperties(path)
	if err != nil {
		t.Fatalf("LoadProperties: %v", err)
	}
	if got.Bool("keep-original-package", true) {
		t.Fatalf("expected false, got %v", got)
	}

	if _, err := LoadProperties(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestMayBytes(t *testing.T) {
	c := New().Prefix("SZ_")
	t.Setenv("SZ_LIMIT", "10MB")
	if got := c.MayBytes("LIMIT", 1); got != 10_000_000 {
		t.Fatalf("MayBytes = %d", got)
	}
	t.Setenv("SZ_BAD", "ten")
	if got := c.MayBytes("BAD", 7); got != 7 {
		t.Fatalf("MayBytes invalid = %d", got)
	}
	if got := c.MayBytes("MISSING", 3); got != 3 {
		t.Fatalf("MayBytes missing = %d", got)
	}
}
