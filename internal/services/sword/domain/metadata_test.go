package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetadata_ValuesWildcardAndExact(t *testing.T) {
	var m Metadata
	m.Add("dc.title", "en", "A Title")
	m.Add("dc.subject", "", "plain")
	m.Add("dc.subject.lcsh", "", "Physics")
	m.Add("dc.subject.other", "", "Optics")
	m.Add("dc.description.abstract", "en", "Summary")

	if got := m.Values("dc.subject"); !cmp.Equal(got, []string{"plain"}) {
		t.Fatalf("exact match = %v", got)
	}
	if got := m.Values("dc.subject.*"); !cmp.Equal(got, []string{"plain", "Physics", "Optics"}) {
		t.Fatalf("wildcard = %v", got)
	}
	if got := m.First("dc.description.abstract"); got != "Summary" {
		t.Fatalf("First = %q", got)
	}
	if got := m.First("dc.date.available"); got != "" {
		t.Fatalf("First missing = %q", got)
	}
}

func TestMetadata_AddPlacesAndClear(t *testing.T) {
	var m Metadata
	m.Add("dc.contributor.author", "", "A")
	m.Add("dc.contributor.author", "", "B")
	if m[1].Place != 1 {
		t.Fatalf("second value place = %d", m[1].Place)
	}

	m.Set("dc.date.updated", "", "2026-01-01T00:00:00Z")
	m.Set("dc.date.updated", "", "2026-02-02T00:00:00Z")
	if got := m.Values("dc.date.updated"); !cmp.Equal(got, []string{"2026-02-02T00:00:00Z"}) {
		t.Fatalf("Set should replace, got %v", got)
	}

	m.Clear("dc.contributor.*")
	if got := m.Values("dc.contributor.author"); len(got) != 0 {
		t.Fatalf("Clear wildcard left %v", got)
	}
}

func TestMetadata_CloneIsIndependent(t *testing.T) {
	var m Metadata
	m.Add("dc.title", "", "x")
	c := m.Clone()
	c[0].Value = "y"
	if m[0].Value != "x" {
		t.Fatalf("clone aliases original")
	}
	if Metadata(nil).Clone() != nil {
		t.Fatalf("nil clone should stay nil")
	}
}

func TestParseField(t *testing.T) {
	cases := map[string]MetadataField{
		"title":                   {Schema: "dc", Element: "title"},
		"dc.title":                {Schema: "dc", Element: "title"},
		"dc.description.abstract": {Schema: "dc", Element: "description", Qualifier: "abstract"},
		"dc.identifier.slug":      {Schema: "dc", Element: "identifier", Qualifier: "slug"},
	}
	for in, want := range cases {
		if got := ParseField(in); got != want {
			t.Fatalf("ParseField(%q) = %+v, want %+v", in, got, want)
		}
		if in != "title" && ParseField(in).String() != in {
			t.Fatalf("String round trip for %q", in)
		}
	}
}
