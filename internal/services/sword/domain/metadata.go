package domain

import (
	"strings"
)

// Any matches every qualifier (including none) in a field lookup
const Any = "*"

// MetadataField is schema.element[.qualifier]
type MetadataField struct {
	Schema    string
	Element   string
	Qualifier string
}

// ParseField splits a dotted field name; a missing schema defaults to dc
func ParseField(s string) MetadataField {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	switch len(parts) {
	case 1:
		return MetadataField{Schema: "dc", Element: parts[0]}
	case 2:
		return MetadataField{Schema: parts[0], Element: parts[1]}
	default:
		return MetadataField{Schema: parts[0], Element: parts[1], Qualifier: parts[2]}
	}
}

func (f MetadataField) String() string {
	if f.Qualifier == "" {
		return f.Schema + "." + f.Element
	}
	return f.Schema + "." + f.Element + "." + f.Qualifier
}

// matches honours Any in the qualifier position only
func (f MetadataField) matches(v MetadataField) bool {
	if f.Schema != v.Schema || f.Element != v.Element {
		return false
	}
	return f.Qualifier == Any || f.Qualifier == v.Qualifier
}

// MetadataValue is one value of a field
type MetadataValue struct {
	Field    MetadataField
	Language string
	Value    string
	Place    int
}

// Metadata is the ordered value list attached to an item
type Metadata []MetadataValue

// Values returns every value of the field, in place order
// "dc.subject.*" matches any qualifier, "dc.title" matches the unqualified field only
func (m Metadata) Values(field string) []string {
	f := ParseField(field)
	var out []string
	for _, v := range m {
		if f.matches(v.Field) {
			out = append(out, v.Value)
		}
	}
	return out
}

// First returns the first value of the field or ""
func (m Metadata) First(field string) string {
	if vs := m.Values(field); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Clear drops every value of the field
func (m *Metadata) Clear(field string) {
	f := ParseField(field)
	out := (*m)[:0]
	for _, v := range *m {
		if !f.matches(v.Field) {
			out = append(out, v)
		}
	}
	*m = out
}

// Add appends a value after the existing values of the same field
func (m *Metadata) Add(field, lang, value string) {
	f := ParseField(field)
	place := 0
	for _, v := range *m {
		if v.Field == f && v.Place >= place {
			place = v.Place + 1
		}
	}
	*m = append(*m, MetadataValue{Field: f, Language: lang, Value: value, Place: place})
}

// Set replaces the field with a single value
func (m *Metadata) Set(field, lang, value string) {
	m.Clear(field)
	m.Add(field, lang, value)
}

// Clone returns an independent copy
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	copy(out, m)
	return out
}
