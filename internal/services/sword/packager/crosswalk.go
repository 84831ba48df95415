package packager

import (
	"encoding/xml"
	"strings"

	"sword/internal/services/sword/domain"
)

const (
	nsDIM     = "http://www.dspace.org/xmlns/dspace/dim"
	nsEPDCX   = "http://purl.org/eprint/epdcx/2006-11-16/"
	nsDC      = "http://purl.org/dc/elements/1.1/"
	nsDCTerms = "http://purl.org/dc/terms/"
)

// dcFields maps DC and DCTERMS terms onto repository fields
var dcFields = map[string]string{
	"title":                 "dc.title",
	"alternative":           "dc.title.alternative",
	"creator":               "dc.contributor.author",
	"contributor":           "dc.contributor",
	"subject":               "dc.subject",
	"description":           "dc.description",
	"abstract":              "dc.description.abstract",
	"publisher":             "dc.publisher",
	"date":                  "dc.date",
	"available":             "dc.date.available",
	"issued":                "dc.date.issued",
	"created":               "dc.date.created",
	"type":                  "dc.type",
	"format":                "dc.format",
	"identifier":            "dc.identifier",
	"bibliographicCitation": "dc.identifier.citation",
	"source":                "dc.source",
	"language":              "dc.language.iso",
	"relation":              "dc.relation",
	"isPartOf":              "dc.relation.ispartof",
	"rights":                "dc.rights",
	"coverage":              "dc.coverage",
}

// node is a namespace resolved element tree
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n node) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func (n node) walk(fn func(node)) {
	fn(n)
	for _, c := range n.Nodes {
		c.walk(fn)
	}
}

// dcTerm returns the term name of a DC or DCTERMS URI
func dcTerm(uri string) (string, bool) {
	for _, ns := range []string{nsDC, nsDCTerms} {
		if strings.HasPrefix(uri, ns) {
			return strings.TrimPrefix(uri, ns), true
		}
	}
	return "", false
}

// crosswalk reads DIM fields, EPDCX statements and bare DC elements into md
func crosswalk(root node, md *domain.Metadata) {
	root.walk(func(n node) {
		switch {
		case n.XMLName.Space == nsDIM && n.XMLName.Local == "field":
			field := n.attr("mdschema") + "." + n.attr("element")
			if q := n.attr("qualifier"); q != "" {
				field += "." + q
			}
			addValue(md, field, n.attr("lang"), n.Text)

		case n.XMLName.Space == nsEPDCX && n.XMLName.Local == "statement":
			term, ok := dcTerm(n.attr("propertyURI"))
			if !ok {
				return
			}
			field, ok := dcFields[term]
			if !ok {
				return
			}
			if v := n.attr("valueURI"); v != "" {
				addValue(md, field, "", lastSegment(v))
			}
			for _, c := range n.Nodes {
				if c.XMLName.Local == "valueString" {
					addValue(md, field, c.attr("lang"), c.Text)
				}
			}

		case n.XMLName.Space == nsDC || n.XMLName.Space == nsDCTerms:
			if field, ok := dcFields[n.XMLName.Local]; ok {
				addValue(md, field, n.attr("lang"), n.Text)
			}
		}
	})
}

func addValue(md *domain.Metadata, field, lang, value string) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(field, ".") {
		return
	}
	md.Add(field, lang, value)
}

func lastSegment(uri string) string {
	uri = strings.TrimRight(uri, "/#")
	if i := strings.LastIndexAny(uri, "/#"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
