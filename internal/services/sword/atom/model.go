// Package atom holds the ATOM and APP documents a SWORD 1.3 server emits
//
// Element names carry literal prefixes so documents read the way SWORD clients
// expect (sword:treatment, atom:title). Decoding goes through namespace
// qualified mirrors in parse.go.
package atom

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// Namespaces
const (
	NSAtom    = "http://www.w3.org/2005/Atom"
	NSApp     = "http://www.w3.org/2007/app"
	NSSword   = "http://purl.org/net/sword/"
	NSDCTerms = "http://purl.org/dc/terms/"
)

// Media types of the documents
const (
	ServiceContentType = "application/atomsvc+xml; charset=UTF-8"
	EntryContentType   = "application/atom+xml; charset=UTF-8"
)

// Version is the SWORD protocol version served
const Version = "1.3"

// Text is an atom text construct
type Text struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

func text(v string) *Text {
	if v == "" {
		return nil
	}
	return &Text{Type: "text", Value: v}
}

// Person is an atom author or contributor
type Person struct {
	Name  string `xml:"name"`
	Email string `xml:"email,omitempty"`
}

// Content is an out of line content reference
type Content struct {
	Type string `xml:"type,attr,omitempty"`
	Src  string `xml:"src,attr"`
}

// Link is an atom link
type Link struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr,omitempty"`
}

// Category is a subject term
type Category struct {
	Term string `xml:"term,attr"`
}

// Generator identifies the producing software
type Generator struct {
	URI     string `xml:"uri,attr"`
	Version string `xml:"version,attr,omitempty"`
}

// Entry is a SWORD deposit receipt or media entry
type Entry struct {
	XMLName xml.Name `xml:"entry"`
	XMLNS   string   `xml:"xmlns,attr"`
	XMLNSSw string   `xml:"xmlns:sword,attr"`

	Title       *Text      `xml:"title,omitempty"`
	ID          string     `xml:"id"`
	Updated     string     `xml:"updated,omitempty"`
	Published   string     `xml:"published,omitempty"`
	Authors     []Person   `xml:"author,omitempty"`
	Contributor []Person   `xml:"contributor,omitempty"`
	Summary     *Text      `xml:"summary,omitempty"`
	Content     *Content   `xml:"content,omitempty"`
	Links       []Link     `xml:"link,omitempty"`
	Categories  []Category `xml:"category,omitempty"`
	Rights      *Text      `xml:"rights,omitempty"`
	Generator   *Generator `xml:"generator,omitempty"`

	Treatment          string `xml:"sword:treatment,omitempty"`
	Packaging          string `xml:"sword:packaging,omitempty"`
	VerboseDescription string `xml:"sword:verboseDescription,omitempty"`
	NoOp               bool   `xml:"sword:noOp"`
	UserAgent          string `xml:"sword:userAgent,omitempty"`
}

// NewEntry returns an entry with its namespaces declared
func NewEntry() *Entry { return &Entry{XMLNS: NSAtom, XMLNSSw: NSSword} }

// AddLink appends a link
func (e *Entry) AddLink(rel, href, typ string) {
	e.Links = append(e.Links, Link{Rel: rel, Href: href, Type: typ})
}

// LinkHref returns the first href with rel
func (e *Entry) LinkHref(rel string) string {
	for _, l := range e.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

// AcceptPackaging is a packaging URI with its preference
type AcceptPackaging struct {
	Q   float64 `xml:"-"`
	URI string  `xml:",chardata"`
}

// MarshalXML writes q with one decimal at least, as clients parse it as a float
func (a AcceptPackaging) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	q := strconv.FormatFloat(a.Q, 'f', -1, 64)
	if !strings.Contains(q, ".") {
		q += ".0"
	}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "q"}, Value: q})
	return e.EncodeElement(a.URI, start)
}

// Collection is an APP collection with SWORD extensions
type Collection struct {
	Href             string            `xml:"href,attr"`
	Title            string            `xml:"atom:title"`
	Accepts          []string          `xml:"accept"`
	AcceptPackaging  []AcceptPackaging `xml:"sword:acceptPackaging"`
	CollectionPolicy string            `xml:"sword:collectionPolicy,omitempty"`
	Abstract         string            `xml:"dcterms:abstract,omitempty"`
	Mediation        bool              `xml:"sword:mediation"`
	Treatment        string            `xml:"sword:treatment,omitempty"`
	Service          string            `xml:"sword:service,omitempty"`
}

// Workspace groups collections
type Workspace struct {
	Title       string       `xml:"atom:title"`
	Collections []Collection `xml:"collection"`
}

// Service is the APP service document
type Service struct {
	XMLName   xml.Name `xml:"service"`
	XMLNS     string   `xml:"xmlns,attr"`
	XMLNSAtom string   `xml:"xmlns:atom,attr"`
	XMLNSSw   string   `xml:"xmlns:sword,attr"`
	XMLNSDC   string   `xml:"xmlns:dcterms,attr"`

	Version       string      `xml:"sword:version"`
	Verbose       bool        `xml:"sword:verbose"`
	NoOp          bool        `xml:"sword:noOp"`
	MaxUploadSize int         `xml:"sword:maxUploadSize,omitempty"`
	Workspaces    []Workspace `xml:"workspace"`
}

// NewService returns a service document with its namespaces declared
func NewService() *Service {
	return &Service{XMLNS: NSApp, XMLNSAtom: NSAtom, XMLNSSw: NSSword, XMLNSDC: NSDCTerms, Version: Version}
}

// ErrorDocument is the sword:error body sent with failing responses
type ErrorDocument struct {
	XMLName xml.Name `xml:"sword:error"`
	XMLNS   string   `xml:"xmlns,attr"`
	XMLNSSw string   `xml:"xmlns:sword,attr"`
	Href    string   `xml:"href,attr"`

	Title     string     `xml:"title"`
	Updated   string     `xml:"updated"`
	Generator *Generator `xml:"generator,omitempty"`
	Summary   string     `xml:"summary"`
	Treatment string     `xml:"sword:treatment"`
	UserAgent string     `xml:"sword:userAgent,omitempty"`
}

// NewErrorDocument builds an error body for uri
func NewErrorDocument(uri, summary, userAgent, updated string) *ErrorDocument {
	return &ErrorDocument{
		XMLNS:     NSAtom,
		XMLNSSw:   NSSword,
		Href:      uri,
		Title:     "ERROR",
		Updated:   updated,
		Summary:   summary,
		Treatment: "processing failed",
		UserAgent: userAgent,
	}
}
