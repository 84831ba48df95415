package atom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

type wireCollection struct {
	Href            string `xml:"href,attr"`
	Title           string `xml:"http://www.w3.org/2005/Atom title"`
	AcceptPackaging []struct {
		Q   string `xml:"q,attr"`
		URI string `xml:",chardata"`
	} `xml:"http://purl.org/net/sword/ acceptPackaging"`
}

// ParseAcceptPackaging reads URI to q back out of a marshalled collection
func ParseAcceptPackaging(collectionXML []byte) (map[string]float64, error) {
	var wc wireCollection
	dec := xml.NewDecoder(bytes.NewReader(collectionXML))
	if err := dec.Decode(&wc); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	out := make(map[string]float64, len(wc.AcceptPackaging))
	for _, ap := range wc.AcceptPackaging {
		q := 1.0
		if s := strings.TrimSpace(ap.Q); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("bad q %q: %w", s, err)
			}
			q = v
		}
		out[strings.TrimSpace(ap.URI)] = q
	}
	return out, nil
}

// MarshalCollection renders a standalone collection element with namespaces declared
func MarshalCollection(c Collection) ([]byte, error) {
	type standalone struct {
		XMLName   xml.Name `xml:"collection"`
		XMLNS     string   `xml:"xmlns,attr"`
		XMLNSAtom string   `xml:"xmlns:atom,attr"`
		XMLNSSw   string   `xml:"xmlns:sword,attr"`
		XMLNSDC   string   `xml:"xmlns:dcterms,attr"`
		Collection
	}
	return xml.Marshal(standalone{XMLNS: NSApp, XMLNSAtom: NSAtom, XMLNSSw: NSSword, XMLNSDC: NSDCTerms, Collection: c})
}
