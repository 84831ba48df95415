package http

import (
	"encoding/xml"
	stdhttp "net/http"
)

// XML writes v as an XML document with the given content type and status
// the content type defaults to application/xml; charset=utf-8
func XML(w stdhttp.ResponseWriter, status int, contentType string, v any) error {
	if contentType == "" {
		contentType = "application/xml; charset=utf-8"
	}
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
