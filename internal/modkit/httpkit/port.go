package httpkit

import (
	"net/http"
	"strings"

	perrs "sword/internal/platform/errors"
)

// HeaderOnBehalfOf names the mediated deposit header
const HeaderOnBehalfOf = "X-On-Behalf-Of"

// CredentialFunc checks a username and password pair
// a nil func accepts any well formed pair and leaves verification to the handler
type CredentialFunc func(username, password string) error

// Port implements middleware.AuthPort over HTTP Basic credentials
type Port struct {
	check CredentialFunc
}

// NewPortFunc builds a Port from a credential checker
func NewPortFunc(fn CredentialFunc) *Port {
	return &Port{check: fn}
}

// Parse returns the Basic username and the on-behalf-of header
// returns unauthorized when the header is missing, malformed, or the checker rejects it
func (p *Port) Parse(r *http.Request) (string, string, error) {
	user, pass, err := BasicCredentials(r)
	if err != nil {
		return "", "", err
	}
	if p != nil && p.check != nil {
		if err := p.check(user, pass); err != nil {
			return "", "", perrs.Unauthorizedf("invalid credentials")
		}
	}
	return user, strings.TrimSpace(r.Header.Get(HeaderOnBehalfOf)), nil
}
