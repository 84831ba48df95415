package httpkit

import (
	"net/http"
	"strings"

	perrs "sword/internal/platform/errors"
	pnet "sword/internal/platform/net"
)

// Principal returns the authenticated username from the request context
func Principal(r *http.Request) (string, error) {
	who := pnet.Principal(r.Context())
	if who == "" {
		return "", perrs.Unauthorizedf("missing basic credentials")
	}
	return who, nil
}

// MustPrincipal returns the authenticated username or panics
func MustPrincipal(r *http.Request) string {
	who, err := Principal(r)
	if err != nil {
		panic(err)
	}
	return who
}

// OnBehalfOf returns the mediated user recorded by the auth middleware, empty when absent
func OnBehalfOf(r *http.Request) string {
	return pnet.OnBehalfOf(r.Context())
}

// BasicCredentials returns the username and password from an Authorization Basic header
func BasicCredentials(r *http.Request) (string, string, error) {
	if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		return "", "", perrs.Unauthorizedf("missing basic credentials")
	}
	user, pass, ok := r.BasicAuth()
	if !ok || strings.TrimSpace(user) == "" {
		return "", "", perrs.Unauthorizedf("missing basic credentials")
	}
	return user, pass, nil
}
