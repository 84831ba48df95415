package middleware

import (
	"net/http"

	pnet "sword/internal/platform/net"
)

// AuthPort extracts the calling identity from a request
type AuthPort interface {
	// Parse returns the principal and the optional on-behalf-of user or an error
	Parse(r *http.Request) (principal string, onBehalfOf string, err error)
}

// Auth annotates the request context with the identity returned by the port
// and hands failures to fail, which owns the response format; a nil port passes through
func Auth(p AuthPort, fail func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			who, obo, err := p.Parse(r)
			if err != nil {
				fail(w, r, err)
				return
			}
			ctx := pnet.WithRequest(r.Context(), "", who)
			ctx = pnet.WithOnBehalfOf(ctx, obo)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
