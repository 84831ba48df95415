package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	perr "sword/internal/platform/errors"
	"sword/internal/platform/logger"
	pnet "sword/internal/platform/net"
)

// RecoverJSON turns a panic into a 500 envelope and logs the stack against the request
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("panic recovered")

			status, body := pnet.Error(perr.PanicErrf("panic recovered"), pnet.RequestID(r.Context()))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		}()
		next.ServeHTTP(w, r)
	})
}
