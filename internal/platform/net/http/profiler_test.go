package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	phttp "sword/internal/platform/net/http"
)

func TestMountProfiler(t *testing.T) {
	cases := []struct {
		name    string
		enabled bool
		path    string
		want    int
	}{
		{"index", true, "/debug/pprof/", http.StatusOK},
		{"cmdline", true, "/debug/pprof/cmdline", http.StatusOK},
		{"bare prefix redirects", true, "/debug", http.StatusMovedPermanently},
		{"disabled", false, "/debug/pprof/", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := chi.NewMux()
			phttp.MountProfiler(phttp.AdaptChi(mux), "/debug", tc.enabled)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rr.Code != tc.want {
				t.Fatalf("GET %s = %d, want %d", tc.path, rr.Code, tc.want)
			}
		})
	}
}
