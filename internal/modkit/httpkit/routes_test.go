package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	perr "sword/internal/platform/errors"
	phttp "sword/internal/platform/net/http"
)

func tagged(tag string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Stack", tag)
			next.ServeHTTP(w, r)
		})
	}
}

func do(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, phttp.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env phttp.Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env) // 404s from chi are plain text
	return rec, env
}

func TestMountAPIV1AndGet(t *testing.T) {
	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	MountAPIV1(r, []func(http.Handler) http.Handler{tagged("common")}, func(api Router) {
		Get(api, "/meta/protocol", func(*http.Request) (any, error) { return map[string]string{"protocol": "1.3"}, nil })
		Get(api, "/meta/broken", func(*http.Request) (any, error) { return nil, perr.Newf(perr.ErrorCodeUnavailable, "pg down") })
		Get(api, "/meta/raw", func(*http.Request) (any, error) {
			return phttp.Response{Status: http.StatusAccepted, Body: "queued"}, nil
		})
	})

	rec, env := do(t, mux, "/api/v1/meta/protocol")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Stack") != "common" {
		t.Fatalf("status = %d stack = %q", rec.Code, rec.Header().Get("X-Stack"))
	}
	if m, _ := env.Data.(map[string]any); m["protocol"] != "1.3" {
		t.Fatalf("data = %#v", env.Data)
	}

	rec, env = do(t, mux, "/api/v1/meta/broken")
	if rec.Code != http.StatusServiceUnavailable || env.Code != perr.ErrorCodeUnavailable {
		t.Fatalf("status = %d code = %v", rec.Code, env.Code)
	}

	rec, env = do(t, mux, "/api/v1/meta/raw")
	if rec.Code != http.StatusAccepted || env.Data != "queued" {
		t.Fatalf("status = %d data = %v", rec.Code, env.Data)
	}

	if rec, _ := do(t, mux, "/meta/protocol"); rec.Code != http.StatusNotFound {
		t.Fatalf("unversioned path served: %d", rec.Code)
	}
}

func TestMountAPI_TrimsSlash(t *testing.T) {
	mux := chi.NewRouter()
	MountAPI(phttp.AdaptChi(mux), "/v2", nil, func(api Router) {
		Get(api, "/ping", func(*http.Request) (any, error) { return "pong", nil })
	})
	if rec, _ := do(t, mux, "/api/v2/ping"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMountUnder(t *testing.T) {
	mux := chi.NewRouter()
	MountUnder(phttp.AdaptChi(mux), "/sword", []func(http.Handler) http.Handler{tagged("a"), tagged("b")}, func(sub Router) {
		sub.Get("/servicedocument", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})
	rec, _ := do(t, mux, "/sword/servicedocument")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Values("X-Stack"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("middleware order = %v", got)
	}
}
