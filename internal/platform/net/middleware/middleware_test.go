package middleware_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sword/internal/platform/logger"
	pnet "sword/internal/platform/net"
	"sword/internal/platform/net/middleware"
)

type fakePort struct {
	user, obo string
	err       error
}

func (f fakePort) Parse(*http.Request) (string, string, error) { return f.user, f.obo, f.err }

func TestAuth(t *testing.T) {
	var gotWho, gotObo, gotReq string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWho, gotObo = pnet.Principal(r.Context()), pnet.OnBehalfOf(r.Context())
		gotReq = logger.RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	fail := func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, err.Error())
	}

	cases := []struct {
		name   string
		port   middleware.AuthPort
		status int
		who    string
		obo    string
	}{
		{"nil port passes through", nil, http.StatusNoContent, "", ""},
		{"mediated", fakePort{user: "depositor@example.org", obo: "student@example.org"}, http.StatusNoContent, "depositor@example.org", "student@example.org"},
		{"rejected", fakePort{err: errors.New("bad password")}, http.StatusUnauthorized, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotWho, gotObo, gotReq = "", "", ""
			h := middleware.RequestID()(middleware.Auth(tc.port, fail)(next))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sword/servicedocument", nil))

			if rr.Code != tc.status || gotWho != tc.who || gotObo != tc.obo {
				t.Fatalf("status=%d who=%q obo=%q", rr.Code, gotWho, gotObo)
			}
			if tc.status == http.StatusNoContent && (gotReq == "" || gotReq != rr.Header().Get("X-Request-ID")) {
				t.Fatalf("request id %q not propagated (header %q)", gotReq, rr.Header().Get("X-Request-ID"))
			}
		})
	}
}

func TestRequestIDPropagatesInbound(t *testing.T) {
	h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, pnet.RequestID(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Body.String() != "client-42" || rr.Header().Get("X-Request-ID") != "client-42" {
		t.Fatalf("body=%q header=%q", rr.Body.String(), rr.Header().Get("X-Request-ID"))
	}
}

func TestRecoverJSON(t *testing.T) {
	h := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sword/deposit/123456789/2", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var w pnet.Wire
	if err := json.Unmarshal(rr.Body.Bytes(), &w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.StatusCode != 500 || w.Error != "panic recovered" {
		t.Fatalf("wire = %+v", w)
	}
}

func TestRecoverJSONRepanicsAbort(t *testing.T) {
	h := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) }))
	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Fatalf("ErrAbortHandler swallowed")
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestAccessLogPassesResponseThrough(t *testing.T) {
	for _, slow := range []time.Duration{0, time.Nanosecond} {
		h := middleware.AccessLog(middleware.AccessLogOptions{Slow: slow})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, "<entry/>")
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sword/deposit", strings.NewReader("PK")))
		if rr.Code != http.StatusCreated || rr.Body.String() != "<entry/>" {
			t.Fatalf("slow=%v status=%d body=%q", slow, rr.Code, rr.Body.String())
		}
	}
}

func TestCORSDefaults(t *testing.T) {
	h := middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"https://client.example.org"}})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodOptions, "/sword/deposit", nil)
	req.Header.Set("Origin", "https://client.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Packaging")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "https://client.example.org" {
		t.Fatalf("preflight headers = %v", rr.Header())
	}
	if !strings.Contains(strings.ToLower(rr.Header().Get("Access-Control-Allow-Headers")), "x-packaging") {
		t.Fatalf("allow headers = %q", rr.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestThrottleBacklogRejectsOverflow(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	h := middleware.ThrottleBacklog(1, 0, 10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/sword/deposit", nil))
	}()
	<-entered

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sword/deposit", nil))
	close(release)
	wg.Wait()

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", rr.Code)
	}
}
