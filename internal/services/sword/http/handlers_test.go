package http

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/zip"

	phttp "sword/internal/platform/net/http"
	"sword/internal/platform/testkit"
	"sword/internal/services/sword/atom"
	"sword/internal/services/sword/audit"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/bitstore"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/packager"
	"sword/internal/services/sword/repo"
	"sword/internal/services/sword/service"
	"sword/internal/services/sword/swordcfg"
	"sword/internal/services/sword/urls"
)

const manifest = `<mets xmlns="http://www.loc.gov/METS/" xmlns:xlink="http://www.w3.org/1999/xlink">
  <dmdSec ID="d"><mdWrap MDTYPE="DC"><xmlData xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Over the wire</dc:title>
  </xmlData></mdWrap></dmdSec>
  <fileSec><fileGrp USE="CONTENT"><file ID="f" MIMETYPE="text/plain"><FLocat xlink:href="a.txt"/></file></fileGrp></fileSec>
</mets>`

func testConfig() swordcfg.Config {
	return swordcfg.Config{
		RepositoryName:        "Test Repository",
		Accepts:               []string{"application/zip"},
		Packaging:             swordcfg.PackagingSet{Global: map[string]swordcfg.Packaging{"mets": {Name: "mets", Identifier: swordcfg.METSDSpaceSIP, Q: 1}}},
		BundleName:            "SWORD",
		UpdatedField:          "dc.date.updated",
		SlugField:             "dc.identifier.slug",
		PackageIngester:       packager.METSName,
		NoOpSupported:         true,
		VerboseSupported:      true,
		MaxUploadSize:         1024,
		DSpaceURL:             "http://repo.test",
		DepositURL:            "http://repo.test/sword/deposit",
		ServiceDocumentURL:    "http://repo.test/sword/servicedocument",
		MediaLinkURL:          "http://repo.test/sword/media-link",
		HandlePrefix:          "123456789",
		HandleCanonicalPrefix: "http://hdl.handle.net/",
	}
}

type fixture struct {
	store *repo.Memory
	col   domain.Collection
	spool string
	mux   stdhttp.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: repo.NewMemory(), spool: t.TempDir()}
	bits := bitstore.NewMemory()

	u, _ := f.store.Begin(ctx)
	_ = repo.Seed(ctx, u)
	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	dep := domain.EPerson{Email: "dep@example.org", CanLogIn: true, PasswordHash: hash}
	_ = u.CreateEPerson(ctx, &dep)
	com := domain.Community{Name: "Science"}
	_ = u.CreateCommunity(ctx, &com)
	_ = u.BindHandle(ctx, "123456789/1", com.Ref())
	f.col = domain.Collection{Name: "Theses", CommunityID: com.ID}
	_ = u.CreateCollection(ctx, &f.col)
	_ = u.BindHandle(ctx, "123456789/2", f.col.Ref())
	_ = u.Grant(ctx, domain.Policy{Object: f.col.Ref(), Action: domain.ActionAdd, EPerson: dep.ID})
	if err := u.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	cfg := testConfig()
	svc := service.New(service.Deps{
		Config: cfg,
		Auth:   auth.New(cfg, f.store, bits),
		URLs:   urls.New(cfg, 16),
		Audit:  audit.Noop{},
	})

	mux := chi.NewRouter()
	phttp.AdaptChi(mux).Route("/sword", func(r phttp.Router) {
		Register(r, Deps{Service: svc, SpoolDir: f.spool})
	})
	f.mux = mux
	return f
}

func (f *fixture) archived(t *testing.T) int {
	t.Helper()
	ctx := context.Background()
	u, _ := f.store.Begin(ctx)
	defer u.Rollback(ctx)
	items, err := u.ArchivedItems(ctx, f.col.ID)
	if err != nil {
		t.Fatalf("archived: %v", err)
	}
	return len(items)
}

func zipPackage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{"mets.xml": manifest, "a.txt": "hello"} {
		wr, _ := zw.Create(name)
		_, _ = wr.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip: %v", err)
	}
	return buf.Bytes()
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, hdr map[string]string) (*stdhttp.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.SetBasicAuth("dep@example.org", "secret")
	for k, v := range hdr {
		if k == "Authorization" && v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	res := rec.Result()
	defer res.Body.Close()
	out, _ := io.ReadAll(res.Body)
	return res, string(out)
}

func mets() map[string]string {
	return map[string]string{
		"Content-Type":        "application/zip",
		HeaderPackaging:       swordcfg.METSDSpaceSIP,
		"Content-Disposition": `attachment; filename="package.zip"`,
	}
}

func TestServiceDocument_RequiresCredentials(t *testing.T) {
	f := newFixture(t)
	res, body := f.do(t, stdhttp.MethodGet, "/sword/servicedocument", nil, map[string]string{"Authorization": ""})
	if res.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if got := res.Header.Get("WWW-Authenticate"); got != Realm {
		t.Fatalf("WWW-Authenticate = %q", got)
	}
	testkit.MustContain(t, body, "sword:error")
}

func TestServiceDocument_WrongPassword(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(stdhttp.MethodGet, "/sword/servicedocument", nil)
	req.SetBasicAuth("dep@example.org", "nope")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != Realm {
		t.Fatalf("WWW-Authenticate = %q", got)
	}
}

func TestServiceDocument_Root(t *testing.T) {
	f := newFixture(t)
	res, body := f.do(t, stdhttp.MethodGet, "/sword/servicedocument", nil, nil)
	if res.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
	if ct := res.Header.Get("Content-Type"); ct != atom.ServiceContentType {
		t.Fatalf("content type = %q", ct)
	}
	testkit.MustContain(t, body, "Theses")
	testkit.MustContain(t, body, "http://repo.test/sword/deposit/123456789/2")
}

func TestServiceDocument_UnknownHandle(t *testing.T) {
	f := newFixture(t)
	res, body := f.do(t, stdhttp.MethodGet, "/sword/servicedocument/123456789/99", nil, nil)
	if res.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", res.StatusCode)
	}
	testkit.MustContain(t, body, domain.BadURL)
}

func TestDeposit_Created(t *testing.T) {
	f := newFixture(t)
	res, body := f.do(t, stdhttp.MethodPost, "/sword/deposit/123456789/2", zipPackage(t), mets())
	if res.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
	if res.Header.Get("Location") != "http://repo.test/sword/media-link" {
		t.Fatalf("location = %q", res.Header.Get("Location"))
	}
	if ct := res.Header.Get("Content-Type"); ct != atom.EntryContentType {
		t.Fatalf("content type = %q", ct)
	}
	testkit.MustContain(t, body, "Over the wire")
	testkit.MustContain(t, body, "http://hdl.handle.net/123456789/")
	if n := f.archived(t); n != 1 {
		t.Fatalf("archived items = %d", n)
	}

	left, err := os.ReadDir(f.spool)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("spool not cleaned: %v", left)
	}
}

func TestDeposit_NoOpLeavesRepositoryUntouched(t *testing.T) {
	f := newFixture(t)
	hdr := mets()
	hdr[HeaderNoOp] = "true"
	res, body := f.do(t, stdhttp.MethodPost, "/sword/deposit/123456789/2", zipPackage(t), hdr)
	if res.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
	testkit.MustContain(t, body, "<sword:noOp>true</sword:noOp>")
	if n := f.archived(t); n != 0 {
		t.Fatalf("archived items = %d", n)
	}
}

func TestDeposit_Failures(t *testing.T) {
	pkg := func(t *testing.T) []byte { return zipPackage(t) }
	sum := md5.Sum([]byte("something else"))

	cases := []struct {
		name   string
		path   string
		body   func(*testing.T) []byte
		edit   func(map[string]string)
		status int
		uri    string
	}{
		{"bad no-op flag", "/sword/deposit/123456789/2", pkg, func(h map[string]string) { h[HeaderNoOp] = "maybe" }, 400, domain.ErrorBadRequest},
		{"checksum", "/sword/deposit/123456789/2", pkg, func(h map[string]string) { h[HeaderContentMD5] = hex.EncodeToString(sum[:]) }, 412, domain.ErrorChecksumMismatch},
		{"mediation", "/sword/deposit/123456789/2", pkg, func(h map[string]string) { h["X-On-Behalf-Of"] = "someone@example.org" }, 412, domain.MediationNotAllowed},
		{"content type", "/sword/deposit/123456789/2", pkg, func(h map[string]string) { h["Content-Type"] = "image/png" }, 415, domain.ErrorContent},
		{"incomplete url", "/sword/deposit", pkg, func(map[string]string) {}, 400, domain.BadURL},
		{"too large", "/sword/deposit/123456789/2", func(*testing.T) []byte { return bytes.Repeat([]byte("x"), 1024*1024+16) }, func(map[string]string) {}, 413, domain.MaxUploadSizeExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			hdr := mets()
			tc.edit(hdr)
			res, body := f.do(t, stdhttp.MethodPost, tc.path, tc.body(t), hdr)
			if res.StatusCode != tc.status {
				t.Fatalf("status = %d want %d body=%s", res.StatusCode, tc.status, body)
			}
			testkit.MustContain(t, body, `href="`+tc.uri+`"`)
			if n := f.archived(t); n != 0 {
				t.Fatalf("archived items = %d", n)
			}
		})
	}
}

func TestHeaderHelpers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`attachment; filename="thesis.zip"`, "thesis.zip"},
		{`filename=plain.pdf`, ""},
		{`inline`, ""},
		{``, ""},
	}
	for _, tc := range cases {
		if got := filename(tc.in); got != tc.want {
			t.Fatalf("filename(%q) = %q want %q", tc.in, got, tc.want)
		}
	}

	hdr := stdhttp.Header{}
	hdr.Set(HeaderFormatNamespace, "legacy")
	if got := packaging(hdr); got != "legacy" {
		t.Fatalf("packaging = %q", got)
	}
	hdr.Set(HeaderPackaging, "modern")
	if got := packaging(hdr); got != "modern" {
		t.Fatalf("packaging = %q", got)
	}

	hdr.Set(HeaderVerbose, "TRUE")
	if v, err := flag(hdr, HeaderVerbose); err != nil || !v {
		t.Fatalf("flag = %v %v", v, err)
	}
	hdr.Set(HeaderVerbose, "yes please")
	if _, err := flag(hdr, HeaderVerbose); !domain.IsProtocol(err, domain.ErrorBadRequest) {
		t.Fatalf("flag err = %v", err)
	}
	if v, err := flag(stdhttp.Header{}, HeaderNoOp); err != nil || v {
		t.Fatalf("absent flag = %v %v", v, err)
	}
}

func TestUnder(t *testing.T) {
	req := httptest.NewRequest(stdhttp.MethodGet, "/x", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("*", "123456789/2/")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if got := under("http://repo.test/sword/deposit", req); got != "http://repo.test/sword/deposit/123456789/2" {
		t.Fatalf("under = %q", got)
	}
	if !strings.HasSuffix(under("http://b", httptest.NewRequest(stdhttp.MethodGet, "/", nil)), "b") {
		t.Fatalf("bare base changed")
	}
}
