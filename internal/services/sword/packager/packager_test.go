package packager

import (
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/bitstore"
	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/repo"
)

const manifest = `<?xml version="1.0" encoding="utf-8"?>
<mets xmlns="http://www.loc.gov/METS/" xmlns:xlink="http://www.w3.org/1999/xlink" OBJID="hdl:123456789/77">
  <dmdSec ID="dmd1">
    <mdWrap MDTYPE="OTHER">
      <xmlData xmlns:epdcx="http://purl.org/eprint/epdcx/2006-11-16/">
        <epdcx:descriptionSet>
          <epdcx:description>
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/title">
              <epdcx:valueString>A Paper</epdcx:valueString>
            </epdcx:statement>
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/elements/1.1/creator">
              <epdcx:valueString>Lovelace, Ada</epdcx:valueString>
            </epdcx:statement>
            <epdcx:statement epdcx:propertyURI="http://purl.org/dc/terms/abstract">
              <epdcx:valueString>Short.</epdcx:valueString>
            </epdcx:statement>
            <epdcx:statement epdcx:propertyURI="http://purl.org/eprint/terms/status" epdcx:valueURI="http://purl.org/eprint/status/PeerReviewed"/>
          </epdcx:description>
        </epdcx:descriptionSet>
      </xmlData>
    </mdWrap>
  </dmdSec>
  <fileSec>
    <fileGrp USE="CONTENT">
      <file ID="f1" MIMETYPE="application/pdf"><FLocat LOCTYPE="URL" xlink:href="paper.pdf"/></file>
      <file ID="f2"><FLocat LOCTYPE="URL" xlink:href="./data/notes.txt"/></file>
    </fileGrp>
  </fileSec>
</mets>`

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pkg.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return p
}

type world struct {
	store *repo.Memory
	bits  *bitstore.Memory
	col   domain.Collection
	wf    domain.Collection
	admin domain.EPerson
	user  domain.EPerson
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	w := &world{store: repo.NewMemory(), bits: bitstore.NewMemory()}
	u, _ := w.store.Begin(ctx)
	_ = repo.Seed(ctx, u)
	com := domain.Community{Name: "C"}
	_ = u.CreateCommunity(ctx, &com)
	w.col = domain.Collection{Name: "Open", CommunityID: com.ID, License: "you agree"}
	w.wf = domain.Collection{Name: "Reviewed", CommunityID: com.ID, WorkflowEnabled: true}
	_ = u.CreateCollection(ctx, &w.col)
	_ = u.CreateCollection(ctx, &w.wf)
	w.admin = domain.EPerson{Email: "root@example.org", CanLogIn: true}
	w.user = domain.EPerson{Email: "dep@example.org", CanLogIn: true}
	_ = u.CreateEPerson(ctx, &w.admin)
	_ = u.CreateEPerson(ctx, &w.user)
	g, _ := u.GroupByName(ctx, domain.AdminGroup)
	_ = u.AddGroupMember(ctx, g.ID, w.admin.ID)
	if err := u.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return w
}

func (w *world) session(t *testing.T, as *domain.EPerson) *content.Session {
	t.Helper()
	s, err := content.Open(context.Background(), w.store, w.bits)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.SetUser(as)
	t.Cleanup(func() { _ = s.Abort(context.Background()) })
	return s
}

var params = Params{WorkflowEnabled: true, HandlePrefix: "123456789", CanonicalPrefix: "http://hdl.handle.net/"}

func bitstreamNames(t *testing.T, r domain.Reader, it *domain.Item, bundle string) []string {
	t.Helper()
	ctx := context.Background()
	bundles, _ := r.Bundles(ctx, it.ID)
	var names []string
	for _, b := range bundles {
		if b.Name != bundle {
			continue
		}
		bits, _ := r.BundleBitstreams(ctx, b.ID)
		for _, bs := range bits {
			names = append(names, bs.Name)
		}
	}
	return names
}

func TestMETS_InstallsItem(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	s := w.session(t, &w.admin)
	pkg := writeZip(t, map[string]string{
		Manifest:         manifest,
		"paper.pdf":      "%PDF-1.4",
		"data/notes.txt": "notes",
	})

	var verbose domain.Verbose
	p := params
	p.Verbose = &verbose
	it, err := NewMETS().Ingest(ctx, s, &w.col, pkg, p)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !it.InArchive || it.Handle == "" {
		t.Fatalf("item not installed: %+v", it)
	}
	if it.Handle == "123456789/77" {
		t.Fatalf("restore handle used without restore mode")
	}
	if got := it.Metadata.First("dc.title"); got != "A Paper" {
		t.Fatalf("title = %q", got)
	}
	if got := it.Metadata.First("dc.contributor.author"); got != "Lovelace, Ada" {
		t.Fatalf("author = %q", got)
	}
	if got := it.Metadata.First("dc.identifier.uri"); got != "http://hdl.handle.net/"+it.Handle {
		t.Fatalf("uri = %q", got)
	}
	r := s.Reader()
	if diff := cmp.Diff([]string{"paper.pdf", "notes.txt"}, bitstreamNames(t, r, it, domain.BundleOriginal)); diff != "" {
		t.Fatalf("original (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"license.txt"}, bitstreamNames(t, r, it, domain.BundleLicense)); diff != "" {
		t.Fatalf("license (-want +got):\n%s", diff)
	}
	if !strings.Contains(verbose.String(), "Item installed with handle") {
		t.Fatalf("verbose = %q", verbose.String())
	}
}

func TestMETS_RestoreMode(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	s := w.session(t, &w.admin)
	pkg := writeZip(t, map[string]string{Manifest: manifest, "paper.pdf": "x", "data/notes.txt": "y"})

	p := params
	p.RestoreMode = true
	it, err := NewMETS().Ingest(ctx, s, &w.col, pkg, p)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if it.Handle != "123456789/77" {
		t.Fatalf("handle = %q", it.Handle)
	}
}

func TestMETS_Workflow(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	pkg := writeZip(t, map[string]string{Manifest: manifest, "paper.pdf": "x", "data/notes.txt": "y"})

	s := w.session(t, &w.admin)
	it, err := NewMETS().Ingest(ctx, s, &w.wf, pkg, params)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if it.InArchive || it.Handle != "" {
		t.Fatalf("workflow item archived: %+v", it)
	}

	s = w.session(t, &w.admin)
	p := params
	p.WorkflowEnabled = false
	it, err = NewMETS().Ingest(ctx, s, &w.wf, pkg, p)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !it.InArchive {
		t.Fatalf("workflow disabled but item not archived")
	}
}

func TestMETS_CollectionTemplate(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	pkg := writeZip(t, map[string]string{Manifest: manifest, "paper.pdf": "x", "data/notes.txt": "y"})

	col := w.col
	col.Template.Add("dc.publisher", "", "Research Office")
	col.Template.Add("dc.title", "", "Untitled")

	cases := []struct {
		name      string
		use       bool
		publisher string
		titles    []string
	}{
		{"used", true, "Research Office", []string{"Untitled", "A Paper"}},
		{"ignored", false, "", []string{"A Paper"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := params
			p.UseCollectionTemplate = tc.use
			it, err := NewMETS().Ingest(ctx, w.session(t, &w.admin), &col, pkg, p)
			if err != nil {
				t.Fatalf("ingest: %v", err)
			}
			if got := it.Metadata.First("dc.publisher"); got != tc.publisher {
				t.Fatalf("publisher = %q", got)
			}
			if diff := cmp.Diff(tc.titles, it.Metadata.Values("dc.title")); diff != "" {
				t.Fatalf("titles (-want +got):\n%s", diff)
			}
		})
	}
	if len(col.Template) != 2 {
		t.Fatalf("template mutated: %+v", col.Template)
	}
}

func TestMETS_Failures(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	cases := []struct {
		name  string
		files map[string]string
		as    *domain.EPerson
		uri   string
	}{
		{"no manifest", map[string]string{"paper.pdf": "x"}, &w.admin, domain.PackageValidationError},
		{"bad manifest", map[string]string{Manifest: "<mets"}, &w.admin, domain.PackageValidationError},
		{"missing file", map[string]string{Manifest: manifest, "paper.pdf": "x"}, &w.admin, domain.PackageValidationError},
		{"no add", map[string]string{Manifest: manifest, "paper.pdf": "x", "data/notes.txt": "y"}, &w.user, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := w.session(t, tc.as)
			_, err := NewMETS().Ingest(ctx, s, &w.col, writeZip(t, tc.files), params)
			if tc.uri != "" && !domain.IsProtocol(err, tc.uri) {
				t.Fatalf("want %s, got %v", tc.uri, err)
			}
			if tc.uri == "" && !perr.IsCode(err, perr.ErrorCodeForbidden) {
				t.Fatalf("want forbidden, got %v", err)
			}
		})
	}

	s := w.session(t, &w.admin)
	notZip := filepath.Join(t.TempDir(), "x.zip")
	_ = os.WriteFile(notZip, []byte("plain text"), 0o600)
	if _, err := NewMETS().Ingest(ctx, s, &w.col, notZip, params); !domain.IsProtocol(err, domain.PackageValidationError) {
		t.Fatalf("non zip: %v", err)
	}
}

func TestCrosswalk(t *testing.T) {
	const doc = `<xmlData xmlns:dim="http://www.dspace.org/xmlns/dspace/dim"
	  xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
	  <dim:dim>
	    <dim:field mdschema="dc" element="title" lang="en">DIM title</dim:field>
	    <dim:field mdschema="dc" element="subject" qualifier="lcsh">QA</dim:field>
	  </dim:dim>
	  <dc:creator>Hopper, Grace</dc:creator>
	  <dcterms:issued>1952</dcterms:issued>
	  <dc:unknown>skip</dc:unknown>
	  <dc:title>   </dc:title>
	</xmlData>`
	var root node
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var md domain.Metadata
	crosswalk(root, &md)

	got := map[string][]string{}
	for _, v := range md {
		got[v.Field.String()] = append(got[v.Field.String()], v.Value)
	}
	want := map[string][]string{
		"dc.title":              {"DIM title"},
		"dc.subject.lcsh":       {"QA"},
		"dc.contributor.author": {"Hopper, Grace"},
		"dc.date.issued":        {"1952"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("crosswalk (-want +got):\n%s", diff)
	}
	if md[0].Language != "en" {
		t.Fatalf("lang = %q", md[0].Language)
	}
}

func TestRegistry(t *testing.T) {
	r := Default()
	if _, err := r.Lookup(METSName); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := r.Lookup("nope"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("want ErrUnknown, got %v", err)
	}
	if diff := cmp.Diff([]string{METSName}, r.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}
