package module_test

import (
	"context"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"sword/internal/modkit"
	"sword/internal/modkit/module"
	"sword/internal/platform/config"
	phttp "sword/internal/platform/net/http"
	"sword/internal/services/sword/admin"
	"sword/internal/services/sword/bitstore"
	"sword/internal/services/sword/domain"
	swordmod "sword/internal/services/sword/module"
)

func newModule(t *testing.T) *swordmod.Module {
	t.Helper()
	t.Setenv("SWORD_DSPACE_URL", "http://repo.test")

	m, err := swordmod.New(context.Background(), modkit.Deps{Cfg: config.New()}, swordmod.Options{
		SeedMemory: true,
		Bitstore:   bitstore.Config{Kind: bitstore.KindMemory},
		Registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return m
}

func serve(m *swordmod.Module, req *stdhttp.Request) (*stdhttp.Response, string) {
	mux := chi.NewMux()
	m.MountRoutes(phttp.AdaptChi(mux))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	res := rec.Result()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func TestNewWiresMemoryBackends(t *testing.T) {
	m := newModule(t)

	if m.Name() != "sword" || m.Prefix() != "/sword" {
		t.Fatalf("name/prefix = %q %q", m.Name(), m.Prefix())
	}
	if len(m.Middlewares()) == 0 {
		t.Fatalf("deposit stack not installed")
	}
	if k := module.MustPortsOf[bitstore.Store](m).Kind(); k != bitstore.KindMemory {
		t.Fatalf("bitstore kind = %q", k)
	}
	if _, ok := module.PortsOf[domain.Store](m); !ok {
		t.Fatalf("content store not exposed")
	}
}

func TestServiceDocumentNeedsCredentials(t *testing.T) {
	m := newModule(t)

	res, body := serve(m, httptest.NewRequest(stdhttp.MethodGet, "/sword/servicedocument", nil))
	if res.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if got := res.Header.Get("WWW-Authenticate"); !strings.Contains(got, `realm="SWORD"`) {
		t.Fatalf("WWW-Authenticate = %q", got)
	}
	if !strings.Contains(body, "error") {
		t.Fatalf("body = %s", body)
	}
}

func TestServiceDocumentListsGrantedCollection(t *testing.T) {
	ctx := context.Background()
	m := newModule(t)

	a := admin.New(module.MustPortsOf[domain.Store](m), "123456789")
	if _, err := a.AddEPerson(ctx, admin.NewEPerson{Email: "dep@example.org", Password: "secret"}); err != nil {
		t.Fatalf("eperson: %v", err)
	}
	com, err := a.AddCommunity(ctx, "Science", "")
	if err != nil {
		t.Fatalf("community: %v", err)
	}
	col, err := a.AddCollection(ctx, admin.NewCollection{Name: "Theses", CommunityHandle: com.Handle})
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	if err := a.Grant(ctx, col.Handle, "add", "dep@example.org", ""); err != nil {
		t.Fatalf("grant: %v", err)
	}

	req := httptest.NewRequest(stdhttp.MethodGet, "/sword/servicedocument", nil)
	req.SetBasicAuth("dep@example.org", "secret")
	res, body := serve(m, req)
	if res.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d body = %s", res.StatusCode, body)
	}
	if want := "http://repo.test/sword/deposit/" + col.Handle; !strings.Contains(body, want) {
		t.Fatalf("collection %s missing from:\n%s", want, body)
	}
}
