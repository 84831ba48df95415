package modkit

import (
	"net/http"
	"testing"

	"sword/internal/modkit/httpkit"
)

func TestBuild(t *testing.T) {
	type bitsPort struct{ Kind string }
	noop := func(next http.Handler) http.Handler { return next }
	registered := false

	b := Build(
		WithName("sword"),
		WithPrefix("/sword"),
		WithName("deposit"),
		WithMiddlewares(noop),
		WithMiddlewares(noop),
		WithPorts(bitsPort{Kind: "s3"}),
		WithRegister(func(httpkit.Router) { registered = true }),
	)
	if b.Name != "deposit" || b.Prefix != "/sword" {
		t.Fatalf("name/prefix = %q %q", b.Name, b.Prefix)
	}
	if len(b.Mw) != 2 {
		t.Fatalf("middlewares = %d", len(b.Mw))
	}
	if p, ok := b.Ports.(bitsPort); !ok || p.Kind != "s3" {
		t.Fatalf("ports = %#v", b.Ports)
	}
	b.Register(nil)
	if !registered {
		t.Fatalf("register hook not kept")
	}
}

func TestBuildDefaults(t *testing.T) {
	b := Build()
	if b.Name != "" || b.Prefix != "" || b.Mw != nil || b.Ports != nil || b.Register != nil {
		t.Fatalf("zero build = %+v", b)
	}
}
