// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"net/http"
	"time"

	modkit "sword/internal/modkit"
	"sword/internal/modkit/httpkit"
	str "sword/internal/platform/strings"

	metahttp "sword/internal/services/api/meta/http"
	"sword/internal/services/sword/atom"
)

// Ports are the extra readiness targets handed in with modkit.WithPorts
type Ports struct {
	Bits metahttp.Pinger
}

// Module implements the modkit.Module interface
type Module struct {
	deps     modkit.Deps
	name     string
	prefix   string
	mws      []func(http.Handler) http.Handler
	register func(httpkit.Router)

	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		startedAt: time.Now(),
	}
	extra, _ := b.Ports.(Ports)

	external := b.Register
	m.register = func(r httpkit.Router) {
		metahttp.Register(r, metahttp.Deps{
			ServiceName: "sword-api",
			StartedAt:   m.startedAt,
			Probes: []metahttp.Probe{
				{Name: "pg", Target: pinger(deps.PG)},
				{Name: "ch", Target: pinger(deps.CH)},
				{Name: "bitstore", Target: extra.Bits, Required: true},
			},
			Protocol: atom.Version,
		})
		if external != nil {
			external(r)
		}
	}

	return m
}

// pinger keeps a nil seam nil instead of wrapping it in a non-nil interface
func pinger(v any) metahttp.Pinger {
	if p, ok := v.(metahttp.Pinger); ok {
		return p
	}
	return nil
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.name, "meta") }

// Prefix implements the modkit.Module interface
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares implements the modkit.Module interface
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
