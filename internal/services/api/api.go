// Package api mounts the SWORD server and its operational endpoints
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sword/internal/platform/config"
	"sword/internal/platform/logger"
	phttp "sword/internal/platform/net/http"
	"sword/internal/platform/store"

	"sword/internal/modkit"
	"sword/internal/modkit/httpkit"
	"sword/internal/modkit/module"
	"sword/internal/modkit/swaggerkit"

	metamod "sword/internal/services/api/meta/module"
	"sword/internal/services/sword/bitstore"
	swordmod "sword/internal/services/sword/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
	// Sword overrides FromConfig when set
	Sword *swordmod.Options
}

// Mount mounts the SWORD module at the root and meta under /api/v1
// the returned func releases what the modules opened
func Mount(ctx context.Context, r phttp.Router, opt Options) (func() error, error) {
	// shared deps for modules
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	so := swordmod.FromConfig(opt.Config)
	if opt.Sword != nil {
		so = *opt.Sword
	}
	so.Registerer = reg

	sword, err := swordmod.New(ctx, deps, so)
	if err != nil {
		return nil, err
	}
	bits := module.MustPortsOf[bitstore.Store](sword)

	meta := metamod.New(deps, modkit.WithPorts(metamod.Ports{Bits: bits}))

	// SWORD clients are configured with absolute /sword/... URLs, so the module sits at the root
	sword.MountRoutes(r)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		meta.MountRoutes(api)
	})

	return sword.Close, nil
}
