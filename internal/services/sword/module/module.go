// Package module wires the SWORD deposit service into HTTP via modkit
package module

import (
	"context"
	"fmt"
	"net/http"

	"sword/internal/modkit"
	"sword/internal/modkit/httpkit"
	"sword/internal/platform/config"
	"sword/internal/platform/logger"
	"sword/internal/platform/strings"

	"sword/internal/services/sword/audit"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/bitstore"
	"sword/internal/services/sword/domain"
	swordhttp "sword/internal/services/sword/http"
	"sword/internal/services/sword/repo"
	"sword/internal/services/sword/service"
	"sword/internal/services/sword/swordcfg"
	"sword/internal/services/sword/urls"
)

// Ports exposes the sword collaborators for cross-module lookups
type Ports struct {
	Service *service.Service
	Content domain.Store
	Bits    bitstore.Store
}

// Module implements the sword module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)
}

// New constructs the sword module; it fails when configuration or a backend cannot be set up
func New(ctx context.Context, deps modkit.Deps, o Options, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("sword"), modkit.WithPrefix("/sword")}, opts...)...)
	log := logger.Named("sword.module")

	var props config.Properties
	if o.PropertiesPath != "" {
		p, err := config.LoadProperties(o.PropertiesPath)
		if err != nil {
			return nil, fmt.Errorf("sword properties: %w", err)
		}
		props = p
	}
	cfg, err := swordcfg.Load(deps.Cfg, props)
	if err != nil {
		return nil, fmt.Errorf("sword config: %w", err)
	}

	content, err := openContent(ctx, deps, o)
	if err != nil {
		return nil, err
	}

	bits, err := bitstore.New(o.Bitstore)
	if err != nil {
		return nil, fmt.Errorf("bitstore: %w", err)
	}

	methods := []auth.Method{auth.PasswordMethod{}}
	if o.LDAP.Enabled() {
		lm, err := auth.NewLDAPMethod(o.LDAP)
		if err != nil {
			return nil, fmt.Errorf("ldap: %w", err)
		}
		methods = append(methods, lm)
	}

	sink := audit.Sink(audit.Log{})
	if deps.CH != nil {
		ch := audit.NewClickHouse(deps.CH)
		if err := ch.Migrate(ctx); err != nil {
			log.Warn().Err(err).Msg("clickhouse audit table unavailable, logging deposits only")
		} else {
			sink = audit.Multi{audit.Log{}, ch}
		}
	}

	svc := service.New(service.Deps{
		Config:  cfg,
		Auth:    auth.New(cfg, content, bits, methods...),
		URLs:    urls.New(cfg, o.HandleCache),
		Audit:   sink,
		Metrics: service.NewMetrics(o.Registerer),
	})

	mws := b.Mw
	if len(mws) == 0 {
		mws = httpkit.DepositStack(o.UploadTimeout, o.MaxConcurrentDeposits)
	}

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    mws,
		ports:  Ports{Service: svc, Content: content, Bits: bits},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		swordhttp.Register(r, swordhttp.Deps{Service: svc, SpoolDir: o.SpoolDir})
		if external != nil {
			external(r)
		}
	}

	log.Info().
		Str("deposit_url", cfg.DepositURL).
		Str("bitstore", bits.Kind()).
		Int("auth_methods", len(methods)).
		Msg("sword module ready")
	return m, nil
}

// openContent picks postgres when the seam is wired, else a process local repository
func openContent(ctx context.Context, deps modkit.Deps, o Options) (domain.Store, error) {
	if deps.PG != nil {
		pg, err := repo.NewPG(deps.PG)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	mem := repo.NewMemory()
	if !o.SeedMemory {
		return mem, nil
	}
	u, err := mem.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := repo.Seed(ctx, u); err != nil {
		_ = u.Rollback(ctx)
		return nil, fmt.Errorf("seed memory repository: %w", err)
	}
	return mem, u.Commit(ctx)
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Close releases the bitstream store
func (m *Module) Close() error { return m.ports.Bits.Close() }

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is the module route prefix
func (m *Module) Prefix() string { return strings.MustPrefix(m.prefix) }

// Middlewares is the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
