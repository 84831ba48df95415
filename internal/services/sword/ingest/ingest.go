// Package ingest turns deposits into repository objects
package ingest

import (
	"context"
	"errors"
	"sync"

	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/packager"
	"sword/internal/services/sword/swordcfg"
	"sword/internal/services/sword/urls"
)

// SimpleFile is the registry key of the single file ingester
const SimpleFile = "SimpleFileIngester"

// Env is what an ingester works against for one request
type Env struct {
	Session   *content.Session
	Config    swordcfg.Config
	URLs      *urls.Resolver
	Packagers *packager.Registry
	Verbose   *domain.Verbose
}

// Ingester unpacks a deposit into target
type Ingester interface {
	Ingest(ctx context.Context, env Env, d *domain.Deposit, target domain.Ref) (*domain.DepositResult, error)
}

// Factory builds a fresh ingester
type Factory func() Ingester

// ErrNotRegistered is returned by Lookup for unknown packaging
var ErrNotRegistered = errors.New("ingest: no ingester registered")

// Registry maps packaging URIs to ingesters
type Registry struct {
	mu sync.RWMutex
	m  map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry { return &Registry{m: map[string]Factory{}} }

// Default registers the METS SIP and single file ingesters
func Default() *Registry {
	r := NewRegistry()
	r.Register(swordcfg.METSDSpaceSIP, func() Ingester { return METS{} })
	r.Register(SimpleFile, func() Ingester { return SimpleFileIngester{} })
	return r
}

// Register binds packaging to f
func (r *Registry) Register(packaging string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[packaging] = f
}

// Lookup builds the ingester for packaging
func (r *Registry) Lookup(packaging string) (Ingester, error) {
	r.mu.RLock()
	f, ok := r.m[packaging]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotRegistered
	}
	return f(), nil
}
