// Package packager unpacks deposit packages into new items
package packager

import (
	"context"
	"errors"
	"sort"
	"sync"

	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
)

// Params steers how the produced item enters the repository
type Params struct {
	// WorkflowEnabled allows the collection's review workflow to run
	WorkflowEnabled bool
	// RestoreMode reuses the handle named by the package when it is free
	RestoreMode bool
	// UseCollectionTemplate starts the item from the collection template metadata
	UseCollectionTemplate bool

	HandlePrefix    string
	CanonicalPrefix string
	Verbose         *domain.Verbose
}

// Ingester turns a package file into an item inside col
// a nil item with a nil error means the package held nothing to ingest
type Ingester interface {
	Ingest(ctx context.Context, s *content.Session, col *domain.Collection, path string, p Params) (*domain.Item, error)
}

// ErrUnknown is returned by Lookup for unregistered names
var ErrUnknown = errors.New("packager: unknown package ingester")

// Registry maps plugin names to package ingesters
type Registry struct {
	mu sync.RWMutex
	m  map[string]Ingester
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry { return &Registry{m: map[string]Ingester{}} }

// Default registers the built in ingesters
func Default() *Registry {
	r := NewRegistry()
	r.Register(METSName, NewMETS())
	return r
}

// Register binds name to in, replacing any previous binding
func (r *Registry) Register(name string, in Ingester) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[name] = in
}

// Lookup returns the ingester bound to name
func (r *Registry) Lookup(name string) (Ingester, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.m[name]
	if !ok {
		return nil, ErrUnknown
	}
	return in, nil
}

// Names lists registered ingesters
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for n := range r.m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
