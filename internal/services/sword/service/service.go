// Package service runs SWORD deposits, service documents and media entries
package service

import (
	"sword/internal/platform/logger"
	"sword/internal/services/sword/atom"
	"sword/internal/services/sword/audit"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/ingest"
	"sword/internal/services/sword/packager"
	"sword/internal/services/sword/swordcfg"
	"sword/internal/services/sword/urls"
)

// Deps are the collaborators a Service is built from
type Deps struct {
	Config    swordcfg.Config
	Auth      *auth.Authenticator
	URLs      *urls.Resolver
	Ingesters *ingest.Registry
	Packagers *packager.Registry
	// Audit defaults to audit.Log
	Audit   audit.Sink
	Metrics *Metrics
}

// Service is the deposit manager and document builder
type Service struct {
	cfg       swordcfg.Config
	auth      *auth.Authenticator
	urls      *urls.Resolver
	ingesters *ingest.Registry
	packagers *packager.Registry
	audit     audit.Sink
	metrics   *Metrics
	log       *logger.Logger

	itemEntries      atom.EntryGenerator
	bitstreamEntries atom.EntryGenerator
	collections      atom.CollectionGenerator
	communities      atom.CollectionGenerator
	items            atom.CollectionGenerator
}

// New constructs the service, panicking on missing collaborators
func New(d Deps) *Service {
	if d.Auth == nil {
		panic("sword.Service requires an Authenticator")
	}
	if d.URLs == nil {
		panic("sword.Service requires a URL resolver")
	}
	if d.Ingesters == nil {
		d.Ingesters = ingest.Default()
	}
	if d.Packagers == nil {
		d.Packagers = packager.Default()
	}
	if d.Audit == nil {
		d.Audit = audit.Log{}
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	return &Service{
		cfg:       d.Config,
		auth:      d.Auth,
		urls:      d.URLs,
		ingesters: d.Ingesters,
		packagers: d.Packagers,
		audit:     d.Audit,
		metrics:   d.Metrics,
		log:       logger.Named("sword.deposit"),

		itemEntries:      atom.NewItemEntryGenerator(d.Config, d.URLs),
		bitstreamEntries: atom.NewBitstreamEntryGenerator(d.Config, d.URLs),
		collections:      atom.NewCollectionCollectionGenerator(d.Config, d.URLs),
		communities:      atom.NewCommunityCollectionGenerator(d.Config, d.URLs),
		items:            atom.NewItemCollectionGenerator(d.Config, d.URLs),
	}
}

// Config returns the policy the service runs with
func (s *Service) Config() swordcfg.Config { return s.cfg }

// Authenticator exposes the authenticator for the transport layer
func (s *Service) Authenticator() *auth.Authenticator { return s.auth }
