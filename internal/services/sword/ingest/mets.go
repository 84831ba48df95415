package ingest

import (
	"context"
	"errors"
	"time"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/packager"
)

// METSTreatment describes what a METS deposit does
const METSTreatment = "The package has been deposited into DSpace. Each file has been unpacked " +
	"and provided with a unique identifier. The metadata in the manifest has been extracted " +
	"and attached to the DSpace item, which has been provided with an identifier leading to " +
	"an HTML splash page."

// METS ingests DSpace METS SIP packages into collections
type METS struct{}

func (METS) Ingest(ctx context.Context, env Env, d *domain.Deposit, target domain.Ref) (*domain.DepositResult, error) {
	if target.Type != domain.TypeCollection {
		return nil, perr.Internalf("METS packages can only be deposited into collections, not a %s", target.Type)
	}
	s, cfg := env.Session, env.Config
	col, err := s.Reader().Collection(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	pi, err := env.Packagers.Lookup(cfg.PackageIngester)
	if errors.Is(err, packager.ErrUnknown) {
		return nil, perr.Internalf("package ingester %q is not configured", cfg.PackageIngester)
	}
	if err != nil {
		return nil, err
	}
	it, err := pi.Ingest(ctx, s, col, d.File, packager.Params{
		WorkflowEnabled:       true,
		RestoreMode:           cfg.RestoreMode,
		UseCollectionTemplate: cfg.UseCollectionTemplate,
		HandlePrefix:          cfg.HandlePrefix,
		CanonicalPrefix:       cfg.HandleCanonicalPrefix,
		Verbose:               env.Verbose,
	})
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, domain.Fail(domain.UnpackageFail, "METS package ingester failed to unpack package")
	}

	err = s.AsSystem(func() error {
		it.Metadata.Set(cfg.UpdatedField, "", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
		if d.Slug != "" && cfg.SlugField != "" {
			it.Metadata.Set(cfg.SlugField, "", d.Slug)
		}
		return s.UpdateItem(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	env.Verbose.Printf("Updated %s on the new item", cfg.UpdatedField)

	return &domain.DepositResult{Item: it, Handle: it.Handle, Treatment: METSTreatment}, nil
}
