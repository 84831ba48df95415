package service

import (
	"context"
	"errors"

	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/ingest"
)

// Depositor performs a deposit into one kind of target
type Depositor interface {
	Deposit(ctx context.Context, env ingest.Env, d *domain.Deposit, target domain.Ref) (*domain.DepositResult, error)
	// Undo reverts a deposit made in the same session
	Undo(ctx context.Context, env ingest.Env, res *domain.DepositResult) error
}

// validate checks the declared content type and packaging against target
func validate(ctx context.Context, env ingest.Env, d *domain.Deposit, target domain.Ref, handle string) error {
	ok, err := env.Config.IsAcceptableContentType(ctx, env.Session.Reader(), d.ContentType, target)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Fail(domain.ErrorContent, "Unacceptable content type in deposit request: %s", d.ContentType)
	}
	if !env.Config.IsSupportedPackaging(d.Packaging, target, handle) {
		return domain.Fail(domain.ErrorContent, "Unacceptable packaging type in deposit request: %s", d.Packaging)
	}
	env.Verbose.Printf("Accepted content type %q and packaging %q", d.ContentType, d.Packaging)
	return nil
}

func lookup(reg *ingest.Registry, packaging string) (ingest.Ingester, error) {
	in, err := reg.Lookup(packaging)
	if errors.Is(err, ingest.ErrNotRegistered) {
		return nil, domain.FailWrap(err, domain.ErrorContent, "No ingester configured for this package type")
	}
	return in, err
}

// keepOriginal stores the untouched upload in the configured bundle as a system write
func keepOriginal(ctx context.Context, env ingest.Env, d *domain.Deposit, it *domain.Item, description string) (*domain.Bitstream, error) {
	s := env.Session
	var bs *domain.Bitstream
	err := s.AsSystem(func() error {
		b, err := s.Bundle(ctx, it, env.Config.BundleName)
		if err != nil {
			return err
		}
		body, err := d.Open()
		if err != nil {
			return err
		}
		defer body.Close()
		size, err := d.Size()
		if err != nil {
			return err
		}
		bs, err = s.StoreBitstream(ctx, b, content.NewBitstream{
			Name:        ingest.Filename(ctx, s, d, true),
			Source:      d.Filename,
			Description: description,
			MIMEType:    d.ContentType,
			Size:        size,
			Body:        body,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	env.Verbose.Printf("Original package stored as %s in %s", bs.Name, env.Config.BundleName)
	return bs, nil
}

// CollectionDepositor creates a new item from a package
type CollectionDepositor struct {
	ingesters *ingest.Registry
}

func (c CollectionDepositor) Deposit(ctx context.Context, env ingest.Env, d *domain.Deposit, target domain.Ref) (*domain.DepositResult, error) {
	col, err := env.Session.Reader().Collection(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	if err := validate(ctx, env, d, target, col.Handle); err != nil {
		return nil, err
	}
	in, err := lookup(c.ingesters, d.Packaging)
	if err != nil {
		return nil, err
	}
	res, err := in.Ingest(ctx, env, d, target)
	if err != nil {
		return nil, err
	}
	if res.Item == nil {
		return res, nil
	}

	if env.Config.KeepOriginal {
		bs, err := keepOriginal(ctx, env, d, res.Item, "SWORD deposit package")
		if err != nil {
			return nil, err
		}
		if res.MediaLink, err = env.URLs.BitstreamMediaLink(ctx, env.Session.Reader(), bs); err != nil {
			return nil, err
		}
	} else {
		res.MediaLink = env.URLs.MediaLinkBase()
	}
	return res, nil
}

// Undo discards everything the session wrote, blobs included
func (CollectionDepositor) Undo(ctx context.Context, env ingest.Env, _ *domain.DepositResult) error {
	return env.Session.Abort(ctx)
}

// ItemDepositor adds a single file to an existing item
type ItemDepositor struct {
	ingesters *ingest.Registry
}

func (c ItemDepositor) Deposit(ctx context.Context, env ingest.Env, d *domain.Deposit, target domain.Ref) (*domain.DepositResult, error) {
	r := env.Session.Reader()
	it, err := r.Item(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	if err := validate(ctx, env, d, target, it.Handle); err != nil {
		return nil, err
	}
	in, err := lookup(c.ingesters, ingest.SimpleFile)
	if err != nil {
		return nil, err
	}
	res, err := in.Ingest(ctx, env, d, target)
	if err != nil {
		return nil, err
	}
	if res.Bitstream == nil {
		return res, nil
	}

	linked := res.Bitstream
	if env.Config.KeepOriginal {
		if linked, err = keepOriginal(ctx, env, d, it, "Original file deposited via SWORD"); err != nil {
			return nil, err
		}
	}
	if res.MediaLink, err = env.URLs.BitstreamMediaLink(ctx, r, linked); err != nil {
		return nil, err
	}
	return res, nil
}

// Undo unlinks the new bitstream from its bundles, then discards the session
func (ItemDepositor) Undo(ctx context.Context, env ingest.Env, res *domain.DepositResult) error {
	s := env.Session
	if res != nil && res.Bitstream != nil && !s.Done() {
		bundles, err := s.Reader().BitstreamBundles(ctx, res.Bitstream.ID)
		if err != nil {
			return err
		}
		err = s.AsSystem(func() error {
			for i := range bundles {
				if err := s.RemoveBitstream(ctx, &bundles[i], res.Bitstream); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return s.Abort(ctx)
}
