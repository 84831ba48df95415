package ingest

import (
	"context"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
)

// SimpleFileTreatment describes what an item deposit does
const SimpleFileTreatment = "The file has been attached to the specified item"

// SimpleFileIngester attaches the deposited bytes to an existing item
type SimpleFileIngester struct{}

func (SimpleFileIngester) Ingest(ctx context.Context, env Env, d *domain.Deposit, target domain.Ref) (*domain.DepositResult, error) {
	if target.Type != domain.TypeItem {
		return nil, perr.Internalf("single files can only be deposited into items, not a %s", target.Type)
	}
	s := env.Session
	it, err := s.Reader().Item(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	body, err := d.Open()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "open deposit")
	}
	defer body.Close()
	size, err := d.Size()
	if err != nil {
		size = d.ContentLength
	}

	var bs *domain.Bitstream
	err = s.AsSystem(func() error {
		orig, err := s.Bundle(ctx, it, domain.BundleOriginal)
		if err != nil {
			return err
		}
		bs, err = s.StoreBitstream(ctx, orig, content.NewBitstream{
			Name:     Filename(ctx, s, d, false),
			Source:   d.Filename,
			MIMEType: d.ContentType,
			Size:     size,
			Body:     body,
		})
		if err != nil {
			return err
		}
		return s.UpdateItem(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	env.Verbose.Printf("Stored %s (%d bytes) in %s", bs.Name, bs.Size, domain.BundleOriginal)

	href, err := env.URLs.BitstreamURL(ctx, s.Reader(), bs)
	if err != nil {
		return nil, err
	}
	return &domain.DepositResult{Bitstream: bs, Handle: href, Treatment: SimpleFileTreatment}, nil
}
