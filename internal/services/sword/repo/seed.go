package repo

import (
	"context"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
)

// DefaultFormats is the bitstream format registry a fresh repository starts with
func DefaultFormats() []domain.BitstreamFormat {
	return []domain.BitstreamFormat{
		{MIMEType: "application/octet-stream", ShortDescription: domain.UnknownFormat},
		{MIMEType: "text/plain; charset=utf-8", ShortDescription: "License", Internal: true, Extensions: []string{"txt"}},
		{MIMEType: "application/zip", ShortDescription: "ZIP", Extensions: []string{"zip"}},
		{MIMEType: "application/pdf", ShortDescription: "Adobe PDF", Extensions: []string{"pdf"}},
		{MIMEType: "text/plain", ShortDescription: "Text", Extensions: []string{"txt", "asc"}},
		{MIMEType: "text/xml", ShortDescription: "XML", Extensions: []string{"xml"}},
		{MIMEType: "text/html", ShortDescription: "HTML", Extensions: []string{"html", "htm"}},
		{MIMEType: "image/jpeg", ShortDescription: "JPEG", Extensions: []string{"jpeg", "jpg"}},
		{MIMEType: "image/png", ShortDescription: "PNG", Extensions: []string{"png"}},
		{MIMEType: "application/msword", ShortDescription: "Microsoft Word", Extensions: []string{"doc"}},
	}
}

// Seed registers the default formats and the administrator group when missing
func Seed(ctx context.Context, u Content) error {
	existing, err := u.Formats(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, f := range DefaultFormats() {
			f := f
			if err := u.CreateFormat(ctx, &f); err != nil {
				return err
			}
		}
	}
	_, err = u.GroupByName(ctx, domain.AdminGroup)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return u.CreateGroup(ctx, &domain.Group{Name: domain.AdminGroup})
	}
	return err
}
