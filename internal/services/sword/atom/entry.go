package atom

import (
	"context"
	"strings"

	perr "sword/internal/platform/errors"
	"sword/internal/platform/logger"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/swordcfg"
	"sword/internal/services/sword/urls"
)

// EntryInput is what a generator renders from
type EntryInput struct {
	Reader domain.Reader
	// Deposit is nil for media entries
	Deposit     *domain.Deposit
	Result      *domain.DepositResult
	Author      *domain.EPerson
	Contributor *domain.EPerson
}

func (in EntryInput) noOp() bool { return in.Deposit != nil && in.Deposit.NoOp }

// EntryGenerator renders a deposit receipt or media entry
type EntryGenerator interface {
	Generate(ctx context.Context, in EntryInput) (*Entry, error)
}

type base struct {
	cfg  swordcfg.Config
	urls *urls.Resolver
}

// common fills the parts every entry shares
func (b base) common(e *Entry, in EntryInput) {
	if b.cfg.IdentifyVersion {
		e.Generator = &Generator{URI: b.cfg.GeneratorURL, Version: b.cfg.GeneratorVersion}
	}
	if in.Deposit != nil && in.Author != nil {
		e.Authors = append(e.Authors, Person{Name: in.Author.FullName(), Email: in.Author.Email})
	}
	if in.Contributor != nil {
		e.Contributor = append(e.Contributor, Person{Name: in.Contributor.FullName(), Email: in.Contributor.Email})
	}
	if in.Result != nil {
		e.Treatment = in.Result.Treatment
	}
	if in.Deposit != nil {
		e.Packaging = in.Deposit.Packaging
		e.UserAgent = in.Deposit.UserAgent
	}
}

// mimeOf returns the registered MIME of bs, or "" when it cannot be determined
func (b base) mimeOf(ctx context.Context, r domain.Reader, bs *domain.Bitstream) string {
	if bs.FormatID == 0 {
		return ""
	}
	f, err := r.Format(ctx, bs.FormatID)
	if err != nil {
		logger.C(ctx).Debug().Err(err).Str("bitstream", bs.ID.String()).Msg("no format for bitstream")
		return ""
	}
	return f.MIMEType
}

func (b base) bundleBitstreams(ctx context.Context, r domain.Reader, it *domain.Item, name string) ([]domain.Bitstream, error) {
	bundles, err := r.Bundles(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	var out []domain.Bitstream
	for _, bu := range bundles {
		if bu.Name != name {
			continue
		}
		bits, err := r.BundleBitstreams(ctx, bu.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, bits...)
	}
	return out, nil
}

// rights is the space joined list of license bitstream URLs
func (b base) rights(ctx context.Context, r domain.Reader, it *domain.Item) (string, error) {
	bits, err := b.bundleBitstreams(ctx, r, it, domain.BundleLicense)
	if err != nil {
		return "", err
	}
	var hrefs []string
	for i := range bits {
		u, err := b.urls.BitstreamURL(ctx, r, &bits[i])
		if err != nil {
			return "", err
		}
		hrefs = append(hrefs, u)
	}
	return strings.Join(hrefs, " "), nil
}

// ItemEntryGenerator renders the receipt of a collection deposit
type ItemEntryGenerator struct{ base }

// NewItemEntryGenerator builds the item receipt generator
func NewItemEntryGenerator(cfg swordcfg.Config, u *urls.Resolver) *ItemEntryGenerator {
	return &ItemEntryGenerator{base{cfg: cfg, urls: u}}
}

func (g *ItemEntryGenerator) Generate(ctx context.Context, in EntryInput) (*Entry, error) {
	if in.Result == nil || in.Result.Item == nil {
		return nil, perr.Internalf("item entry without an item")
	}
	r, it := in.Reader, in.Result.Item
	e := NewEntry()
	g.common(e, in)

	for _, s := range it.Metadata.Values("dc.subject.*") {
		e.Categories = append(e.Categories, Category{Term: s})
	}

	if !in.noOp() && it.Handle != "" {
		if g.cfg.KeepOriginal {
			kept, err := g.bundleBitstreams(ctx, r, it, g.cfg.BundleName)
			if err != nil {
				return nil, err
			}
			if len(kept) > 0 {
				src, err := g.urls.BitstreamURL(ctx, r, &kept[0])
				if err != nil {
					return nil, err
				}
				e.Content = &Content{Src: src, Type: g.mimeOf(ctx, r, &kept[0])}
			}
		} else {
			e.Content = &Content{Src: g.urls.CanonicalHandle(it.Handle), Type: "text/html"}
		}
	}

	if !in.noOp() && it.Handle != "" {
		e.ID = g.urls.CanonicalHandle(it.Handle)
	} else {
		e.ID = g.cfg.DSpaceURL
	}

	if it.Handle != "" {
		parts, err := g.bundleBitstreams(ctx, r, it, domain.BundleOriginal)
		if err != nil {
			return nil, err
		}
		for i := range parts {
			href, err := g.urls.BitstreamURL(ctx, r, &parts[i])
			if err != nil {
				return nil, err
			}
			e.AddLink("part", href, g.mimeOf(ctx, r, &parts[i]))
		}
		e.AddLink("alternate", g.urls.CanonicalHandle(it.Handle), "text/html")
	}
	media := in.Result.MediaLink
	if media == "" {
		media = g.urls.ItemMediaLink(it)
	}
	e.AddLink("edit-media", media, "")

	e.Published = it.Metadata.First("dc.date.available")
	rights, err := g.rights(ctx, r, it)
	if err != nil {
		return nil, err
	}
	e.Rights = text(rights)
	e.Summary = text(it.Metadata.First("dc.description.abstract"))
	e.Title = text(it.Metadata.First("dc.title"))
	e.Updated = it.Metadata.First(g.cfg.UpdatedField)
	return e, nil
}

// BitstreamEntryGenerator renders item deposit receipts and media entries
type BitstreamEntryGenerator struct{ base }

// NewBitstreamEntryGenerator builds the bitstream entry generator
func NewBitstreamEntryGenerator(cfg swordcfg.Config, u *urls.Resolver) *BitstreamEntryGenerator {
	return &BitstreamEntryGenerator{base{cfg: cfg, urls: u}}
}

func (g *BitstreamEntryGenerator) Generate(ctx context.Context, in EntryInput) (*Entry, error) {
	if in.Result == nil || in.Result.Bitstream == nil {
		return nil, perr.Internalf("bitstream entry without a bitstream")
	}
	r, bs := in.Reader, in.Result.Bitstream
	e := NewEntry()
	g.common(e, in)

	href, err := g.urls.BitstreamURL(ctx, r, bs)
	if err != nil {
		return nil, err
	}
	if !in.noOp() {
		mime := g.mimeOf(ctx, r, bs)
		if mime == "" {
			mime = "application/octet-stream"
		}
		e.Content = &Content{Src: href, Type: mime}
		e.ID = href
	} else {
		e.ID = g.cfg.DSpaceURL
	}
	e.AddLink("alternate", href, "")
	if in.Result.MediaLink != "" {
		e.AddLink("edit-media", in.Result.MediaLink, "")
	}

	bundles, err := r.BitstreamBundles(ctx, bs.ID)
	if err != nil {
		return nil, err
	}
	if len(bundles) > 0 {
		it, err := r.Item(ctx, bundles[0].ItemID)
		if err != nil {
			return nil, err
		}
		e.Published = it.Metadata.First("dc.date.available")
		rights, err := g.rights(ctx, r, it)
		if err != nil {
			return nil, err
		}
		e.Rights = text(rights)
		e.Updated = it.Metadata.First(g.cfg.UpdatedField)
	}
	e.Title = text(bs.Name)
	return e, nil
}
