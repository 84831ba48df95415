package atom

import (
	"context"
	"sort"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/swordcfg"
	"sword/internal/services/sword/urls"
)

// CollectionGenerator renders one deposit target of a service document
type CollectionGenerator interface {
	Build(ctx context.Context, r domain.Reader, obj domain.Ref) (*Collection, error)
}

// ItemTreatment describes what an item deposit does
const ItemTreatment = "A file deposited here will be added to the ORIGINAL bundle of this item"

// SortedPackaging orders by q descending then URI
func SortedPackaging(m map[string]float64) []AcceptPackaging {
	out := make([]AcceptPackaging, 0, len(m))
	for uri, q := range m {
		out = append(out, AcceptPackaging{URI: uri, Q: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Q != out[j].Q {
			return out[i].Q > out[j].Q
		}
		return out[i].URI < out[j].URI
	})
	return out
}

// CollectionCollectionGenerator renders a repository collection
type CollectionCollectionGenerator struct{ base }

func NewCollectionCollectionGenerator(cfg swordcfg.Config, u *urls.Resolver) *CollectionCollectionGenerator {
	return &CollectionCollectionGenerator{base{cfg: cfg, urls: u}}
}

func (g *CollectionCollectionGenerator) Build(ctx context.Context, r domain.Reader, obj domain.Ref) (*Collection, error) {
	if obj.Type != domain.TypeCollection {
		return nil, perr.Internalf("collection generator given a %s", obj.Type)
	}
	col, err := r.Collection(ctx, obj.ID)
	if err != nil {
		return nil, err
	}
	c := &Collection{
		Href:             g.urls.DepositLocation(col.Handle),
		Title:            col.Name,
		Accepts:          append([]string(nil), g.cfg.Accepts...),
		AcceptPackaging:  SortedPackaging(g.cfg.AcceptPackaging(col.Handle)),
		CollectionPolicy: col.License,
		Abstract:         col.ShortDescription,
		Mediation:        g.cfg.Mediated,
	}
	if g.cfg.ExposeItems {
		c.Service = g.urls.SubServiceURL(col.Handle)
	}
	return c, nil
}

// CommunityCollectionGenerator renders a community as a browsable target
type CommunityCollectionGenerator struct{ base }

func NewCommunityCollectionGenerator(cfg swordcfg.Config, u *urls.Resolver) *CommunityCollectionGenerator {
	return &CommunityCollectionGenerator{base{cfg: cfg, urls: u}}
}

func (g *CommunityCollectionGenerator) Build(ctx context.Context, r domain.Reader, obj domain.Ref) (*Collection, error) {
	if obj.Type != domain.TypeCommunity {
		return nil, perr.Internalf("community generator given a %s", obj.Type)
	}
	com, err := r.Community(ctx, obj.ID)
	if err != nil {
		return nil, err
	}
	return &Collection{
		Href:      g.urls.DepositLocation(com.Handle),
		Title:     com.Name,
		Abstract:  com.ShortDescription,
		Mediation: g.cfg.Mediated,
		Service:   g.urls.SubServiceURL(com.Handle),
	}, nil
}

// ItemCollectionGenerator renders an archived item as a deposit target
type ItemCollectionGenerator struct{ base }

func NewItemCollectionGenerator(cfg swordcfg.Config, u *urls.Resolver) *ItemCollectionGenerator {
	return &ItemCollectionGenerator{base{cfg: cfg, urls: u}}
}

func (g *ItemCollectionGenerator) Build(ctx context.Context, r domain.Reader, obj domain.Ref) (*Collection, error) {
	if obj.Type != domain.TypeItem {
		return nil, perr.Internalf("item generator given a %s", obj.Type)
	}
	it, err := r.Item(ctx, obj.ID)
	if err != nil {
		return nil, err
	}
	accepts, err := swordcfg.ItemAccepts(ctx, r)
	if err != nil {
		return nil, err
	}
	title := it.Metadata.First("dc.title")
	if title == "" {
		title = "Untitled"
	}
	return &Collection{
		Href:      g.urls.DepositLocation(it.Handle),
		Title:     title,
		Accepts:   accepts,
		Abstract:  it.Metadata.First("dc.description.abstract"),
		Mediation: g.cfg.Mediated,
		Treatment: ItemTreatment,
	}, nil
}
