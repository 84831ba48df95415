package auth

import (
	"context"

	"github.com/google/uuid"

	"sword/internal/services/sword/domain"
)

// CanSubmitTo is true when every principal of sc may deposit into target
func (a *Authenticator) CanSubmitTo(ctx context.Context, sc *Context, target domain.Ref) (bool, error) {
	for _, p := range sc.principals() {
		ok, err := canSubmit(ctx, sc, p, target)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func canSubmit(ctx context.Context, sc *Context, e *domain.EPerson, target domain.Ref) (bool, error) {
	s := sc.Session
	switch target.Type {
	case domain.TypeCollection:
		return s.Authorized(ctx, e, domain.ActionAdd, target)
	case domain.TypeItem:
		admin, err := s.IsAdmin(ctx, e)
		if err != nil || admin {
			return admin, err
		}
		ok, err := s.Authorized(ctx, e, domain.ActionWrite, target)
		if err != nil || !ok {
			return false, err
		}
		bundles, err := s.Reader().Bundles(ctx, target.ID)
		if err != nil {
			return false, err
		}
		for _, b := range bundles {
			if b.Name != domain.BundleOriginal {
				continue
			}
			ok, err := s.Authorized(ctx, e, domain.ActionAdd, b.Ref())
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	default:
		return false, nil
	}
}

// canRead is the community visibility rule for service documents
func (a *Authenticator) canRead(ctx context.Context, sc *Context, obj domain.Ref) (bool, error) {
	for _, p := range sc.principals() {
		ok, err := sc.Session.Authorized(ctx, p, domain.ActionRead, obj)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// AllowedCollections are the collections under community (all when nil) sc may deposit into
func (a *Authenticator) AllowedCollections(ctx context.Context, sc *Context, community *domain.Community) ([]domain.Collection, error) {
	parent := uuid.Nil
	if community != nil {
		parent = community.ID
	}
	cols, err := sc.Session.Reader().Collections(ctx, parent)
	if err != nil {
		return nil, err
	}
	var out []domain.Collection
	for _, c := range cols {
		ok, err := a.CanSubmitTo(ctx, sc, c.Ref())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// AllowedCommunities are the readable top level communities
func (a *Authenticator) AllowedCommunities(ctx context.Context, sc *Context) ([]domain.Community, error) {
	return a.readableCommunities(ctx, sc, uuid.Nil)
}

// SubCommunities are the readable children of c
func (a *Authenticator) SubCommunities(ctx context.Context, sc *Context, c *domain.Community) ([]domain.Community, error) {
	return a.readableCommunities(ctx, sc, c.ID)
}

func (a *Authenticator) readableCommunities(ctx context.Context, sc *Context, parent uuid.UUID) ([]domain.Community, error) {
	all, err := sc.Session.Reader().Communities(ctx, parent)
	if err != nil {
		return nil, err
	}
	var out []domain.Community
	for _, c := range all {
		ok, err := a.canRead(ctx, sc, c.Ref())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// AllowedItems are the archived items of col that sc may deposit into
func (a *Authenticator) AllowedItems(ctx context.Context, sc *Context, col *domain.Collection) ([]domain.Item, error) {
	items, err := sc.Session.Reader().ArchivedItems(ctx, col.ID)
	if err != nil {
		return nil, err
	}
	var out []domain.Item
	for _, it := range items {
		ok, err := a.CanSubmitTo(ctx, sc, it.Ref())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}
