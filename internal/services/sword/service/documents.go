package service

import (
	"context"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/atom"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/domain"
)

// ServiceDocument builds the root document or the sub document of a community or collection
func (s *Service) ServiceDocument(ctx context.Context, sc *auth.Context, url string) (*atom.Service, error) {
	r := sc.Session.Reader()
	target, err := s.urls.ServiceDocumentTarget(ctx, r, url)
	if err != nil {
		return nil, err
	}

	svc := atom.NewService()
	svc.Verbose = s.cfg.VerboseSupported
	svc.NoOp = s.cfg.NoOpSupported
	if s.cfg.MaxUploadSize > 0 {
		svc.MaxUploadSize = s.cfg.MaxUploadSize
	}

	var ws atom.Workspace
	switch {
	case target.IsZero():
		ws.Title = s.cfg.RepositoryName
		if s.cfg.ExposeCommunities {
			coms, err := s.auth.AllowedCommunities(ctx, sc)
			if err != nil {
				return nil, err
			}
			if err := s.appendCommunities(ctx, r, &ws, coms); err != nil {
				return nil, err
			}
		} else {
			cols, err := s.auth.AllowedCollections(ctx, sc, nil)
			if err != nil {
				return nil, err
			}
			if err := s.appendCollections(ctx, r, &ws, cols); err != nil {
				return nil, err
			}
		}

	case target.Type == domain.TypeCollection:
		col, err := r.Collection(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		ws.Title = col.Name
		items, err := s.auth.AllowedItems(ctx, sc, col)
		if err != nil {
			return nil, err
		}
		for i := range items {
			c, err := s.items.Build(ctx, r, items[i].Ref())
			if err != nil {
				return nil, err
			}
			ws.Collections = append(ws.Collections, *c)
		}

	case target.Type == domain.TypeCommunity:
		com, err := r.Community(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		ws.Title = com.Name
		cols, err := s.auth.AllowedCollections(ctx, sc, com)
		if err != nil {
			return nil, err
		}
		if err := s.appendCollections(ctx, r, &ws, cols); err != nil {
			return nil, err
		}
		subs, err := s.auth.SubCommunities(ctx, sc, com)
		if err != nil {
			return nil, err
		}
		if err := s.appendCommunities(ctx, r, &ws, subs); err != nil {
			return nil, err
		}

	default:
		return nil, perr.Internalf("service document for a %s", target.Type)
	}

	svc.Workspaces = []atom.Workspace{ws}
	return svc, nil
}

func (s *Service) appendCollections(ctx context.Context, r domain.Reader, ws *atom.Workspace, cols []domain.Collection) error {
	for i := range cols {
		c, err := s.collections.Build(ctx, r, cols[i].Ref())
		if err != nil {
			return err
		}
		ws.Collections = append(ws.Collections, *c)
	}
	return nil
}

func (s *Service) appendCommunities(ctx context.Context, r domain.Reader, ws *atom.Workspace, coms []domain.Community) error {
	for i := range coms {
		c, err := s.communities.Build(ctx, r, coms[i].Ref())
		if err != nil {
			return err
		}
		ws.Collections = append(ws.Collections, *c)
	}
	return nil
}

// MediaEntry describes the bitstream a media link URL points at
func (s *Service) MediaEntry(ctx context.Context, sc *auth.Context, url string) (*atom.Entry, error) {
	r := sc.Session.Reader()
	ref, err := s.urls.MediaLinkTarget(ctx, r, url)
	if err != nil {
		return nil, err
	}
	bs, err := r.Bitstream(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	return s.bitstreamEntries.Generate(ctx, atom.EntryInput{
		Reader:      r,
		Result:      &domain.DepositResult{Bitstream: bs, MediaLink: url},
		Contributor: sc.OnBehalfOf,
	})
}
