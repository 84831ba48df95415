// Package admin bootstraps repository content: people, groups, the community
// tree and the policies that let depositors in
package admin

import (
	"context"
	"fmt"
	"strings"

	perr "sword/internal/platform/errors"
	"sword/internal/platform/logger"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/repo"
)

// Admin runs each operation in its own unit of work
type Admin struct {
	store  domain.Store
	prefix string
	log    *logger.Logger
}

// New builds an Admin minting handles under prefix
func New(st domain.Store, handlePrefix string) *Admin {
	return &Admin{store: st, prefix: handlePrefix, log: logger.Named("sword.admin")}
}

func (a *Admin) unit(ctx context.Context, fn func(u domain.Unit) error) error {
	u, err := a.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(u); err != nil {
		_ = u.Rollback(ctx)
		return err
	}
	return u.Commit(ctx)
}

// Seed installs the default format registry and the administrator group
func (a *Admin) Seed(ctx context.Context) error {
	return a.unit(ctx, func(u domain.Unit) error { return repo.Seed(ctx, u) })
}

// NewEPerson describes a user to register
type NewEPerson struct {
	Email     string
	NetID     string
	FirstName string
	LastName  string
	Password  string
	// Admin adds the user to the administrator group
	Admin bool
}

// AddEPerson registers a user; users without a password can only log in through LDAP
func (a *Admin) AddEPerson(ctx context.Context, in NewEPerson) (*domain.EPerson, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, perr.InvalidArgf("email is required")
	}
	ep := &domain.EPerson{
		Email:     email,
		NetID:     strings.TrimSpace(in.NetID),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		CanLogIn:  true,
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		ep.PasswordHash = hash
	}
	err := a.unit(ctx, func(u domain.Unit) error {
		if err := u.CreateEPerson(ctx, ep); err != nil {
			return err
		}
		if !in.Admin {
			return nil
		}
		g, err := u.GroupByName(ctx, domain.AdminGroup)
		if err != nil {
			return err
		}
		return u.AddGroupMember(ctx, g.ID, ep.ID)
	})
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("email", ep.Email).Bool("admin", in.Admin).Msg("eperson added")
	return ep, nil
}

// AddGroup creates a named group
func (a *Admin) AddGroup(ctx context.Context, name string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, perr.InvalidArgf("group name is required")
	}
	g := &domain.Group{Name: name}
	if err := a.unit(ctx, func(u domain.Unit) error { return u.CreateGroup(ctx, g) }); err != nil {
		return nil, err
	}
	return g, nil
}

// AddGroupMember puts the user with email into group
func (a *Admin) AddGroupMember(ctx context.Context, group, email string) error {
	return a.unit(ctx, func(u domain.Unit) error {
		g, err := u.GroupByName(ctx, group)
		if err != nil {
			return err
		}
		ep, err := u.EPersonByEmail(ctx, email)
		if err != nil {
			return err
		}
		return u.AddGroupMember(ctx, g.ID, ep.ID)
	})
}

// mint binds the next free handle under the prefix to ref
func (a *Admin) mint(ctx context.Context, u domain.Unit, ref domain.Ref) (string, error) {
	for {
		n, err := u.NextHandleSuffix(ctx)
		if err != nil {
			return "", err
		}
		h := fmt.Sprintf("%s/%d", a.prefix, n)
		err = u.BindHandle(ctx, h, ref)
		if perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
			continue
		}
		return h, err
	}
}

// resolve looks a handle up and checks it names the wanted type
func resolve(ctx context.Context, u domain.Unit, handle string, want domain.ObjectType) (domain.Ref, error) {
	ref, err := u.ResolveHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		return domain.Ref{}, err
	}
	if ref.Type != want {
		return domain.Ref{}, perr.InvalidArgf("handle %s is a %s, not a %s", handle, ref.Type, want)
	}
	return ref, nil
}

// AddCommunity creates a community, top level when parentHandle is empty
func (a *Admin) AddCommunity(ctx context.Context, name, parentHandle string) (*domain.Community, error) {
	c := &domain.Community{Name: strings.TrimSpace(name)}
	if c.Name == "" {
		return nil, perr.InvalidArgf("community name is required")
	}
	err := a.unit(ctx, func(u domain.Unit) error {
		if parentHandle != "" {
			parent, err := resolve(ctx, u, parentHandle, domain.TypeCommunity)
			if err != nil {
				return err
			}
			c.ParentID = parent.ID
		}
		if err := u.CreateCommunity(ctx, c); err != nil {
			return err
		}
		h, err := a.mint(ctx, u, c.Ref())
		c.Handle = h
		return err
	})
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("handle", c.Handle).Str("name", c.Name).Msg("community added")
	return c, nil
}

// NewCollection describes a collection to create
type NewCollection struct {
	Name            string
	CommunityHandle string
	Description     string
	License         string
	Workflow        bool
	// Template holds field=value pairs new items may start from
	Template []string
}

// parseTemplate turns field=value pairs into metadata
func parseTemplate(pairs []string) (domain.Metadata, error) {
	var md domain.Metadata
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		field = strings.TrimSpace(field)
		if !ok || !strings.Contains(field, ".") || strings.TrimSpace(value) == "" {
			return nil, perr.InvalidArgf("template value %q is not schema.element[.qualifier]=value", p)
		}
		md.Add(field, "", strings.TrimSpace(value))
	}
	return md, nil
}

// AddCollection creates a collection inside a community
func (a *Admin) AddCollection(ctx context.Context, in NewCollection) (*domain.Collection, error) {
	c := &domain.Collection{
		Name:             strings.TrimSpace(in.Name),
		ShortDescription: in.Description,
		License:          in.License,
		WorkflowEnabled:  in.Workflow,
	}
	if c.Name == "" {
		return nil, perr.InvalidArgf("collection name is required")
	}
	tmpl, err := parseTemplate(in.Template)
	if err != nil {
		return nil, err
	}
	c.Template = tmpl
	err = a.unit(ctx, func(u domain.Unit) error {
		com, err := resolve(ctx, u, in.CommunityHandle, domain.TypeCommunity)
		if err != nil {
			return err
		}
		c.CommunityID = com.ID
		if err := u.CreateCollection(ctx, c); err != nil {
			return err
		}
		h, err := a.mint(ctx, u, c.Ref())
		c.Handle = h
		return err
	})
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("handle", c.Handle).Str("name", c.Name).Bool("workflow", c.WorkflowEnabled).Msg("collection added")
	return c, nil
}

// Grant gives action on the object behind handle to a user (by email) or a group (by name)
func (a *Admin) Grant(ctx context.Context, handle, action, email, group string) error {
	act, ok := domain.ParseAction(action)
	if !ok {
		return perr.InvalidArgf("unknown action %q", action)
	}
	if (email == "") == (group == "") {
		return perr.InvalidArgf("grant needs exactly one of email or group")
	}
	return a.unit(ctx, func(u domain.Unit) error {
		ref, err := u.ResolveHandle(ctx, strings.TrimSpace(handle))
		if err != nil {
			return err
		}
		p := domain.Policy{Object: ref, Action: act}
		if email != "" {
			ep, err := u.EPersonByEmail(ctx, email)
			if err != nil {
				return err
			}
			p.EPerson = ep.ID
		} else {
			g, err := u.GroupByName(ctx, group)
			if err != nil {
				return err
			}
			p.Group = g.ID
		}
		return u.Grant(ctx, p)
	})
}
