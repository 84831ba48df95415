// Package auth turns deposit credentials into a SWORD context and answers
// the "may this context submit here" questions
package auth

import (
	"context"
	"errors"
	"strings"

	perr "sword/internal/platform/errors"
	"sword/internal/platform/logger"
	"sword/internal/services/sword/bitstore"
	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/swordcfg"
)

// Credentials are what the client sent
type Credentials struct {
	Username   string
	Password   string
	OnBehalfOf string
	IP         string
}

// Context is the per request SWORD context
type Context struct {
	Authenticated *domain.EPerson
	OnBehalfOf    *domain.EPerson
	Session       *content.Session
}

// Commit ends the session durably
func (c *Context) Commit(ctx context.Context) error { return c.Session.Commit(ctx) }

// Abort discards the session; safe after Commit
func (c *Context) Abort(ctx context.Context) error {
	if c == nil || c.Session == nil {
		return nil
	}
	return c.Session.Abort(ctx)
}

// principals lists who a check must hold for
func (c *Context) principals() []*domain.EPerson {
	if c.OnBehalfOf != nil {
		return []*domain.EPerson{c.Authenticated, c.OnBehalfOf}
	}
	return []*domain.EPerson{c.Authenticated}
}

// Authenticator verifies credentials through an ordered method stack
type Authenticator struct {
	cfg     swordcfg.Config
	store   domain.Store
	bits    bitstore.Store
	methods []Method
}

// New builds an authenticator; with no methods only passwords are checked
func New(cfg swordcfg.Config, st domain.Store, bits bitstore.Store, methods ...Method) *Authenticator {
	if len(methods) == 0 {
		methods = []Method{PasswordMethod{}}
	}
	return &Authenticator{cfg: cfg, store: st, bits: bits, methods: methods}
}

// Authenticate opens a session for the credentials
func (a *Authenticator) Authenticate(ctx context.Context, c Credentials) (*Context, error) {
	log := logger.C(ctx)
	obo := strings.TrimSpace(c.OnBehalfOf)
	if obo != "" && !a.cfg.Mediated {
		return nil, domain.Fail(domain.MediationNotAllowed, "Mediated deposit to this service is not permitted")
	}

	s, err := content.Open(ctx, a.store, a.bits)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "open repository session")
	}
	fail := func(err error) (*Context, error) {
		_ = s.Abort(ctx)
		return nil, err
	}

	ep, err := a.verify(ctx, s.Reader(), c.Username, c.Password)
	if err != nil {
		return fail(err)
	}
	sc := &Context{Authenticated: ep, Session: s}

	if obo != "" {
		target, err := lookupPerson(ctx, s.Reader(), obo)
		if err != nil {
			return fail(err)
		}
		if target == nil {
			log.Info().Str("username", c.Username).Str("on_behalf_of", obo).Msg("unknown on-behalf-of user")
			return fail(domain.Fail(domain.TargetOwnerUnknown, "Unable to identify on-behalf-of user: %s", obo))
		}
		sc.OnBehalfOf = target
		s.SetUser(target)
	} else {
		s.SetUser(ep)
	}
	log.Debug().Str("username", c.Username).Str("on_behalf_of", obo).Str("ip", c.IP).Msg("sword context opened")
	return sc, nil
}

func (a *Authenticator) verify(ctx context.Context, r domain.Reader, user, pass string) (*domain.EPerson, error) {
	if strings.TrimSpace(user) == "" {
		return nil, domain.AuthFailed("Authentication failed: no username supplied")
	}
	for _, m := range a.methods {
		ep, err := m.Authenticate(ctx, r, user, pass)
		if err == nil {
			return ep, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			logger.C(ctx).Warn().Err(err).Str("method", m.Name()).Str("username", user).Msg("authentication method failed")
		}
	}
	return nil, domain.AuthFailed("Authentication failed for user: %s", user)
}

// lookupPerson finds by email, then netid; nil without error when nobody matches
func lookupPerson(ctx context.Context, r domain.Reader, who string) (*domain.EPerson, error) {
	ep, err := r.EPersonByEmail(ctx, who)
	if err == nil {
		return ep, nil
	}
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, err
	}
	ep, err = r.EPersonByNetID(ctx, who)
	if err == nil {
		return ep, nil
	}
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, nil
	}
	return nil, err
}
