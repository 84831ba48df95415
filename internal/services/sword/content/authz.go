package content

import (
	"context"

	"github.com/google/uuid"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
)

// IsAdmin reports membership of the administrator group
func (s *Session) IsAdmin(ctx context.Context, e *domain.EPerson) (bool, error) {
	if e == nil {
		return false, nil
	}
	return s.unit.IsMember(ctx, e.ID, domain.AdminGroup)
}

// Authorized is true when e is an administrator or holds action on obj
func (s *Session) Authorized(ctx context.Context, e *domain.EPerson, action domain.Action, obj domain.Ref) (bool, error) {
	if e == nil {
		return false, nil
	}
	admin, err := s.IsAdmin(ctx, e)
	if err != nil || admin {
		return admin, err
	}
	return s.unit.Allowed(ctx, e.ID, action, obj)
}

// authorize checks the acting user unless the session is privileged
func (s *Session) authorize(ctx context.Context, action domain.Action, obj domain.Ref) error {
	if s.Privileged() {
		return nil
	}
	ok, err := s.Authorized(ctx, s.user, action, obj)
	if err != nil {
		return err
	}
	if !ok {
		return perr.Forbiddenf("%s may not %s on %s %s", s.userName(), action, obj.Type, obj.ID)
	}
	return nil
}

// authorizeAny passes when either check passes
func (s *Session) authorizeAny(ctx context.Context, a domain.Action, ar domain.Ref, b domain.Action, br domain.Ref) error {
	if err := s.authorize(ctx, a, ar); err == nil || !perr.IsCode(err, perr.ErrorCodeForbidden) {
		return err
	}
	return s.authorize(ctx, b, br)
}

func (s *Session) userName() string {
	if s.user == nil {
		return "anonymous"
	}
	return s.user.Email
}

// grantUser gives the acting user actions on a new object
func (s *Session) grantUser(ctx context.Context, obj domain.Ref, actions ...domain.Action) error {
	if s.user == nil || s.user.ID == uuid.Nil {
		return nil
	}
	for _, a := range actions {
		if err := s.unit.Grant(ctx, domain.Policy{Object: obj, Action: a, EPerson: s.user.ID}); err != nil {
			return err
		}
	}
	return nil
}
