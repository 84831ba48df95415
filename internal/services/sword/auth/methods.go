package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
)

// ErrNoMatch means a method could not vouch for the credentials
var ErrNoMatch = errors.New("auth: credentials not matched")

// Method is one authentication mechanism; the first success wins
type Method interface {
	Name() string
	Authenticate(ctx context.Context, r domain.Reader, username, password string) (*domain.EPerson, error)
}

// PasswordMethod checks the bcrypt hash stored on the eperson
type PasswordMethod struct{}

func (PasswordMethod) Name() string { return "password" }

func (PasswordMethod) Authenticate(ctx context.Context, r domain.Reader, username, password string) (*domain.EPerson, error) {
	ep, err := r.EPersonByEmail(ctx, username)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, err
	}
	if !ep.CanLogIn || ep.PasswordHash == "" {
		return nil, ErrNoMatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ep.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNoMatch
	}
	return ep, nil
}

// HashPassword produces the stored form of a password
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
