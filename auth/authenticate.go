package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/repository"
	"golang.org/x/crypto/bcrypt"
)

// Scope narrows which accounts a login form accepts.
type Scope int

const (
	ScopeCustomer Scope = iota
	ScopeProvider
	ScopeAdmin
)

// Authenticate resolves identifier as a username, then, if it looks like an
// email, as a case-insensitive email. Identity is settled before the active
// and role checks run.
func (s *Service) Authenticate(ctx context.Context, identifier, password string, scope Scope) (*models.Account, error) {
	account, err := s.checkPassword(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	if account == nil && strings.Contains(identifier, "@") {
		byEmail, err := s.store.FindByEmail(ctx, identifier)
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
		case err != nil:
			return nil, err
		default:
			account, err = s.checkPassword(ctx, byEmail.Username, password)
			if err != nil {
				return nil, err
			}
		}
	}

	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := checkScope(account, scope); err != nil {
		return nil, err
	}
	return account, nil
}

// checkPassword returns nil, nil when username is unknown or the password is wrong.
func (s *Service) checkPassword(ctx context.Context, username, password string) (*models.Account, error) {
	if username == "" {
		return nil, nil
	}
	account, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		return nil, nil
	}
	return account, nil
}

func checkScope(account *models.Account, scope Scope) error {
	if !account.IsActive {
		return ErrAccountInactive
	}
	switch scope {
	case ScopeAdmin:
		if !account.IsStaff {
			return ErrInsufficientPrivilege
		}
	case ScopeProvider:
		if !account.IsProvider() {
			return ErrNotAProvider
		}
	}
	return nil
}
