package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Registration is the registration form. Username falls back to Email.
type Registration struct {
	Username string      `json:"username" form:"username"`
	Email    string      `json:"email" form:"email"`
	Phone    string      `json:"phone" form:"phone"`
	Password string      `json:"password" form:"password"`
	Role     models.Role `json:"-" form:"-"`
}

// Register creates an account and its profile. Providers must supply a phone;
// admins are created with the staff flag set.
func (s *Service) Register(ctx context.Context, in Registration) (*models.Account, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	phone := strings.TrimSpace(in.Phone)

	if email == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}
	if username == "" {
		username = email
	}
	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return nil, ErrInvalidInput
	}
	if role == models.RoleProvider && phone == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrInvalidInput
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.store.CreateAccount(ctx, repository.NewAccount{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Phone:        phone,
		Role:         role,
		IsStaff:      role == models.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account registered",
		zap.Uint("account_id", account.ID),
		zap.String("role", string(account.Role)),
	)
	return account, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID uint, current, next string) error {
	if next == "" {
		return ErrInvalidInput
	}
	account, err := s.store.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrUnknownAccount
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(current)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.opts.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return ErrInvalidInput
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, accountID, string(hash))
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, accountID uint, active bool) error {
	err := s.store.SetActive(ctx, accountID, active)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrUnknownAccount
	}
	if err == nil {
		s.log.Info("account active flag changed", zap.Uint("account_id", accountID), zap.Bool("is_active", active))
	}
	return err
}

// Account loads an account by id.
func (s *Service) Account(ctx context.Context, accountID uint) (*models.Account, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrUnknownAccount
	}
	return account, err
}
