package auth

import (
	"context"
	"time"

	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/repository"
)

// AccountStore is the slice of the credential store the auth flows need.
// *repository.AccountRepository satisfies it.
type AccountStore interface {
	CreateAccount(ctx context.Context, in repository.NewAccount) (*models.Account, error)
	FindByID(ctx context.Context, id uint) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	SetVerificationCode(ctx context.Context, accountID uint, code string, expiry time.Time) error
	ConsumeVerificationCode(ctx context.Context, accountID uint, code string, now time.Time) (bool, error)
	UpdatePassword(ctx context.Context, accountID uint, hash string) error
	SetActive(ctx context.Context, accountID uint, active bool) error
}

// Delivery hands an issued code to an out-of-band channel.
type Delivery interface {
	DeliverOTP(ctx context.Context, account *models.Account, code string, expiresAt time.Time) error
}

var _ AccountStore = (*repository.AccountRepository)(nil)
