package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meinhoongagan/urban-services/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateIdentity = errors.New("username or email already registered")
	ErrPersistence       = errors.New("persistence failure")
)

const pgUniqueViolation = "23505"

// NewAccount is the input to CreateAccount. Password must already be hashed.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	Phone        string
	Role         models.Role
	IsStaff      bool
}

// AccountRepository is the credential store for accounts and their profiles.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateAccount inserts the account and its profile in one transaction.
// Neither row is visible unless both inserts succeed.
func (r *AccountRepository) CreateAccount(ctx context.Context, in NewAccount) (*models.Account, error) {
	account := &models.Account{
		Username:    in.Username,
		UsernameKey: models.NormalizeKey(in.Username),
		Email:       in.Email,
		EmailKey:    models.NormalizeKey(in.Email),
		Password:    in.PasswordHash,
		Role:        in.Role,
		IsActive:    true,
		IsStaff:     in.IsStaff,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Account{}).
			Where("username_key = ? OR email_key = ?", account.UsernameKey, account.EmailKey).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateIdentity
		}

		if err := tx.Omit(clause.Associations).Create(account).Error; err != nil {
			return err
		}

		profile := models.Profile{AccountID: account.ID}
		if in.Phone != "" {
			phone := in.Phone
			profile.Phone = &phone
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		account.Profile = profile
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentity) || isUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, wrap("create account", err)
	}
	return account, nil
}

// FindByID loads an account with its profile.
func (r *AccountRepository) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	return r.first(ctx, "find account by id", "id = ?", id)
}

// FindByUsername matches the username exactly.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.first(ctx, "find account by username", "username = ?", username)
}

// FindByEmail matches the email case-insensitively.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.first(ctx, "find account by email", "email_key = ?", models.NormalizeKey(email))
}

// FindByPhone returns the account whose profile carries phone, compared
// case-insensitively. When several profiles share a phone the oldest wins.
func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(phone) = LOWER(?)", phone).
		Order("id").
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, wrap("find profile by phone", err)
	}
	return r.FindByID(ctx, profile.AccountID)
}

// SetVerificationCode stores code and expiry together, replacing any earlier code.
func (r *AccountRepository) SetVerificationCode(ctx context.Context, accountID uint, code string, expiry time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("account_id = ?", accountID).
		Updates(map[string]interface{}{
			"verification_code":   code,
			"verification_expiry": expiry,
		})
	if res.Error != nil {
		return wrap("set verification code", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ConsumeVerificationCode clears the stored code when it equals code and has
// not expired at now. It reports false, leaving the row untouched, otherwise.
// The profile row is locked for the duration of the check, and the clearing
// UPDATE is conditional on the code so two concurrent consumers cannot both win.
func (r *AccountRepository) ConsumeVerificationCode(ctx context.Context, accountID uint, code string, now time.Time) (bool, error) {
	consumed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", accountID).
			First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		if !profile.HasPendingCode() {
			return nil
		}
		if subtle.ConstantTimeCompare([]byte(*profile.VerificationCode), []byte(code)) != 1 {
			return nil
		}
		if !profile.VerificationExpiry.After(now) {
			return nil
		}

		res := tx.Model(&models.Profile{}).
			Where("id = ? AND verification_code = ?", profile.ID, code).
			Updates(map[string]interface{}{
				"verification_code":   nil,
				"verification_expiry": nil,
				"is_verified":         true,
			})
		if res.Error != nil {
			return res.Error
		}
		consumed = res.RowsAffected == 1
		return nil
	})
	if errors.Is(err, ErrAccountNotFound) {
		return false, err
	}
	if err != nil {
		return false, wrap("consume verification code", err)
	}
	return consumed, nil
}

// ClearExpiredCodes drops every code whose expiry is at or before now.
func (r *AccountRepository) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("verification_expiry IS NOT NULL AND verification_expiry <= ?", now).
		Updates(map[string]interface{}{
			"verification_code":   nil,
			"verification_expiry": nil,
		})
	if res.Error != nil {
		return 0, wrap("clear expired codes", res.Error)
	}
	return res.RowsAffected, nil
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID uint, hash string) error {
	return r.updateAccount(ctx, "update password", accountID, "password", hash)
}

// SetActive toggles the account's active flag.
func (r *AccountRepository) SetActive(ctx context.Context, accountID uint, active bool) error {
	return r.updateAccount(ctx, "set active", accountID, "is_active", active)
}

func (r *AccountRepository) updateAccount(ctx context.Context, op string, accountID uint, column string, value interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Update(column, value)
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) first(ctx context.Context, op string, query string, args ...interface{}) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where(query, args...).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
