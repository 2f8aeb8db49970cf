package models

import (
	"strings"
	"time"
)

type Account struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:150;not null"`
	UsernameKey string    `json:"-" gorm:"size:150;not null;uniqueIndex"`
	Email       string    `json:"email" gorm:"size:254;not null"`
	EmailKey    string    `json:"-" gorm:"size:254;not null;uniqueIndex"`
	Password    string    `json:"-" gorm:"not null"`
	Role        Role      `json:"role" gorm:"size:20;not null"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	IsStaff     bool      `json:"is_staff" gorm:"not null"`
	Profile     Profile   `json:"profile" gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsProvider reports whether the account was registered as a service provider.
func (a *Account) IsProvider() bool {
	return a.Role == RoleProvider
}

// NormalizeKey folds an identifier for case-insensitive comparison.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
