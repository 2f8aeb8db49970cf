package models

import (
	"time"
)

// Profile is owned by exactly one Account. VerificationCode and
// VerificationExpiry are written and cleared together.
type Profile struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	AccountID          uint       `json:"account_id" gorm:"not null;uniqueIndex"`
	Phone              *string    `json:"phone,omitempty" gorm:"size:20;index"`
	IsVerified         bool       `json:"is_verified" gorm:"not null"`
	VerificationCode   *string    `json:"-" gorm:"size:64"`
	VerificationExpiry *time.Time `json:"-" gorm:"index"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasPhone reports whether a non-empty phone number is on file.
func (p *Profile) HasPhone() bool {
	return p.Phone != nil && *p.Phone != ""
}

// HasPendingCode reports whether a verification code is stored.
func (p *Profile) HasPendingCode() bool {
	return p.VerificationCode != nil && *p.VerificationCode != "" && p.VerificationExpiry != nil
}
