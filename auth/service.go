// Package auth implements registration, password login and SMS one-time-passcode
// login for customers, service providers and staff admins.
package auth

import (
	"time"

	"github.com/meinhoongagan/urban-services/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Options tunes the auth flows.
type Options struct {
	BcryptCost int
	// OTPTTL is the lifetime of an issued code.
	OTPTTL time.Duration
	// MaxOTPAttempts bounds verify attempts per challenge; 0 means unlimited.
	MaxOTPAttempts int
}

func DefaultOptions() Options {
	return Options{
		BcryptCost:     bcrypt.DefaultCost,
		OTPTTL:         5 * time.Minute,
		MaxOTPAttempts: 5,
	}
}

type Service struct {
	store    AccountStore
	pending  PendingStore
	delivery Delivery
	opts     Options
	log      *zap.Logger

	// Now and Generate default to the wall clock and utils.GenerateOTP.
	Now      func() time.Time
	Generate func() (string, error)
}

// NewService wires the flows. delivery may be nil, in which case codes are only stored.
func NewService(store AccountStore, pending PendingStore, delivery Delivery, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		pending:  pending,
		delivery: delivery,
		opts:     opts,
		log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
		Generate: utils.GenerateOTP,
	}
}
