package auth

import (
	"errors"

	"github.com/meinhoongagan/urban-services/repository"
)

// Every outcome below is recoverable; callers turn them into a generic
// user-facing message and never echo the wrapped storage error.
var (
	ErrDuplicateIdentity     = repository.ErrDuplicateIdentity
	ErrPersistence           = repository.ErrPersistence
	ErrInvalidInput          = errors.New("invalid input")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrInsufficientPrivilege = errors.New("account is not staff")
	ErrNotAProvider          = errors.New("account is not a service provider")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnknownPhone          = errors.New("no account for phone number")
	ErrNoPendingChallenge    = errors.New("no pending otp challenge")
	ErrUnknownAccount        = errors.New("pending account no longer exists")
	ErrInvalidOrExpiredOtp   = errors.New("invalid or expired otp")
	ErrTooManyAttempts       = errors.New("too many otp attempts")
)
