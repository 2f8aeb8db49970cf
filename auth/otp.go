package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meinhoongagan/urban-services/models"
	"github.com/meinhoongagan/urban-services/repository"
	"go.uber.org/zap"
)

// Challenge is an issued phone login code. Code is handed to the delivery
// channel; only development setups return it to the client.
type Challenge struct {
	AccountID uint
	Code      string
	ExpiresAt time.Time
}

// IssueOTP starts a phone login for the browser session sessionID.
func (s *Service) IssueOTP(ctx context.Context, sessionID, phone string) (*Challenge, error) {
	phone = strings.TrimSpace(phone)
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	if phone == "" {
		return nil, ErrUnknownPhone
	}

	account, err := s.store.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrUnknownPhone
	}
	if err != nil {
		return nil, err
	}

	code, err := s.Generate()
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}
	expiresAt := s.Now().Add(s.opts.OTPTTL)

	if err := s.store.SetVerificationCode(ctx, account.ID, code, expiresAt); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrUnknownPhone
		}
		return nil, err
	}
	if err := s.pending.Put(ctx, sessionID, account.ID); err != nil {
		return nil, err
	}

	if s.delivery != nil {
		if err := s.delivery.DeliverOTP(ctx, account, code, expiresAt); err != nil {
			s.log.Warn("otp delivery failed", zap.Uint("account_id", account.ID), zap.Error(err))
		}
	}

	s.log.Info("otp issued", zap.Uint("account_id", account.ID), zap.Time("expires_at", expiresAt))
	return &Challenge{AccountID: account.ID, Code: code, ExpiresAt: expiresAt}, nil
}

// VerifyOTP completes the pending phone login for sessionID. code must equal
// the stored code exactly. A wrong or expired code leaves the stored code and
// the pending challenge in place.
func (s *Service) VerifyOTP(ctx context.Context, sessionID, code string) (*models.Account, error) {
	if sessionID == "" {
		return nil, ErrNoPendingChallenge
	}
	accountID, err := s.pending.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	account, err := s.store.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, err
	}

	if s.opts.MaxOTPAttempts > 0 {
		attempts, err := s.pending.IncrAttempts(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if attempts > int64(s.opts.MaxOTPAttempts) {
			if err := s.pending.Delete(ctx, sessionID); err != nil {
				s.log.Warn("drop exhausted otp challenge", zap.Uint("account_id", accountID), zap.Error(err))
			}
			s.log.Warn("otp attempts exhausted", zap.Uint("account_id", accountID))
			return nil, ErrTooManyAttempts
		}
	}

	if code == "" {
		return nil, ErrInvalidOrExpiredOtp
	}

	ok, err := s.store.ConsumeVerificationCode(ctx, accountID, code, s.Now())
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOrExpiredOtp
	}

	if err := s.pending.Delete(ctx, sessionID); err != nil {
		// The code is already cleared, so a replay still fails.
		s.log.Warn("delete pending otp", zap.Uint("account_id", accountID), zap.Error(err))
	}
	account.Profile.VerificationCode = nil
	account.Profile.VerificationExpiry = nil
	account.Profile.IsVerified = true

	s.log.Info("otp verified", zap.Uint("account_id", accountID))
	return account, nil
}

// CancelOTP abandons any pending challenge for sessionID.
func (s *Service) CancelOTP(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.pending.Delete(ctx, sessionID)
}
