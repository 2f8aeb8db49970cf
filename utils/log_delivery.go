package utils

import (
	"context"
	"time"

	"github.com/meinhoongagan/urban-services/models"
	"go.uber.org/zap"
)

// LogDelivery records that a code was issued without sending it anywhere.
// Meant for local development with OTP_RETURN_TO_CLIENT.
type LogDelivery struct {
	Log *zap.Logger
}

func (d LogDelivery) DeliverOTP(_ context.Context, account *models.Account, _ string, expiresAt time.Time) error {
	d.Log.Info("otp issued (log delivery)",
		zap.Uint("account_id", account.ID),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}
