package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CodeSweeper clears verification codes past their expiry.
type CodeSweeper interface {
	ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

// StartCronJobs schedules the expired-code sweep on spec and starts the scheduler.
// Call Stop on the returned scheduler during shutdown.
func StartCronJobs(spec string, sweeper CodeSweeper, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { sweepExpiredCodes(sweeper, log, time.Now().UTC()) }); err != nil {
		return nil, err
	}
	c.Start()
	log.Info("Cron job scheduler started for expired verification codes", zap.String("schedule", spec))
	return c, nil
}

func sweepExpiredCodes(sweeper CodeSweeper, log *zap.Logger, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := sweeper.ClearExpiredCodes(ctx, now)
	if err != nil {
		log.Error("Error clearing expired verification codes", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("Cleared expired verification codes", zap.Int64("count", n))
	}
}
