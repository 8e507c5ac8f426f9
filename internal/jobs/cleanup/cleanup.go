package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job prunes stale profile view records. Views only gate candidate
// re-surfacing, so rows far past the cooldown window are dead weight.
type Job struct {
	views     viewPruner
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type viewPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func New(views viewPruner, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		views:     views,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.views == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	rows, err := j.views.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune stale profile views: %w", err)
	}
	if rows > 0 {
		j.logger.Info("pruned stale profile views", zap.Int64("deleted", rows))
	}

	return nil
}
