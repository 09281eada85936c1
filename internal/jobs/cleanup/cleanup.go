package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultHistoryRetention = 180 * 24 * time.Hour

type historyPruner interface {
	PruneHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job drops premium status audit rows once they fall out of retention.
type Job struct {
	history   historyPruner
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func New(history historyPruner, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = defaultHistoryRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		history:   history,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.history == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.retention)
	rows, err := j.history.PruneHistoryOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup premium history: %w", err)
	}
	if rows > 0 {
		j.logger.Info("cleanup premium history completed",
			zap.Int64("deleted", rows),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

// Loop runs the job every interval until ctx is done.
func (j *Job) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Run(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("premium history cleanup failed", zap.Error(err))
			}
		}
	}
}
