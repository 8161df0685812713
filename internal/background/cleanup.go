package background

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Second

// SessionPruner removes index entries left behind by sessions that no
// longer exist.
type SessionPruner interface {
	PruneDangling(ctx context.Context) (int64, error)
}

// CleanupManager runs maintenance jobs on a cron schedule.
type CleanupManager struct {
	sessions SessionPruner
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewCleanupManager schedules the jobs; nothing runs until Start.
func NewCleanupManager(sessions SessionPruner, schedule string, logger *slog.Logger) (*CleanupManager, error) {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))

	cm := &CleanupManager{
		sessions: sessions,
		logger:   logger,
		cron:     c,
	}

	if _, err := c.AddFunc(schedule, cm.pruneSessions); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return cm, nil
}

// Start runs every job once, then hands over to the scheduler.
func (cm *CleanupManager) Start() {
	cm.pruneSessions()
	cm.cron.Start()
	cm.logger.Info("cleanup manager started")
}

// Stop halts the scheduler and waits for a running job, or for ctx.
func (cm *CleanupManager) Stop(ctx context.Context) {
	select {
	case <-cm.cron.Stop().Done():
		cm.logger.Info("cleanup manager stopped")
	case <-ctx.Done():
		cm.logger.Warn("cleanup manager stop timed out")
	}
}

func (cm *CleanupManager) pruneSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := cm.sessions.PruneDangling(ctx)
	if err != nil {
		cm.logger.Error("failed to prune session indexes", slog.Any("error", err))
		return
	}

	if removed > 0 {
		cm.logger.Info("dangling session entries pruned", slog.Int64("entries", removed))
	}
}
