package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiredTokenCleaner clears verification codes and reset tokens past their expiry
type ExpiredTokenCleaner interface {
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// CleanupManager periodically removes expired account tokens from the database
type CleanupManager struct {
	store    ExpiredTokenCleaner
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewCleanupManager creates a new cleanup manager. schedule accepts standard
// cron expressions and descriptors such as "@every 1h".
func NewCleanupManager(store ExpiredTokenCleaner, logger *slog.Logger, schedule string) *CleanupManager {
	return &CleanupManager{
		store:    store,
		logger:   logger,
		schedule: schedule,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Start runs one cleanup immediately and then on every tick of the schedule.
// Calling Start on a running manager is a no-op.
func (cm *CleanupManager) Start(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(cm.schedule, func() { cm.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid cleanup schedule %q: %w", cm.schedule, err)
	}

	cm.cron = c
	cm.cancel = cancel
	cm.running = true

	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		cm.RunOnce(ctx)
	}()

	c.Start()
	cm.logger.Info("cleanup manager started", slog.String("schedule", cm.schedule))
	return nil
}

// RunOnce clears expired tokens and reports how many accounts were touched
func (cm *CleanupManager) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	rows, err := cm.store.ClearExpiredTokens(ctx, cm.now())
	if err != nil {
		if ctx.Err() == nil {
			cm.logger.Error("failed to clear expired tokens", slog.Any("error", err))
		}
		return 0
	}

	if rows > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_updated", rows))
	}
	return rows
}

// Stop cancels in-flight cleanups and waits for them to return.
// Calling Stop on a stopped manager is a no-op.
func (cm *CleanupManager) Stop() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.running {
		return
	}

	cm.cancel()
	<-cm.cron.Stop().Done()
	cm.wg.Wait()

	cm.running = false
	cm.logger.Info("cleanup manager stopped")
}
