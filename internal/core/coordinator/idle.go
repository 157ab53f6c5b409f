package coordinator

import (
	"context"
	"errors"
	"time"

	"tasktray/internal/core/model"
)

// IdleChecker reports the duration of user inactivity.
type IdleChecker interface {
	IdleDuration() (time.Duration, error)
}

// WatchIdle pauses the running task once the user has been idle for
// config.After. It polls every config.CheckInterval until ctx is done or
// the checker reports ErrIdleUnsupported.
func (coordinator *Coordinator) WatchIdle(ctx context.Context, checker IdleChecker, config model.IdlePauseConfig) {
	if !config.Enabled || checker == nil || config.After <= 0 {
		return
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 5 * time.Second
	}

	ticker := time.NewTicker(config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !coordinator.checkIdle(ctx, checker, config.After) {
				return
			}
		}
	}
}

// checkIdle returns false when idle detection should stop.
func (coordinator *Coordinator) checkIdle(ctx context.Context, checker IdleChecker, after time.Duration) bool {
	idle, err := checker.IdleDuration()
	if err != nil {
		if errors.Is(err, ErrIdleUnsupported) {
			coordinator.log.Info().Msg("idle detection unsupported, auto-pause disabled")
			return false
		}
		coordinator.log.Warn().Err(err).Msg("idle check failed")
		return true
	}
	if idle < after {
		return true
	}

	snapshot, err := coordinator.PauseActive(ctx)
	switch {
	case err == nil:
		if snapshot.Timer != nil {
			coordinator.log.Debug().Dur("idle", idle).Str("task_id", snapshot.ActiveTaskID).Msg("paused after idle")
		}
	case errors.Is(err, ErrNotActiveTask):
	case errors.Is(err, ErrStopped):
		return false
	default:
		coordinator.log.Warn().Err(err).Msg("idle pause failed")
	}
	return true
}
