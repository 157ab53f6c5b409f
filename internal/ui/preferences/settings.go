package preferences

import (
	"time"

	"tasktray/internal/core/model"
)

// MinDriftWarnSeconds is the smallest accepted drift warning threshold.
const MinDriftWarnSeconds = 5

// Settings defines editable user preferences.
type Settings struct {
	NotificationsEnabled bool
	NotificationSound    bool
	ShowUncompletedCount bool

	IdlePauseEnabled bool
	IdlePauseAfter   time.Duration

	DriftWarnThreshold time.Duration
}

// DefaultSettings returns default settings for TaskTray.
func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: true,
		NotificationSound:    false,
		ShowUncompletedCount: true,
		IdlePauseEnabled:     false,
		IdlePauseAfter:       10 * time.Minute,
		DriftWarnThreshold:   30 * time.Second,
	}
}

// CoordinatorConfig converts settings to the coordinator configuration.
func (settings Settings) CoordinatorConfig() model.CoordinatorConfig {
	return model.CoordinatorConfig{
		TickInterval:       time.Second,
		DriftWarnThreshold: settings.DriftWarnThreshold,
		PersistRetryDelay:  500 * time.Millisecond,
		Notifications: model.NotificationConfig{
			Enabled: settings.NotificationsEnabled,
			Sound:   settings.NotificationSound,
		},
		IdlePause: model.IdlePauseConfig{
			Enabled:       settings.IdlePauseEnabled,
			After:         settings.IdlePauseAfter,
			CheckInterval: 5 * time.Second,
		},
	}
}
