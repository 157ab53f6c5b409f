package model

import "time"

// NotificationConfig controls completion notifications.
type NotificationConfig struct {
	Enabled bool
	Sound   bool
}

// IdlePauseConfig controls pausing the running task while the user is away.
type IdlePauseConfig struct {
	Enabled       bool
	After         time.Duration
	CheckInterval time.Duration
}

// CoordinatorConfig contains runtime settings for the timer coordinator.
type CoordinatorConfig struct {
	TickInterval       time.Duration
	DriftWarnThreshold time.Duration
	PersistRetryDelay  time.Duration

	Notifications NotificationConfig
	IdlePause     IdlePauseConfig
}
